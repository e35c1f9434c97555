package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  []string
	}{
		{"short", "salut", 10, []string{"salut"}},
		{"empty", "", 10, []string{""}},
		{"line break", "aaaa\nbbbb\ncccc", 10, []string{"aaaa\nbbbb", "cccc"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "ăăăăă", 2, []string{"ăă", "ăă", "ă"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := split(tt.body, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("split = %q, want %q", got, tt.want)
			}
		})
	}
}

type twilioServer struct {
	mu     sync.Mutex
	bodies []string
	status int
	reply  string
}

func (s *twilioServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "AC123" || pass != "token" {
			t.Errorf("unexpected credentials %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("From") != "whatsapp:+14155238886" || r.PostForm.Get("To") != "whatsapp:+40700000000" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		s.mu.Lock()
		s.bodies = append(s.bodies, r.PostForm.Get("Body"))
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		w.Write([]byte(s.reply))
	}
}

func newTestTwilio(t *testing.T, srv *twilioServer) *Twilio {
	t.Helper()
	hs := httptest.NewServer(srv.handler(t))
	t.Cleanup(hs.Close)
	return NewTwilio(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "whatsapp:+14155238886",
		BaseURL:    hs.URL,
	}, nil)
}

func TestTwilio_Send(t *testing.T) {
	srv := &twilioServer{status: http.StatusCreated, reply: `{"sid":"SM1"}`}
	tw := newTestTwilio(t, srv)

	if err := tw.Send(context.Background(), "whatsapp:+40700000000", "📊 Sold cont BT: 10.00 RON."); err != nil {
		t.Fatalf("Send: %v", err)
	}
	long := strings.Repeat("x", 1000) + "\n" + strings.Repeat("y", 1000)
	if err := tw.Send(context.Background(), "whatsapp:+40700000000", long); err != nil {
		t.Fatalf("Send long: %v", err)
	}
	if len(srv.bodies) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(srv.bodies))
	}
}

func TestTwilio_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		reply     string
		wantLimit bool
	}{
		{"daily limit", http.StatusTooManyRequests, `{"code":63038,"message":"Account exceeded the daily messages limit","status":429}`, true},
		{"other error", http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`, false},
		{"not json", http.StatusBadGateway, `bad gateway`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := newTestTwilio(t, &twilioServer{status: tt.status, reply: tt.reply})
			err := tw.Send(context.Background(), "whatsapp:+40700000000", "salut")
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrDailyLimit) != tt.wantLimit {
				t.Errorf("errors.Is(ErrDailyLimit) = %v, want %v (err=%v)", !tt.wantLimit, tt.wantLimit, err)
			}
		})
	}
}

func TestLogSender(t *testing.T) {
	if err := NewLogSender(nil).Send(context.Background(), "p1", "salut"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
