package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"finbot/internal/amqp"
	"finbot/internal/format"
	"finbot/internal/media"
	"finbot/internal/messaging"
)

type fakeFetcher struct {
	m   media.Media
	err error
}

func (f fakeFetcher) Fetch(context.Context, media.Ref) (media.Media, error) {
	return f.m, f.err
}

type fakeHandler struct {
	calls int
	reply string
}

func (h *fakeHandler) HandleMedia(_ context.Context, _, _ string, _ media.Media) string {
	h.calls++
	return h.reply
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string][]string{}
	}
	s.sent[to] = append(s.sent[to], body)
	return s.err
}

func job(id string) media.Job {
	return media.Job{ID: id, ProfileID: "p1", Ref: media.Ref{URL: "https://x/" + id}}
}

func TestMediaWorker_Process(t *testing.T) {
	tests := []struct {
		name      string
		fetchErr  error
		sendErr   error
		wantReply string
		wantCalls int
	}{
		{"success", nil, nil, "✅ ok", 1},
		{"fetch failure", errors.New("status 404"), nil, format.MediaDownloadFailed(errors.New("status 404")), 0},
		{"daily limit is not an error", nil, fmt.Errorf("%w: quota", messaging.ErrDailyLimit), "✅ ok", 1},
		{"send failure is not an error", nil, errors.New("boom"), "✅ ok", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandler{reply: "✅ ok"}
			s := &fakeSender{err: tt.sendErr}
			w := NewMediaWorker(fakeFetcher{m: media.Media{Kind: media.KindImage}, err: tt.fetchErr}, h, s, nil)

			if err := w.Process(context.Background(), job("1")); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if h.calls != tt.wantCalls {
				t.Errorf("handler calls = %d, want %d", h.calls, tt.wantCalls)
			}
			if got := s.sent["p1"]; len(got) != 1 || got[0] != tt.wantReply {
				t.Errorf("sent = %q, want %q", got, tt.wantReply)
			}
		})
	}
}

func TestMediaWorker_CancelledContext(t *testing.T) {
	w := NewMediaWorker(fakeFetcher{}, &fakeHandler{}, &fakeSender{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Process(ctx, job("1")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMediaWorker_HandleMessage(t *testing.T) {
	s := &fakeSender{}
	w := NewMediaWorker(fakeFetcher{}, &fakeHandler{reply: "gata"}, s, nil)
	msg := amqp.NewMediaJobMessage(job("7"))
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if strings.Join(s.sent["p1"], "") != "gata" {
		t.Errorf("unexpected sends %v", s.sent)
	}
}

func TestPool_ProcessesAllJobs(t *testing.T) {
	var done atomic.Int32
	p := NewPool(3, 10, func(context.Context, media.Job) error {
		done.Add(1)
		return nil
	}, nil)
	p.Start(context.Background())

	for i := 0; i < 10; i++ {
		if err := p.Dispatch(context.Background(), job(fmt.Sprint(i))); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if done.Load() != 10 {
		t.Errorf("processed %d jobs, want 10", done.Load())
	}
	if err := p.Dispatch(context.Background(), job("late")); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPool_DrainsQueueAfterStartContextCancelled(t *testing.T) {
	release := make(chan struct{})
	var live, cancelled atomic.Int32
	p := NewPool(1, 3, func(ctx context.Context, j media.Job) error {
		if j.ID == "0" {
			<-release
		}
		if ctx.Err() != nil {
			cancelled.Add(1)
			return ctx.Err()
		}
		live.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	for i := 0; i < 3; i++ {
		if err := p.Dispatch(context.Background(), job(fmt.Sprint(i))); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}

	cancel()
	close(release)
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if live.Load() != 3 || cancelled.Load() != 0 {
		t.Errorf("expected 3 jobs to run with a live context, got live=%d cancelled=%d", live.Load(), cancelled.Load())
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, func(context.Context, media.Job) error { return nil }, nil)
	if err := p.Dispatch(context.Background(), job("1")); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := p.Dispatch(context.Background(), job("2")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPool_SurvivesPanics(t *testing.T) {
	var done atomic.Int32
	p := NewPool(1, 2, func(_ context.Context, j media.Job) error {
		if j.ID == "bad" {
			panic("boom")
		}
		done.Add(1)
		return nil
	}, nil)
	p.Start(context.Background())
	p.Dispatch(context.Background(), job("bad"))
	p.Dispatch(context.Background(), job("good"))
	p.Stop()
	if done.Load() != 1 {
		t.Errorf("expected the good job to run after a panic, got %d", done.Load())
	}
}
