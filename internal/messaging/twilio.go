package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finbot/internal/log"
)

const (
	twilioBaseURL = "https://api.twilio.com"
	// Twilio rejects bodies above this many characters.
	twilioBodyLimit = 1600
	// Error code returned once the daily messaging limit is exhausted.
	twilioDailyLimitCode = 63038
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
	Timeout time.Duration
}

// Twilio sends messages through the Twilio REST API.
type Twilio struct {
	cfg    TwilioConfig
	client *http.Client
	logger *log.Logger
}

func NewTwilio(cfg TwilioConfig, logger *log.Logger) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Twilio{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.WithComponent(log.ComponentMessaging),
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Send delivers body to the recipient, split into several messages when it
// exceeds the provider limit. It stops at the first failure.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	for _, part := range split(body, twilioBodyLimit) {
		if err := t.send(ctx, to, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *Twilio) send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.AccountSID)
	form := url.Values{
		"To":   {to},
		"From": {t.cfg.From},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create twilio request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send twilio message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		t.logger.DebugContext(ctx, "Message sent", log.FieldProfileID, to, log.FieldStatusCode, resp.StatusCode)
		return nil
	}

	var te twilioError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &te); err != nil {
		return fmt.Errorf("send twilio message: status %d", resp.StatusCode)
	}
	if te.Code == twilioDailyLimitCode {
		return fmt.Errorf("%w: %s", ErrDailyLimit, te.Message)
	}
	return fmt.Errorf("send twilio message: status %d code %d: %s", resp.StatusCode, te.Code, te.Message)
}
