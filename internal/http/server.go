// Package http exposes the messaging webhook, the JSON ledger API and health
// endpoints.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finbot/internal/log"
	"finbot/internal/media"
)

// MessageHandler answers one inbound message synchronously.
type MessageHandler interface {
	HandleMessage(ctx context.Context, profileID, text string, ref *media.Ref) string
}

type Options struct {
	// TwilioAuthToken enables X-Twilio-Signature validation when set.
	TwilioAuthToken string
	// PublicURL is the webhook URL as Twilio calls it. Signatures are
	// computed over it; when empty it is rebuilt from the request.
	PublicURL string
	// RateLimit is the number of messages accepted per sender per minute.
	// Zero disables limiting.
	RateLimit int
	// Ready reports whether dependencies are reachable.
	Ready func(ctx context.Context) error
	// Ledger backs the /api routes; they are not registered when nil.
	Ledger Ledger
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string
	Logger   *log.Logger
}

type Server struct {
	http.Server
	handler      MessageHandler
	opts         Options
	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, h MessageHandler, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		handler:     h,
		opts:        opts,
		rateLimiter: newRateLimiter(opts.RateLimit, time.Minute),
		metrics:     &securityMetrics{},
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.withSecurityHeaders(s.handleWebhook))
	mux.HandleFunc("POST /reply_whatsapp", s.withSecurityHeaders(s.handleWebhook))
	if opts.Ledger != nil {
		mux.HandleFunc("GET /api/transactions", s.withAPIAuth(s.handleListTransactions))
		mux.HandleFunc("POST /api/transactions", s.withAPIAuth(s.handleCreateTransaction))
		mux.HandleFunc("GET /api/accounts", s.withAPIAuth(s.handleListAccounts))
		mux.HandleFunc("GET /api/stats", s.withAPIAuth(s.handleStats))
	}
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	s.Handler = log.Middleware(logger)(mux)

	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, extractClientIP(r),
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
