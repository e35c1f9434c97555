package http

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"finbot/internal/log"
	"finbot/internal/media"
)

// maxWebhookBody bounds the form posted by the provider.
const maxWebhookBody = 1 << 20

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// handleWebhook answers a Twilio messaging webhook. Only the first attachment
// of a message is processed.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Invalid webhook form", log.FieldError, err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if s.opts.TwilioAuthToken != "" {
		signature := r.Header.Get(HeaderTwilioSignature)
		if !validTwilioSignature(s.opts.TwilioAuthToken, s.webhookURL(r), r.PostForm, signature, s.metrics) {
			logger.WarnContext(ctx, "Rejected webhook with bad signature", log.FieldClientIP, extractClientIP(r))
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	if !s.rateLimiter.allow(from, s.metrics) {
		logger.WarnContext(ctx, "Rate limit exceeded", log.FieldProfileID, from)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var ref *media.Ref
	if n, _ := strconv.Atoi(r.PostForm.Get("NumMedia")); n > 0 {
		if u := strings.TrimSpace(r.PostForm.Get("MediaUrl0")); u != "" {
			ref = &media.Ref{URL: u, ContentType: r.PostForm.Get("MediaContentType0")}
		}
	}

	reply := s.handler.HandleMessage(ctx, from, r.PostForm.Get("Body"), ref)
	writeTwiML(w, reply)
}

// webhookURL is the URL the provider signed.
func (s *Server) webhookURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeTwiML(w http.ResponseWriter, message string) {
	body, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		http.Error(w, "encode reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
