package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"finbot/internal/log"
	"finbot/internal/media"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultFastModel = "gemini-2.5-flash-lite"
)

type GeminiConfig struct {
	APIKey string
	// Model reads documents and audio.
	Model string
	// FastModel interprets short text.
	FastModel string
}

// contentGenerator is the part of *genai.Models the extractors use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements every extraction port on top of the Gemini API.
type Gemini struct {
	models    contentGenerator
	model     string
	fastModel string
	logger    *log.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *log.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, cfg, logger), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig, logger *log.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.FastModel == "" {
		cfg.FastModel = cfg.Model
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gemini{
		models:    models,
		model:     cfg.Model,
		fastModel: cfg.FastModel,
		logger:    logger.WithComponent(log.ComponentExtract),
	}
}

func (g *Gemini) Interpret(ctx context.Context, text string, vocab Vocabulary) (Action, error) {
	prompt := fmt.Sprintf(actionPrompt,
		strings.Join(vocab.Companies, ", "),
		strings.Join(vocab.Banks, ", "),
		text)

	raw, err := g.generate(ctx, g.fastModel, true, &genai.Part{Text: prompt})
	if err != nil {
		return Action{}, err
	}
	a, err := ParseAction(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "Action output rejected", "raw", raw, log.FieldError, err)
		return a, err
	}
	return a, nil
}

func (g *Gemini) InterpretPeriod(ctx context.Context, text string, now time.Time) (Period, error) {
	prompt := fmt.Sprintf(periodPrompt, now.UTC().Format("2006-01-02T15:04:05"), text)

	raw, err := g.generate(ctx, g.fastModel, true, &genai.Part{Text: prompt})
	if err != nil {
		return Period{}, err
	}
	p, err := ParsePeriod(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "Period output rejected", "raw", raw, log.FieldError, err)
		return Period{}, err
	}
	return p, nil
}

// ReadReceipt sends the document itself to the model, which does the OCR.
func (g *Gemini) ReadReceipt(ctx context.Context, m media.Media, hint string) (Receipt, error) {
	if m.Kind != media.KindImage && m.Kind != media.KindPDF {
		return Receipt{}, fmt.Errorf("read receipt: unsupported media kind %s", m.Kind)
	}
	if strings.TrimSpace(hint) == "" {
		hint = "Not specified"
	}

	raw, err := g.generate(ctx, g.model, true,
		&genai.Part{Text: fmt.Sprintf(receiptPrompt, hint)},
		&genai.Part{InlineData: &genai.Blob{MIMEType: m.ContentType, Data: m.Data}},
	)
	if err != nil {
		return Receipt{}, err
	}
	r, err := ParseReceipt(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "Receipt output rejected", "raw", raw, log.FieldError, err)
		return r, err
	}
	return r, nil
}

func (g *Gemini) Transcribe(ctx context.Context, m media.Media) (string, error) {
	if m.Kind != media.KindAudio {
		return "", fmt.Errorf("transcribe: unsupported media kind %s", m.Kind)
	}
	text, err := g.generate(ctx, g.model, false,
		&genai.Part{Text: transcribePrompt},
		&genai.Part{InlineData: &genai.Blob{MIMEType: m.ContentType, Data: m.Data}},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) generate(ctx context.Context, model string, jsonOut bool, parts ...*genai.Part) (string, error) {
	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if jsonOut {
		cfg.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	g.logger.DebugContext(ctx, "Model call completed",
		"model", model,
		log.FieldDuration, time.Since(start).Milliseconds())

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrUnparseable)
	}
	return text, nil
}
