package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"finbot/internal/media"
)

type fakeModels struct {
	reply     string
	err       error
	lastModel string
	lastParts []*genai.Part
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastParts = contents[0].Parts
	f.lastCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func newTestGemini(reply string) (*Gemini, *fakeModels) {
	fm := &fakeModels{reply: reply}
	return newGemini(fm, GeminiConfig{Model: "big", FastModel: "small"}, nil), fm
}

func TestGemini_Interpret(t *testing.T) {
	g, fm := newTestGemini(`{"operation":"select","data":{},"conditions":{"banca":"ING"}}`)

	a, err := g.Interpret(context.Background(), "Câți bani am la ING?", Vocabulary{Banks: []string{"ING", "BCR"}, Companies: []string{"Firma SRL"}})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if a.Operation != OpSelect || a.Conditions.Bank != "ING" {
		t.Errorf("unexpected action: %+v", a)
	}
	if fm.lastModel != "small" {
		t.Errorf("expected fast model, got %q", fm.lastModel)
	}
	prompt := fm.lastParts[0].Text
	if !strings.Contains(prompt, "ING, BCR") || !strings.Contains(prompt, "Firma SRL") || !strings.Contains(prompt, "Câți bani am la ING?") {
		t.Errorf("prompt is missing vocabulary or message:\n%s", prompt)
	}
	if fm.lastCfg.ResponseMIMEType != "application/json" {
		t.Errorf("expected JSON response type, got %q", fm.lastCfg.ResponseMIMEType)
	}
}

func TestGemini_InterpretPeriod(t *testing.T) {
	g, fm := newTestGemini(`{"start_iso":"2025-03-10T00:00:00","end_iso":"2025-03-16T23:59:59","confidence":0.8,"normalized":"săptămâna trecută"}`)
	now := time.Date(2025, 3, 18, 9, 30, 0, 0, time.UTC)

	p, err := g.InterpretPeriod(context.Background(), "cât am cheltuit săptămâna trecută", now)
	if err != nil {
		t.Fatalf("InterpretPeriod: %v", err)
	}
	if !p.Complete() || p.Confidence != 0.8 {
		t.Errorf("unexpected period: %+v", p)
	}
	if !strings.Contains(fm.lastParts[0].Text, "2025-03-18T09:30:00") {
		t.Error("prompt should carry the reference time")
	}
}

func TestGemini_ReadReceipt(t *testing.T) {
	g, fm := newTestGemini(`{"invoice_number":"B-77","account":null,"amount":45.5,"currency":"RON","description":"Combustibil"}`)
	m := media.Media{Kind: media.KindImage, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}

	r, err := g.ReadReceipt(context.Background(), m, "BCR")
	if err != nil {
		t.Fatalf("ReadReceipt: %v", err)
	}
	if r.Amount == nil || r.Amount.String() != "-45.5" {
		t.Errorf("unexpected amount %v", r.Amount)
	}
	if fm.lastModel != "big" || len(fm.lastParts) != 2 || fm.lastParts[1].InlineData == nil {
		t.Fatalf("expected document attached to the big model, got model=%q parts=%d", fm.lastModel, len(fm.lastParts))
	}
	if fm.lastParts[1].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("unexpected mime type %q", fm.lastParts[1].InlineData.MIMEType)
	}

	if _, err := g.ReadReceipt(context.Background(), media.Media{Kind: media.KindAudio}, ""); err == nil {
		t.Error("expected error for audio receipt")
	}
}

func TestGemini_Transcribe(t *testing.T) {
	g, fm := newTestGemini("  Am plătit 50 de lei la BCR \n")
	text, err := g.Transcribe(context.Background(), media.Media{Kind: media.KindAudio, ContentType: "audio/ogg", Data: []byte("OggS")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Am plătit 50 de lei la BCR" {
		t.Errorf("unexpected transcript %q", text)
	}
	if fm.lastCfg.ResponseMIMEType != "" {
		t.Error("transcription should not request JSON")
	}
}

func TestGemini_Errors(t *testing.T) {
	g, fm := newTestGemini("")
	if _, err := g.Interpret(context.Background(), "x", Vocabulary{}); !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable for empty reply, got %v", err)
	}

	boom := errors.New("quota exceeded")
	fm.err = boom
	if _, err := g.InterpretPeriod(context.Background(), "x", time.Now()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiConfig{}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
}
