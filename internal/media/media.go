// Package media describes inbound attachments and downloads them.
package media

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// KindOf classifies a MIME content type.
func KindOf(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return KindPDF
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"), strings.Contains(ct, "png"),
		strings.Contains(ct, "gif"), strings.Contains(ct, "webp"):
		return KindImage
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "wav"), strings.Contains(ct, "mpeg"),
		strings.Contains(ct, "mp3"), strings.Contains(ct, "amr"), strings.Contains(ct, "opus"):
		return KindAudio
	}
	return KindUnknown
}

// Ref points at an attachment that has not been downloaded yet. URL is either
// http(s) or gs://bucket/object.
type Ref struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Media is a downloaded attachment.
type Media struct {
	Kind        Kind
	ContentType string
	Data        []byte
}

// Job is one unit of asynchronous media work.
type Job struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	Text       string    `json:"text,omitempty"`
	Ref        Ref       `json:"ref"`
	ReceivedAt time.Time `json:"received_at"`
}

func NewJob(profileID, text string, ref Ref) Job {
	return Job{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		Text:       text,
		Ref:        ref,
		ReceivedAt: time.Now().UTC(),
	}
}
