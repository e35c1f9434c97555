package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finbot/internal/media"
)

// MediaJobMessage carries one inbound attachment to the media worker.
type MediaJobMessage struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	Text        string    `json:"text,omitempty"`
	MediaURL    string    `json:"media_url"`
	ContentType string    `json:"content_type,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewMediaJobMessage(job media.Job) *MediaJobMessage {
	return &MediaJobMessage{
		ID:          job.ID,
		ProfileID:   job.ProfileID,
		Text:        job.Text,
		MediaURL:    job.Ref.URL,
		ContentType: job.Ref.ContentType,
		ReceivedAt:  job.ReceivedAt,
		Timestamp:   time.Now(),
	}
}

// Job converts the message back into a media job.
func (m *MediaJobMessage) Job() media.Job {
	return media.Job{
		ID:         m.ID,
		ProfileID:  m.ProfileID,
		Text:       m.Text,
		Ref:        media.Ref{URL: m.MediaURL, ContentType: m.ContentType},
		ReceivedAt: m.ReceivedAt,
	}
}

func (m *MediaJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MediaJobMessageFromJSON decodes a message and rejects ones that cannot be
// processed.
func MediaJobMessageFromJSON(data []byte) (*MediaJobMessage, error) {
	var msg MediaJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ProfileID == "" || msg.MediaURL == "" {
		return nil, errors.New("media job message without profile or url")
	}
	return &msg, nil
}
