package llm

import (
	"context"
	"encoding/json"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a chat request. Content carries plain
// text; Parts carries a structured multi-part payload (text plus image
// references). When Parts is non-empty it takes precedence over Content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Parts   []Part `json:"-"`
}

type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

func TextMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

func ImageMessage(role, caption, imageURL string) Message {
	return Message{
		Role: role,
		Parts: []Part{
			{Type: "text", Text: caption},
			{Type: "image_url", ImageURL: imageURL},
		},
	}
}

// MarshalJSON emits either the plain string content or the multi-part array,
// matching the OpenAI chat completions wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 0 {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: m.Role, Content: m.Content})
	}
	parts := make([]map[string]any, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case "image_url":
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]string{"url": p.ImageURL},
			})
		default:
			parts = append(parts, map[string]any{
				"type": "text",
				"text": p.Text,
			})
		}
	}
	return json.Marshal(struct {
		Role    string           `json:"role"`
		Content []map[string]any `json:"content"`
	}{Role: m.Role, Content: parts})
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model    string
	Messages []Message
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
