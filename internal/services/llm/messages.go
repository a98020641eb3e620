package llm

import (
	"encoding/json"
	"strings"
)

// Message roles understood by the chat completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one element of multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an inline or remote image.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Message is a single role-tagged chat message. Parts takes precedence over
// Text when both are set.
type Message struct {
	Role  string
	Name  string
	Text  string
	Parts []ContentPart
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data or http URL.
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url, Detail: detail}}
}

// HasImage reports whether the message carries image content.
func (m Message) HasImage() bool {
	for _, part := range m.Parts {
		if part.ImageURL != nil {
			return true
		}
	}
	return false
}

type wireMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content any    `json:"content"`
}

// MarshalJSON encodes the message using the string form for plain text and the
// array form for multi-part content.
func (m Message) MarshalJSON() ([]byte, error) {
	wire := wireMessage{Role: m.Role, Name: sanitizeName(m.Name)}
	if len(m.Parts) > 0 {
		wire.Content = m.Parts
	} else {
		wire.Content = m.Text
	}
	return json.Marshal(wire)
}

// The API restricts names to [a-zA-Z0-9_-].
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
