package ai

import (
	"context"
	"strings"
)

// Message roles understood by the model backends.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single role-tagged entry in a model conversation.
type Message struct {
	Role    string
	Content string
}

// System returns a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Generator is the model backend client. Implementations send the ordered
// message list to a generative model and return the produced text. Each call
// is attempted exactly once; retrying is the caller's decision, and no caller
// in this codebase retries.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// ExtractJSON strips a Markdown code fence from a model response, returning
// the payload ready for json.Unmarshal. Bare JSON passes through unchanged.
// Models routinely wrap structured answers in ```json fences despite being
// asked not to.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
