package ai

import "context"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant is the LLM collaborator. Implementations must respect the
// context deadline; the pipeline bounds every call.
type Assistant interface {
	Ask(ctx context.Context, system string, history []ChatMessage, prompt string) (string, error)
}
