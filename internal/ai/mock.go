package ai

import (
	"context"
	"fmt"
	"strings"
)

// MockAssistant returns canned replies, used when no assistant endpoint is
// configured and by tests.
type MockAssistant struct {
	Reply string
	Err   error

	// LastPrompt records the final composed prompt for assertions.
	LastPrompt string
	LastSystem string
}

func (m *MockAssistant) Ask(_ context.Context, system string, _ []ChatMessage, prompt string) (string, error) {
	m.LastSystem = system
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	if strings.Contains(strings.ToLower(prompt), "halo") {
		return "Halo! Boleh tahu nama dan lokasi Anda dulu?", nil
	}
	return fmt.Sprintf("Terima kasih atas pesannya: %s", prompt), nil
}
