package conversation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"destination_assistant/pkg"
)

// DefaultWindow is the number of trailing history entries a prompt sees.
const DefaultWindow = 5

// Window returns the last n entries of history. Storage itself is never trimmed.
func Window(history []pkg.ConversationMessage, n int) []pkg.ConversationMessage {
	if n <= 0 {
		return nil
	}
	return trimTail(history, n)
}

func trimTail(messages []pkg.ConversationMessage, maxTurns int) []pkg.ConversationMessage {
	if len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}

// SaveHistory writes history to path as a flat JSON list of {role, content}.
func SaveHistory(path string, history []pkg.ConversationMessage) error {
	if history == nil {
		history = []pkg.ConversationMessage{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// LoadHistory reads a file written by SaveHistory. A missing file yields an empty history.
func LoadHistory(path string) ([]pkg.ConversationMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []pkg.ConversationMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	history := []pkg.ConversationMessage{}
	if err := sonic.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return history, nil
}
