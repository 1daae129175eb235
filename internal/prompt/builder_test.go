package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"destination_assistant/pkg"
)

func TestBuild_EmptyState(t *testing.T) {
	out := Build(pkg.NewPreferences(), nil, "I like beaches")

	assert.Contains(t, out, "Destination: Not specified")
	assert.Contains(t, out, "Preferences: None")
	assert.Contains(t, out, "Suggested destinations: None")
	assert.Contains(t, out, "New user input: I like beaches")
	assert.Contains(t, out, `"ready_for_booking": true`)
}

func TestBuild_WithState(t *testing.T) {
	prefs := pkg.NewPreferences()
	prefs.Destination = "Lisbon"
	prefs.Tags = []string{"beach", "food"}
	prefs.SuggestedDestinations = []string{"Kyoto", "Osaka"}

	window := []pkg.ConversationMessage{
		{Role: pkg.RoleUser, Content: "somewhere warm"},
		{Role: pkg.RoleAssistant, Content: "How about Portugal?"},
	}

	out := Build(prefs, window, "Lisbon sounds great")

	assert.Contains(t, out, "Destination: Lisbon")
	assert.Contains(t, out, "Preferences: beach, food")
	assert.Contains(t, out, "Suggested destinations: Kyoto, Osaka")
	assert.Contains(t, out, "User: somewhere warm\nAssistant: How about Portugal?")
}

func TestBuild_InputIsNotReinterpreted(t *testing.T) {
	out := Build(pkg.NewPreferences(), nil, "{history} {destination}")
	assert.Contains(t, out, "New user input: {history} {destination}")
	assert.Equal(t, 1, strings.Count(out, "Destination: Not specified"))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil))
	assert.Equal(t, "User: hi", FormatHistory([]pkg.ConversationMessage{{Role: pkg.RoleUser, Content: "hi"}}))
}
