// Package prompt renders the system prompt sent to the LLM on every turn.
package prompt

import (
	"strings"

	"destination_assistant/pkg"
)

const notSpecified = "Not specified"
const none = "None"

func getSystemTemplate() string {
	return `You are a travel destination advisor. You have exactly one job: help the user choose a destination to travel to.

Current preferences:
Destination: {destination}
Preferences: {preferences}
Suggested destinations: {suggestions}

Previous messages:
{history}

New user input: {input}

How to respond:
1. When the user has described enough preferences but has not chosen a destination:
   - Suggest 3-5 destinations as a numbered list, one per line, in the form "N. Name: reason"
   - Keep each reason to one sentence tied to the user's preferences
   - Ask whether any of them appeals to the user
   - Answer in plain conversational text, not JSON

2. When the user clearly picks one of your suggestions or names a specific destination, reply with ONLY this JSON object:
{
    "destination": "city_name",
    "country": "country_name",
    "ready_for_booking": true
}

3. When the user's preferences are still vague:
   - Ask short questions about what kind of place they want
   - Help them narrow the options
   - Do not emit JSON until a destination is confirmed

Limits:
- Never ask about departure city, travel dates, trip length or budget
- Never ask for booking details
- Talk only about choosing a destination

Once the destination is confirmed, return it as the JSON object above and nothing else.`
}

// Build renders the system prompt from the preference record, the history window
// and the new user input. It never fails.
func Build(prefs pkg.Preferences, window []pkg.ConversationMessage, userInput string) string {
	destination := prefs.Destination
	if destination == "" {
		destination = notSpecified
	}

	replacer := strings.NewReplacer(
		"{destination}", destination,
		"{preferences}", joinOrNone(prefs.Tags),
		"{suggestions}", joinOrNone(prefs.SuggestedDestinations),
		"{history}", FormatHistory(window),
		"{input}", userInput,
	)
	return replacer.Replace(getSystemTemplate())
}

// FormatHistory renders entries as "User: ..." / "Assistant: ..." lines.
func FormatHistory(window []pkg.ConversationMessage) string {
	var b strings.Builder
	for i, msg := range window {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case pkg.RoleUser:
			b.WriteString("User: ")
		case pkg.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString(msg.Role + ": ")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return none
	}
	return strings.Join(items, ", ")
}
