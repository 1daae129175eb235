package pkg

import (
	"slices"
	"time"
)

// Core types shared by the assistant, its storage layers and the surfaces

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage represents a message in conversation history
type ConversationMessage struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Preferences is the per-session preference record the extractor maintains.
// Destination, once set, is never cleared for the lifetime of the session.
type Preferences struct {
	Destination           string   `json:"destination,omitempty"`
	Tags                  []string `json:"preferences"`
	SuggestedDestinations []string `json:"suggested_destinations"`
	ReadyForBooking       bool     `json:"ready_for_booking"`
}

// NewPreferences returns an empty record with non-nil slices so it renders as [] in JSON.
func NewPreferences() Preferences {
	return Preferences{
		Tags:                  []string{},
		SuggestedDestinations: []string{},
	}
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	out := p
	out.Tags = append([]string{}, p.Tags...)
	out.SuggestedDestinations = append([]string{}, p.SuggestedDestinations...)
	return out
}

// Ready reports whether the record can be handed off to booking.
func (p Preferences) Ready() bool {
	return p.ReadyForBooking && p.Destination != ""
}

// HasTag reports whether tag was already recorded.
func (p Preferences) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// HasSuggestion reports whether name is already a suggested destination.
func (p Preferences) HasSuggestion(name string) bool {
	return slices.Contains(p.SuggestedDestinations, name)
}

// HandoffPayload is the document handed to the booking system once a destination is confirmed.
type HandoffPayload struct {
	Destination     string   `json:"destination"`
	Preferences     []string `json:"preferences"`
	ReadyForBooking bool     `json:"ready_for_booking"`
}

// NewHandoffPayload derives the payload from a confirmed record.
func NewHandoffPayload(p Preferences) HandoffPayload {
	return HandoffPayload{
		Destination:     p.Destination,
		Preferences:     append([]string{}, p.Tags...),
		ReadyForBooking: true,
	}
}

// Session is the explicit state of one conversation. It is passed into every turn.
type Session struct {
	ID          string                `json:"id"`
	Preferences Preferences           `json:"preferences"`
	History     []ConversationMessage `json:"history"`
	Completed   bool                  `json:"completed"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		Preferences: NewPreferences(),
		History:     []ConversationMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy that shares no slices with s.
func (s *Session) Clone() *Session {
	out := *s
	out.Preferences = s.Preferences.Clone()
	out.History = append([]ConversationMessage{}, s.History...)
	return &out
}

// Status of a processed turn
type Status string

const (
	StatusExploring Status = "exploring"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
)

// Result is what the orchestrator returns for every turn
type Result struct {
	Status             Status          `json:"status"`
	Response           string          `json:"response,omitempty"`
	CurrentPreferences *Preferences    `json:"current_preferences,omitempty"`
	HandoffData        *HandoffPayload `json:"handoff_data,omitempty"`
	JSONObject         string          `json:"json_object,omitempty"`
	Error              string          `json:"error,omitempty"`
}
