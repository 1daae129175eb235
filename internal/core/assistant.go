// Package core runs one conversational turn: prompt, LLM, extraction, and the
// decision to hand a confirmed destination off to booking.
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"destination_assistant/internal/conversation"
	"destination_assistant/internal/extractor"
	"destination_assistant/internal/llm"
	"destination_assistant/internal/logger"
	"destination_assistant/internal/prompt"
	"destination_assistant/pkg"
)

// Greeting opens every conversation.
const Greeting = "Hello! I can help you discover your ideal destination. Where would you like to go or what kind of place are you looking for?"

// ErrSessionComplete is returned for turns on a session that was already handed off.
var ErrSessionComplete = errors.New("destination already confirmed for this session")

// Assistant is stateless; all conversation state lives in the Session passed to each turn.
type Assistant struct {
	completer llm.Completer
	extractor *extractor.Extractor
	window    int
	log       zerolog.Logger
}

func New(completer llm.Completer, ex *extractor.Extractor, window int) *Assistant {
	if window <= 0 {
		window = conversation.DefaultWindow
	}
	return &Assistant{
		completer: completer,
		extractor: ex,
		window:    window,
		log:       logger.With("assistant"),
	}
}

// StartSession creates a session whose history opens with the greeting.
func StartSession(id string) *pkg.Session {
	s := pkg.NewSession(id)
	s.History = append(s.History, pkg.ConversationMessage{Role: pkg.RoleAssistant, Content: Greeting})
	return s
}

// ProcessInput runs one turn against s. History and preferences are committed
// together only when the turn succeeds; on any failure s is left as it was and
// the error Result carries the pre-turn preferences.
func (a *Assistant) ProcessInput(ctx context.Context, s *pkg.Session, input string) (result pkg.Result) {
	start := time.Now()
	snapshot := s.Preferences.Clone()
	log := a.log.With().Str("session_id", s.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Turn panicked")
			result = errorResult(fmt.Errorf("internal error: %v", r), snapshot)
		}
	}()

	if s.Completed {
		return errorResult(ErrSessionComplete, snapshot)
	}

	systemPrompt := prompt.Build(snapshot, conversation.Window(s.History, a.window), input)

	reply, err := a.completer.Complete(ctx, systemPrompt, input)
	if err != nil {
		log.Error().Err(err).Msg("LLM call failed")
		return errorResult(err, snapshot)
	}

	history := append(slices.Clone(s.History),
		pkg.ConversationMessage{Role: pkg.RoleUser, Content: input},
		pkg.ConversationMessage{Role: pkg.RoleAssistant, Content: reply},
	)
	prefs := snapshot.Clone()
	outcome := a.extractor.Update(&prefs, input, reply)

	event := log.Debug().
		Strs("tags_added", outcome.TagsAdded).
		Str("json", string(outcome.JSON)).
		Strs("suggestions_added", outcome.SuggestionsAdded).
		Str("selected", outcome.Selected)
	if outcome.JSONErr != nil {
		event = event.AnErr("json_err", outcome.JSONErr)
	}
	event.Msg("Preferences extracted")

	if prefs.Ready() {
		payload := pkg.NewHandoffPayload(prefs)
		data, err := sonic.ConfigStd.MarshalIndent(payload, "", "  ")
		if err != nil {
			return errorResult(fmt.Errorf("failed to encode handoff payload: %w", err), snapshot)
		}

		commit(s, history, prefs)
		s.Completed = true

		log.Info().Str("destination", payload.Destination).Dur("latency", time.Since(start)).Msg("Destination confirmed")
		return pkg.Result{
			Status:      pkg.StatusReady,
			Response:    reply,
			HandoffData: &payload,
			JSONObject:  string(data),
		}
	}

	commit(s, history, prefs)
	current := prefs.Clone()

	log.Info().Int("tags", len(prefs.Tags)).Int("suggestions", len(prefs.SuggestedDestinations)).Dur("latency", time.Since(start)).Msg("Turn processed")
	return pkg.Result{
		Status:             pkg.StatusExploring,
		Response:           reply,
		CurrentPreferences: &current,
	}
}

func commit(s *pkg.Session, history []pkg.ConversationMessage, prefs pkg.Preferences) {
	s.History = history
	s.Preferences = prefs
	s.UpdatedAt = time.Now()
}

func errorResult(err error, snapshot pkg.Preferences) pkg.Result {
	current := snapshot.Clone()
	return pkg.Result{
		Status:             pkg.StatusError,
		Error:              err.Error(),
		CurrentPreferences: &current,
	}
}
