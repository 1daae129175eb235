// Package extractor updates a preference record from one user input and the
// LLM reply to it, using keyword and text-shape heuristics.
package extractor

import (
	"strings"

	"github.com/bytedance/sonic"

	"destination_assistant/internal/config"
	"destination_assistant/pkg"
)

// JSONResult reports what the embedded-JSON rule did.
type JSONResult string

const (
	JSONAbsent        JSONResult = "absent"         // no {...} span in the reply
	JSONMalformed     JSONResult = "malformed"      // span did not decode to an object
	JSONNoDestination JSONResult = "no_destination" // object lacks a usable destination
	JSONApplied       JSONResult = "applied"
	JSONSkipped       JSONResult = "skipped" // destination already settled
)

// Outcome describes exactly what one Update changed.
type Outcome struct {
	TagsAdded        []string
	JSON             JSONResult
	JSONErr          error
	SuggestionsAdded []string
	Selected         string
}

// NoUpdate reports whether the record was left untouched.
func (o Outcome) NoUpdate() bool {
	return len(o.TagsAdded) == 0 && o.JSON != JSONApplied && len(o.SuggestionsAdded) == 0 && o.Selected == ""
}

type category struct {
	tag   string
	words []string
}

var categories = []category{
	{tag: "warm", words: []string{"warm", "hot", "sunny", "tropical"}},
	{tag: "cold", words: []string{"cold", "cool", "snow", "winter"}},
	{tag: "mild", words: []string{"mild", "moderate", "spring", "fall", "autumn"}},
	{tag: "outdoor", words: []string{"hiking", "biking", "swimming", "surfing", "skiing"}},
	{tag: "cultural", words: []string{"museum", "history", "art", "architecture", "gallery"}},
	{tag: "relaxation", words: []string{"relax", "spa", "beach", "resort", "peaceful"}},
}

var listMarkers = []string{"1.", "2.", "3.", "4.", "5."}

type Extractor struct {
	keywords     []string
	categoryTags bool
}

func New(cfg config.ExtractorConfig) *Extractor {
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = config.DefaultKeywords
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &Extractor{keywords: lower, categoryTags: cfg.CategoryTags}
}

// Update applies keyword tagging to userInput, then the response rules
// (embedded JSON, numbered list, selection) in order. prefs is mutated in place.
func (e *Extractor) Update(prefs *pkg.Preferences, userInput, response string) Outcome {
	var out Outcome
	input := strings.ToLower(userInput)

	for _, k := range e.keywords {
		if strings.Contains(input, k) && addTag(prefs, k) {
			out.TagsAdded = append(out.TagsAdded, k)
		}
	}
	if e.categoryTags {
		for _, c := range categories {
			if containsAny(input, c.words) && addTag(prefs, c.tag) {
				out.TagsAdded = append(out.TagsAdded, c.tag)
			}
		}
	}

	out.JSON, out.JSONErr = applyJSON(prefs, response)
	if out.JSON == JSONApplied {
		return out
	}

	if prefs.Destination == "" {
		out.SuggestionsAdded = collectSuggestions(prefs, response)
	}

	if len(prefs.SuggestedDestinations) > 0 && prefs.Destination == "" {
		for _, s := range prefs.SuggestedDestinations {
			if strings.Contains(input, strings.ToLower(s)) {
				prefs.Destination = s
				prefs.ReadyForBooking = true
				out.Selected = s
				break
			}
		}
	}
	return out
}

// applyJSON decodes the span from the first '{' to the last '}'. It sets the
// destination only while none is recorded; a reply naming the recorded
// destination may still confirm it for booking.
func applyJSON(prefs *pkg.Preferences, response string) (JSONResult, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return JSONAbsent, nil
	}

	var obj map[string]any
	if err := sonic.UnmarshalString(response[start:end+1], &obj); err != nil {
		return JSONMalformed, err
	}

	dest, _ := obj["destination"].(string)
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return JSONNoDestination, nil
	}

	ready := true
	if v, ok := obj["ready_for_booking"].(bool); ok {
		ready = v
	}

	switch {
	case prefs.Destination == "":
		prefs.Destination = dest
		prefs.ReadyForBooking = ready
		return JSONApplied, nil
	case !prefs.ReadyForBooking && ready && strings.EqualFold(prefs.Destination, dest):
		prefs.ReadyForBooking = true
		return JSONApplied, nil
	}
	return JSONSkipped, nil
}

func collectSuggestions(prefs *pkg.Preferences, response string) []string {
	var added []string
	for _, line := range strings.Split(response, "\n") {
		if !containsAny(line, listMarkers) {
			continue
		}
		name, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimLeft(strings.TrimSpace(name), "12345. ")
		if name != "" && !prefs.HasSuggestion(name) {
			prefs.SuggestedDestinations = append(prefs.SuggestedDestinations, name)
			added = append(added, name)
		}
	}
	return added
}

func addTag(prefs *pkg.Preferences, tag string) bool {
	if prefs.HasTag(tag) {
		return false
	}
	prefs.Tags = append(prefs.Tags, tag)
	return true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
