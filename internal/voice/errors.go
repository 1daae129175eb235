package voice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a speech recognition failure.
type ErrorKind string

const (
	KindNoSpeech           ErrorKind = "no_speech"
	KindUnintelligible     ErrorKind = "unintelligible"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindNoMicrophone       ErrorKind = "no_microphone"
	KindUnknown            ErrorKind = "unknown"
)

// apologyPrefix starts every user-facing recognition failure message.
const apologyPrefix = "Sorry, "

type RecognitionError struct {
	Kind ErrorKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "speech recognition: " + string(e.Kind)
	}
	return fmt.Sprintf("speech recognition: %s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Message is the text shown or spoken to the user.
func (e *RecognitionError) Message() string {
	switch e.Kind {
	case KindNoSpeech:
		return apologyPrefix + "no speech detected. Please try again."
	case KindUnintelligible:
		return apologyPrefix + "I couldn't understand that."
	case KindServiceUnavailable:
		return apologyPrefix + "speech recognition service is unavailable."
	case KindNoMicrophone:
		return apologyPrefix + "microphone not found. Check your device."
	}
	if e.Err != nil {
		return apologyPrefix + "an error occurred: " + e.Err.Error()
	}
	return apologyPrefix + "an error occurred."
}

// Message converts any capture error to the user-facing text.
func Message(err error) string {
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr.Message()
	}
	return (&RecognitionError{Kind: KindUnknown, Err: err}).Message()
}

// IsApology reports whether text is a recognition failure message returned by Listen.
func IsApology(text string) bool {
	return strings.HasPrefix(text, apologyPrefix)
}

func recognitionErr(kind ErrorKind, err error) *RecognitionError {
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr
	}
	return &RecognitionError{Kind: kind, Err: err}
}
