package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindTimeout   ErrorKind = "timeout"
	KindAuth      ErrorKind = "auth"
	KindMalformed ErrorKind = "malformed_response"
	KindProvider  ErrorKind = "provider"
)

// UpstreamError is returned for every failed completion.
type UpstreamError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("llm %s error (%s)", e.Kind, e.Provider)
	}
	return fmt.Sprintf("llm %s error (%s): %v", e.Kind, e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transient reports whether another attempt may succeed.
func (e *UpstreamError) Transient() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// IsKind reports whether err is an UpstreamError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == kind
}

var authMarkers = []string{"401", "403", "unauthorized", "invalid api key", "invalid_api_key", "authentication", "permission denied"}

var networkMarkers = []string{"connection reset", "connection refused", "unexpected eof", "no such host", "broken pipe"}

func classify(provider string, err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	kind := KindProvider
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindNetwork
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		kind = KindNetwork
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			kind = KindTimeout
		} else {
			kind = KindNetwork
		}
	default:
		msg := strings.ToLower(err.Error())
		if containsAny(msg, authMarkers) {
			kind = KindAuth
		} else if containsAny(msg, networkMarkers) {
			kind = KindNetwork
		}
	}
	return &UpstreamError{Kind: kind, Provider: provider, Err: err}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
