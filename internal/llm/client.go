// Package llm sends the system prompt and user input to a chat-completion
// provider and classifies what can go wrong on the way.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"destination_assistant/internal/logger"
)

// Completer produces the assistant reply for one turn.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userInput string) (string, error)
}

// Options bounds a single completion.
type Options struct {
	Timeout    time.Duration // per attempt
	MaxRetries int           // retries after the first attempt, transient failures only
	RetryDelay time.Duration
}

// DefaultOptions gives a 30s attempt timeout and one retry.
func DefaultOptions() Options {
	return Options{Timeout: 30 * time.Second, MaxRetries: 1, RetryDelay: 500 * time.Millisecond}
}

// Client adapts an eino chat model to Completer.
type Client struct {
	model    model.BaseChatModel
	provider string
	opts     Options
	log      zerolog.Logger
}

func NewClient(m model.BaseChatModel, provider string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		model:    m,
		provider: provider,
		opts:     opts,
		log:      logger.With("llm"),
	}
}

// Complete sends the system/user exchange. Errors are *UpstreamError. Only
// transient failures are retried, and never once the parent context is done.
func (c *Client) Complete(ctx context.Context, systemPrompt, userInput string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userInput),
	}

	start := time.Now()
	attempts := 0
	var reply string

	operation := func() error {
		attempts++
		text, err := c.generate(ctx, messages)
		if err == nil {
			reply = text
			return nil
		}
		if ctx.Err() != nil || !err.Transient() {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), uint64(c.opts.MaxRetries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", wait).Msg("Transient LLM failure, retrying")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		ue := classify(c.provider, err)
		c.log.Error().Err(ue).Str("kind", string(ue.Kind)).Int("attempts", attempts).Msg("LLM completion failed")
		return "", ue
	}

	c.log.Debug().
		Int("attempts", attempts).
		Int("reply_length", len(reply)).
		Dur("latency", time.Since(start)).
		Msg("LLM completion succeeded")
	return reply, nil
}

func (c *Client) generate(ctx context.Context, messages []*schema.Message) (string, *UpstreamError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	out, err := c.model.Generate(attemptCtx, messages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			kind := KindNetwork
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				kind = KindTimeout
			}
			return "", &UpstreamError{Kind: kind, Provider: c.provider, Err: ctxErr}
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", &UpstreamError{Kind: KindTimeout, Provider: c.provider, Err: err}
		}
		return "", classify(c.provider, err)
	}

	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", &UpstreamError{Kind: KindMalformed, Provider: c.provider, Err: errors.New("empty assistant message")}
	}
	return out.Content, nil
}
