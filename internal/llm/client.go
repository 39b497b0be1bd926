package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrGenerationUnavailable is returned once every attempt at a completion failed.
var ErrGenerationUnavailable = errors.New("generation unavailable")

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Completer is a remote text-generation model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Completion is the text of a successful call and how many calls it took.
type Completion struct {
	Text     string
	Attempts int
}

// RetryObserver is notified before each retry.
type RetryObserver func(attempt int, err error)

// Client calls a Completer with bounded retries and linearly growing delays
// (delay, 2*delay, ...). It stops retrying as soon as ctx is done.
type Client struct {
	completer   Completer
	maxAttempts int
	delay       time.Duration
	log         *zap.Logger
	onRetry     RetryObserver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay. Zero disables waiting between attempts.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.delay = d
		}
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithRetryObserver(fn RetryObserver) ClientOption {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient wraps completer with retry handling.
func NewClient(completer Completer, opts ...ClientOption) *Client {
	c := &Client{
		completer:   completer,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultRetryDelay,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete returns the first non-empty completion for prompt. When every
// attempt fails the error wraps ErrGenerationUnavailable and the last cause.
func (c *Client) Complete(ctx context.Context, prompt string) (Completion, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Completion{Attempts: attempts}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
		}

		attempts++
		text, err := c.completer.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("model returned an empty response")
		}
		if err == nil {
			return Completion{Text: text, Attempts: attempts}, nil
		}
		lastErr = err
		c.log.Warn("Completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err))

		if attempt == c.maxAttempts {
			break
		}
		if c.onRetry != nil {
			c.onRetry(attempt, err)
		}
		if err := sleep(ctx, c.delay*time.Duration(attempt)); err != nil {
			return Completion{Attempts: attempts}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
		}
	}

	return Completion{Attempts: attempts}, fmt.Errorf("%w after %d attempts: %w", ErrGenerationUnavailable, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
