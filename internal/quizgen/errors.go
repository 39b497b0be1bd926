package quizgen

import (
	"errors"
	"strings"

	"quizgenai/internal/models"
)

var (
	// ErrInvalidConfig marks a request rejected before any model call.
	ErrInvalidConfig = errors.New("invalid quiz configuration")
	// ErrMalformedOutput is returned by Parse once every repair rule has failed.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrValidationFailed marks a candidate that breaks the structural contract.
	ErrValidationFailed = errors.New("quiz validation failed")
)

// MaxOptionsPerQuestion keeps options addressable by a single letter label.
const MaxOptionsPerQuestion = 26

// ConfigError carries the user-facing reason a configuration was rejected.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// ValidationError lists every structural violation found in a candidate.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// ValidateConfig checks a QuizConfig at the boundary.
func ValidateConfig(cfg models.QuizConfig) error {
	switch {
	case cfg.TotalQuestions <= 0:
		return &ConfigError{Reason: "Total questions must be greater than 0"}
	case cfg.SingleCorrect < 0 || cfg.MultipleCorrect < 0:
		return &ConfigError{Reason: "Single and Multiple correct question counts cannot be negative"}
	case cfg.SingleCorrect+cfg.MultipleCorrect != cfg.TotalQuestions:
		return &ConfigError{Reason: "Single + Multiple correct questions must equal Total questions"}
	case cfg.OptionsPerQuestion < 2:
		return &ConfigError{Reason: "Options per question must be at least 2"}
	case cfg.OptionsPerQuestion > MaxOptionsPerQuestion:
		return &ConfigError{Reason: "Options per question cannot exceed 26"}
	}
	return nil
}
