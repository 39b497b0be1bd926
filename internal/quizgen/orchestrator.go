package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizgenai/internal/llm"
	"quizgenai/internal/models"

	"go.uber.org/zap"
)

// DefaultChunkAttempts bounds generate-parse-validate rounds per chunk.
const DefaultChunkAttempts = 3

// Chunk attempt outcomes reported to a Recorder.
const (
	OutcomeValid       = "valid"
	OutcomeAdjusted    = "adjusted"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomeInvalid     = "invalid"
)

// TextGenerator is the generation client used for every model call.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (llm.Completion, error)
}

// Recorder receives pipeline outcomes, typically for metrics.
type Recorder interface {
	ObserveChunkAttempt(outcome string)
	ObserveGeneration(degraded bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveChunkAttempt(string) {}
func (nopRecorder) ObserveGeneration(bool)     {}

// Orchestrator runs the full generation pipeline for one request.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	client        TextGenerator
	chunkSize     int
	chunkAttempts int
	log           *zap.Logger
	recorder      Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func WithChunkAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkAttempts = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOrchestrator creates an Orchestrator around a generation client.
func NewOrchestrator(client TextGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:        client,
		chunkSize:     DefaultChunkSize,
		chunkAttempts: DefaultChunkAttempts,
		log:           zap.NewNop(),
		recorder:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces a quiz for content shaped by cfg. Configuration problems
// are returned as *ConfigError before any model call. Model and formatting
// failures never fail the call: affected questions are replaced by fallback
// placeholders and the result is flagged as degraded. The only other error is
// the context being done.
func (o *Orchestrator) Generate(ctx context.Context, cfg models.QuizConfig, content string) (models.GenerationResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return models.GenerationResult{}, err
	}
	if strings.TrimSpace(content) == "" {
		return models.GenerationResult{}, &ConfigError{Reason: "Content is required"}
	}

	chunks := Chunk(content, o.chunkSize)
	o.log.Info("Starting quiz generation",
		zap.Int("chunks", len(chunks)),
		zap.Int("total_questions", cfg.TotalQuestions),
		zap.Int("single_correct", cfg.SingleCorrect),
		zap.Int("multiple_correct", cfg.MultipleCorrect),
		zap.Int("options_per_question", cfg.OptionsPerQuestion))

	var result models.GenerationResult
	remainingSingle, remainingMultiple := cfg.SingleCorrect, cfg.MultipleCorrect

	for i, chunk := range chunks {
		remaining := remainingSingle + remainingMultiple
		if remaining == 0 {
			break
		}
		chunksLeft := len(chunks) - i
		n := (remaining + chunksLeft - 1) / chunksLeft
		singles := min(remainingSingle, n)
		chunkCfg := models.QuizConfig{
			TotalQuestions:     n,
			SingleCorrect:      singles,
			MultipleCorrect:    n - singles,
			OptionsPerQuestion: cfg.OptionsPerQuestion,
		}

		out, err := o.generateChunk(ctx, chunk, chunkCfg, i+1, len(chunks))
		if err != nil {
			return models.GenerationResult{}, err
		}
		result.Questions = append(result.Questions, out.Questions...)
		result.Attempts += out.Attempts
		result.Degraded = result.Degraded || out.Degraded
		result.Diagnostics = append(result.Diagnostics, out.Diagnostics...)

		remainingSingle -= chunkCfg.SingleCorrect
		remainingMultiple -= chunkCfg.MultipleCorrect
	}

	if final := ValidateQuestions(result.Questions, cfg); !final.Valid {
		o.log.Warn("Aggregated quiz failed validation, using fallback quiz", zap.Strings("violations", final.Violations))
		result.Diagnostics = append(result.Diagnostics, prefixed("aggregate", final.Violations)...)
		result.Questions = Fallback(cfg, content)
		result.Degraded = true
	}

	o.recorder.ObserveGeneration(result.Degraded)
	o.log.Info("Quiz generation finished",
		zap.Int("questions", len(result.Questions)),
		zap.Int("attempts", result.Attempts),
		zap.Bool("degraded", result.Degraded))
	return result, nil
}

func (o *Orchestrator) generateChunk(ctx context.Context, chunk string, cfg models.QuizConfig, index, total int) (models.GenerationResult, error) {
	var out models.GenerationResult
	prompt := BuildPrompt(chunk, cfg)
	label := func(attempt int) string { return fmt.Sprintf("chunk %d/%d attempt %d", index, total, attempt) }

	for attempt := 1; attempt <= o.chunkAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.GenerationResult{}, fmt.Errorf("quiz generation abandoned: %w", err)
		}

		completion, err := o.client.Complete(ctx, prompt)
		out.Attempts += completion.Attempts
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return models.GenerationResult{}, fmt.Errorf("quiz generation abandoned: %w", ctxErr)
			}
			o.recorder.ObserveChunkAttempt(OutcomeUnavailable)
			o.log.Warn("Generation unavailable for chunk", zap.String("step", label(attempt)), zap.Error(err))
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %v", label(attempt), err))
			continue
		}

		candidate, err := Parse(completion.Text)
		if err != nil {
			o.recorder.ObserveChunkAttempt(OutcomeMalformed)
			o.log.Warn("Model output could not be parsed", zap.String("step", label(attempt)), zap.Error(err))
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %v", label(attempt), err))
			continue
		}

		candidate = UnwrapQuestions(candidate)
		check := Validate(candidate, cfg)
		if !check.Valid {
			out.Diagnostics = append(out.Diagnostics, prefixed(label(attempt), check.Violations)...)
			var defaulted bool
			candidate, defaulted = Adjust(candidate, cfg, chunk)
			check = Validate(candidate, cfg)
			if !check.Valid {
				o.recorder.ObserveChunkAttempt(OutcomeInvalid)
				o.log.Warn("Adjusted candidate still invalid", zap.String("step", label(attempt)), zap.Strings("violations", check.Violations))
				out.Diagnostics = append(out.Diagnostics, prefixed(label(attempt)+" after adjustment", check.Violations)...)
				continue
			}
			o.recorder.ObserveChunkAttempt(OutcomeAdjusted)
			out.Degraded = defaulted
		} else {
			o.recorder.ObserveChunkAttempt(OutcomeValid)
		}

		questions, err := DecodeQuestions(candidate)
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %v", label(attempt), err))
			continue
		}
		out.Questions = questions
		return out, nil
	}

	o.log.Warn("Chunk generation exhausted, using fallback questions",
		zap.Int("chunk", index), zap.Int("questions", cfg.TotalQuestions))
	out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("chunk %d/%d: fallback questions used", index, total))
	out.Questions = Fallback(cfg, chunk)
	out.Degraded = true
	return out, nil
}

func prefixed(prefix string, lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = prefix + ": " + l
	}
	return out
}
