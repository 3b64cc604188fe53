package quizgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-quiz/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

// LLMQuizGenerator implements domain.QuestionGenerator with a langchaingo chat model.
type LLMQuizGenerator struct {
	model       llms.Model
	prompts     PromptBuilder
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// Options tunes a generator; zero values fall back to defaults.
type Options struct {
	Prompts     PromptBuilder
	Temperature float64
	Timeout     time.Duration
}

// NewLLMQuizGenerator wires a chat model into the quiz pipeline.
func NewLLMQuizGenerator(model llms.Model, opts Options, logger *zap.Logger) (*LLMQuizGenerator, error) {
	if model == nil {
		return nil, fmt.Errorf("LLM model cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMQuizGenerator{
		model:       model,
		prompts:     opts.Prompts,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		logger:      logger,
	}, nil
}

// GenerateQuestions sends one user message with the formatted prompt and parses the reply.
// Unparseable replies are not errors: the result carries the status and no questions.
func (g *LLMQuizGenerator) GenerateQuestions(ctx context.Context, text string, level domain.QuizLevel) (*domain.GenerationResult, error) {
	prompt := g.prompts.Build(text, level)
	g.logger.Info("Requesting quiz from LLM",
		zap.String("level", level.PromptValue()),
		zap.Int("prompt_length", len(prompt)))

	raw, err := g.complete(ctx, prompt)
	if err != nil {
		g.logger.Error("LLM call failed during quiz generation", zap.Error(err))
		return nil, domain.NewLLMServiceError(err)
	}
	g.logger.Debug("Raw LLM response received", zap.String("raw_response", raw))

	res := ParseResponse(raw)
	switch res.Status {
	case domain.ParseOK:
		g.logger.Info("Parsed LLM quiz response",
			zap.Int("questions", len(res.Questions)),
			zap.Int("dropped", res.Dropped))
	default:
		g.logger.Warn("Could not parse LLM quiz response",
			zap.String("status", string(res.Status)),
			zap.String("raw_response", raw))
	}
	return res, nil
}

func (g *LLMQuizGenerator) complete(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	resp, err := g.model.GenerateContent(ctx, messages, llms.WithTemperature(g.temperature))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("LLM request timed out: %w", err)
		}
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return resp.Choices[0].Content, nil
}

var _ domain.QuestionGenerator = (*LLMQuizGenerator)(nil)
