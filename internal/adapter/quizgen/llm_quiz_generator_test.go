package quizgen_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdf-quiz/internal/adapter/quizgen"
	"pdf-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const quizReply = `Here you go!
{"mcqs":[
  {"mcq":"What is the capital of France?","options":{"a":"Berlin","b":"Paris","c":"Rome","d":"Madrid"},"correct":"b"},
  {"mcq":"Which planet is red?","options":{"a":"Mars","b":"Venus","c":"Earth","d":"Saturn"},"correct":"a"}
]}`

type fakeModel struct {
	reply   string
	err     error
	delay   time.Duration
	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
	opts    llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls.Add(1)
	m.mu.Lock()
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, tp.Text)
			}
		}
	}
	for _, o := range options {
		o(&m.opts)
	}
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }

func newGenerator(t *testing.T, model llms.Model, opts quizgen.Options) *quizgen.LLMQuizGenerator {
	t.Helper()
	gen, err := quizgen.NewLLMQuizGenerator(model, opts, zap.NewNop())
	require.NoError(t, err)
	return gen
}

func TestNewLLMQuizGenerator_NilModel(t *testing.T) {
	_, err := quizgen.NewLLMQuizGenerator(nil, quizgen.Options{}, zap.NewNop())
	assert.Error(t, err)
}

func TestLLMQuizGenerator_GenerateQuestions_Success(t *testing.T) {
	model := &fakeModel{reply: quizReply}
	gen := newGenerator(t, model, quizgen.Options{
		Prompts:     quizgen.PromptBuilder{NumQuestions: 2},
		Temperature: 0.2,
	})

	res, err := gen.GenerateQuestions(context.Background(), "France and Mars facts.", domain.LevelHard)
	require.NoError(t, err)
	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "Paris", res.Questions[0].CorrectText())

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Text: France and Mars facts.")
	assert.Contains(t, prompt, "quiz of 2 multiple choice questions")
	assert.Contains(t, prompt, "difficulty level as hard")
	assert.Contains(t, prompt, quizgen.ResponseJSON)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-9)
}

func TestLLMQuizGenerator_GenerateQuestions_UnparseableReply(t *testing.T) {
	gen := newGenerator(t, &fakeModel{reply: "I cannot produce a quiz."}, quizgen.Options{})

	res, err := gen.GenerateQuestions(context.Background(), "text", domain.LevelEasy)
	require.NoError(t, err)
	assert.Equal(t, domain.ParseNoJSON, res.Status)
	assert.Empty(t, res.Questions)
}

func TestLLMQuizGenerator_GenerateQuestions_TransportError(t *testing.T) {
	gen := newGenerator(t, &fakeModel{err: errors.New("connection refused")}, quizgen.Options{})

	res, err := gen.GenerateQuestions(context.Background(), "text", domain.LevelEasy)
	assert.Nil(t, res)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeLLMServiceError, domainErr.Code)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLLMQuizGenerator_GenerateQuestions_Timeout(t *testing.T) {
	gen := newGenerator(t, &fakeModel{reply: quizReply, delay: time.Second}, quizgen.Options{Timeout: 20 * time.Millisecond})

	_, err := gen.GenerateQuestions(context.Background(), "text", domain.LevelEasy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPromptBuilder_Truncates(t *testing.T) {
	b := quizgen.PromptBuilder{MaxTextRunes: 5}
	prompt := b.Build("héllo wörld", domain.LevelMedium)

	assert.Contains(t, prompt, "Text: héllo\n")
	assert.NotContains(t, prompt, "wörld")
	assert.Contains(t, prompt, "quiz of 10 multiple choice questions")
	assert.Contains(t, prompt, "difficulty level as medium")
}

func TestCachedGenerator_CachesSuccessfulResults(t *testing.T) {
	model := &fakeModel{reply: quizReply}
	c := newMapCache()
	gen := quizgen.NewCachedGenerator(newGenerator(t, model, quizgen.Options{}), c, time.Hour, 10, zap.NewNop())
	ctx := context.Background()

	first, err := gen.GenerateQuestions(ctx, "same text", domain.LevelEasy)
	require.NoError(t, err)
	second, err := gen.GenerateQuestions(ctx, "same text", domain.LevelEasy)
	require.NoError(t, err)

	assert.Equal(t, int32(1), model.calls.Load())
	assert.Equal(t, first.Questions, second.Questions)

	_, err = gen.GenerateQuestions(ctx, "same text", domain.LevelHard)
	require.NoError(t, err)
	assert.Equal(t, int32(2), model.calls.Load(), "a different level is a different key")

	_, ok := c.data[quizgen.GenerationKey("same text", domain.LevelEasy, 10)]
	assert.True(t, ok)
}

func TestCachedGenerator_DoesNotCacheFailures(t *testing.T) {
	model := &fakeModel{reply: "no json here"}
	c := newMapCache()
	gen := quizgen.NewCachedGenerator(newGenerator(t, model, quizgen.Options{}), c, time.Hour, 10, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := gen.GenerateQuestions(ctx, "text", domain.LevelEasy)
		require.NoError(t, err)
		assert.Equal(t, domain.ParseNoJSON, res.Status)
	}
	assert.Equal(t, int32(2), model.calls.Load())
	assert.Empty(t, c.data)
}

func TestCachedGenerator_DeletesUndecodableEntry(t *testing.T) {
	model := &fakeModel{reply: "no json here"}
	c := newMapCache()
	key := quizgen.GenerationKey("text", domain.LevelEasy, 10)
	c.data[key] = "{not json"
	gen := quizgen.NewCachedGenerator(newGenerator(t, model, quizgen.Options{}), c, time.Hour, 10, zap.NewNop())

	res, err := gen.GenerateQuestions(context.Background(), "text", domain.LevelEasy)
	require.NoError(t, err)
	assert.Equal(t, domain.ParseNoJSON, res.Status)
	assert.Equal(t, int32(1), model.calls.Load())
	_, ok := c.data[key]
	assert.False(t, ok)
}

func TestCachedGenerator_CollapsesConcurrentCalls(t *testing.T) {
	model := &fakeModel{reply: quizReply, delay: 100 * time.Millisecond}
	gen := quizgen.NewCachedGenerator(newGenerator(t, model, quizgen.Options{}), nil, 0, 10, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := gen.GenerateQuestions(context.Background(), "shared", domain.LevelMedium)
			assert.NoError(t, err)
			assert.Len(t, res.Questions, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestCachedGenerator_CancelledCallerDoesNotFailOthers(t *testing.T) {
	model := &fakeModel{reply: quizReply, delay: 150 * time.Millisecond}
	gen := quizgen.NewCachedGenerator(newGenerator(t, model, quizgen.Options{Timeout: 5 * time.Second}), newMapCache(), time.Hour, 10, zap.NewNop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := gen.GenerateQuestions(leaderCtx, "shared", domain.LevelEasy)
		leaderErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	followerRes := make(chan *domain.GenerationResult, 1)
	go func() {
		res, err := gen.GenerateQuestions(context.Background(), "shared", domain.LevelEasy)
		assert.NoError(t, err)
		followerRes <- res
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	res := <-followerRes
	require.NotNil(t, res)
	assert.Len(t, res.Questions, 2)
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestGenerationKey(t *testing.T) {
	k := quizgen.GenerationKey("abc", domain.LevelEasy, 10)
	assert.True(t, strings.HasPrefix(k, "pdfquiz:quizgen:questions:"))
	assert.True(t, strings.HasSuffix(k, ":easy_10"))
	assert.NotEqual(t, k, quizgen.GenerationKey("abd", domain.LevelEasy, 10))
}
