package domain

import (
	"context"
	"io"
)

// ParseStatus tells how the model response was turned into questions.
type ParseStatus string

const (
	ParseOK          ParseStatus = "ok"
	ParseNoJSON      ParseStatus = "no_json"
	ParseInvalidJSON ParseStatus = "invalid_json"
)

// Notice is the user-visible message for a failed parse; empty when parsing succeeded.
func (s ParseStatus) Notice() string {
	switch s {
	case ParseNoJSON:
		return "No valid JSON found in the response."
	case ParseInvalidJSON:
		return "Invalid JSON response received."
	default:
		return ""
	}
}

// GenerationResult is what a QuestionGenerator recovered from one model call.
type GenerationResult struct {
	Questions []MCQ       `json:"questions"`
	Status    ParseStatus `json:"status"`
	// Dropped counts records rejected by MCQ.Validate.
	Dropped int `json:"dropped"`
}

// QuestionGenerator turns document text into multiple-choice questions.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, text string, level QuizLevel) (*GenerationResult, error)
}

// TextExtractor reads the text of a single PDF document.
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.ReaderAt, size int64) (string, error)
}

// BlobStore persists uploaded files under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the keys below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// SessionRepository stores quiz sessions between requests.
type SessionRepository interface {
	Save(ctx context.Context, session *QuizSession) error
	// FindByID returns (nil, nil) when the session does not exist.
	FindByID(ctx context.Context, id string) (*QuizSession, error)
}

// ResultRepository keeps the history of submitted quizzes.
type ResultRepository interface {
	Save(ctx context.Context, result *QuizResult) error
	ListRecent(ctx context.Context, limit int) ([]*QuizResult, error)
}
