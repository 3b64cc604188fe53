package domain

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// QuizLevel is the difficulty hint passed into the generation prompt.
type QuizLevel string

const (
	LevelEasy   QuizLevel = "Easy"
	LevelMedium QuizLevel = "Medium"
	LevelHard   QuizLevel = "Hard"
)

// Levels lists the selectable difficulty levels in display order.
var Levels = []QuizLevel{LevelEasy, LevelMedium, LevelHard}

// ParseLevel accepts a level name in any letter case.
func ParseLevel(s string) (QuizLevel, error) {
	for _, l := range Levels {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown quiz level %q", s)
}

// PromptValue is the lower-cased form used inside the prompt.
func (l QuizLevel) PromptValue() string {
	return strings.ToLower(string(l))
}

// MCQ is one multiple-choice question as returned by the model.
type MCQ struct {
	Question string            `json:"mcq"`
	Options  map[string]string `json:"options"`
	Correct  string            `json:"correct"`
}

var (
	ErrEmptyQuestion   = errors.New("question text is empty")
	ErrTooFewOptions   = errors.New("question needs at least two options")
	ErrUnknownCorrect  = errors.New("correct key is not one of the options")
	ErrUnknownOption   = errors.New("option key does not exist for this question")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// Validate checks that the answer key points at an existing option.
func (q MCQ) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(q.Options) < 2 {
		return ErrTooFewOptions
	}
	if _, ok := q.Options[q.Correct]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCorrect, q.Correct)
	}
	return nil
}

// OptionKeys returns the option keys in a stable order (a, b, c, d ...).
func (q MCQ) OptionKeys() []string {
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveKey maps user input to an option key. An exact match wins, otherwise
// keys are compared case-insensitively.
func (q MCQ) ResolveKey(input string) (string, bool) {
	if _, ok := q.Options[input]; ok {
		return input, true
	}
	input = strings.TrimSpace(input)
	for _, k := range q.OptionKeys() {
		if strings.EqualFold(k, input) {
			return k, true
		}
	}
	return "", false
}

// CorrectText is the option text the answer key points at.
func (q MCQ) CorrectText() string {
	return q.Options[q.Correct]
}

// Score counts the positions where the selected option text equals the text at the correct key.
func Score(questions []MCQ, selected []string) int {
	score := 0
	for i, q := range questions {
		if i >= len(selected) {
			break
		}
		if selected[i] != "" && selected[i] == q.CorrectText() {
			score++
		}
	}
	return score
}

// Upload is a batch of PDF files stored together.
type Upload struct {
	ID    string   `json:"id"`
	Files []string `json:"files"`
}

// UploadFile is one file received from the client.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// QuizSession is the state of one generated quiz from creation until it expires.
type QuizSession struct {
	ID          string     `json:"id"`
	UploadID    string     `json:"upload_id"`
	Level       QuizLevel  `json:"level"`
	Questions   []MCQ      `json:"questions"`
	Selected    []string   `json:"selected"`
	RawText     string     `json:"raw_text,omitempty"`
	Notice      string     `json:"notice,omitempty"`
	Submitted   bool       `json:"submitted"`
	Score       int        `json:"score"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// NewQuizSession starts a session with every question unanswered.
func NewQuizSession(id, uploadID string, level QuizLevel, questions []MCQ, rawText string) *QuizSession {
	if questions == nil {
		questions = []MCQ{}
	}
	return &QuizSession{
		ID:        id,
		UploadID:  uploadID,
		Level:     level,
		Questions: questions,
		Selected:  make([]string, len(questions)),
		RawText:   rawText,
		CreatedAt: time.Now().UTC(),
	}
}

// Select records the option chosen for the question at index.
func (s *QuizSession) Select(index int, optionKey string) error {
	if index < 0 || index >= len(s.Questions) {
		return ErrIndexOutOfRange
	}
	q := s.Questions[index]
	key, ok := q.ResolveKey(optionKey)
	if !ok {
		return ErrUnknownOption
	}
	text := q.Options[key]
	if len(s.Selected) != len(s.Questions) {
		selected := make([]string, len(s.Questions))
		copy(selected, s.Selected)
		s.Selected = selected
	}
	s.Selected[index] = text
	return nil
}

// Answered returns how many questions have a selection.
func (s *QuizSession) Answered() int {
	n := 0
	for _, sel := range s.Selected {
		if sel != "" {
			n++
		}
	}
	return n
}

// Grade scores the session and marks it submitted.
func (s *QuizSession) Grade(now time.Time) *QuizResult {
	s.Score = Score(s.Questions, s.Selected)
	s.Submitted = true
	s.SubmittedAt = &now

	review := make([]QuestionReview, len(s.Questions))
	for i, q := range s.Questions {
		var sel string
		if i < len(s.Selected) {
			sel = s.Selected[i]
		}
		review[i] = QuestionReview{
			Question:      q.Question,
			Selected:      sel,
			CorrectAnswer: q.CorrectText(),
			IsCorrect:     sel != "" && sel == q.CorrectText(),
		}
	}

	return &QuizResult{
		SessionID:   s.ID,
		Level:       s.Level,
		Score:       s.Score,
		Total:       len(s.Questions),
		SubmittedAt: now,
		Review:      review,
	}
}

// QuestionReview is the per-question part of a graded quiz.
type QuestionReview struct {
	Question      string `json:"question"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// QuizResult is the outcome of a submitted session.
type QuizResult struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id"`
	Level       QuizLevel        `json:"level"`
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Review      []QuestionReview `json:"review,omitempty"`
}

// Summary is the score line shown to the user.
func (r *QuizResult) Summary() string {
	return fmt.Sprintf("You scored %d out of %d", r.Score, r.Total)
}
