package dto

import (
	"time"

	"pdf-quiz/internal/domain"
)

// UploadResponse is returned after PDFs are stored
// @Description Stored upload
type UploadResponse struct {
	UploadID string   `json:"upload_id"`
	Files    []string `json:"files"`
}

// CreateQuizRequest asks for a quiz generated from an upload
// @Description Request body for generating a quiz
type CreateQuizRequest struct {
	UploadID string `json:"upload_id" example:"01HZY8Q2ZKX3V6B7N8M9P0QRST"`
	Level    string `json:"level" example:"Medium"`
}

// SelectAnswerRequest records the option chosen for one question
type SelectAnswerRequest struct {
	Option string `json:"option" example:"b"`
}

// SubmitQuizRequest optionally carries answers to apply before grading.
// Keys are question indexes, values are option keys.
type SubmitQuizRequest struct {
	Answers map[int]string `json:"answers,omitempty"`
}

// OptionView is one labelled option
type OptionView struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// QuestionView is a question without its answer key
type QuestionView struct {
	Index    int          `json:"index"`
	Question string       `json:"question"`
	Options  []OptionView `json:"options"`
	Selected string       `json:"selected,omitempty"`
	// CorrectAnswer is only revealed after submission.
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// QuizSessionResponse represents a quiz session in the API response
// @Description Quiz session
type QuizSessionResponse struct {
	ID          string         `json:"id"`
	UploadID    string         `json:"upload_id"`
	Level       string         `json:"level"`
	Questions   []QuestionView `json:"questions"`
	Answered    int            `json:"answered"`
	Total       int            `json:"total"`
	Notice      string         `json:"notice,omitempty"`
	Submitted   bool           `json:"submitted"`
	Score       *int           `json:"score,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
}

// QuestionReviewResponse is the graded view of one question
type QuestionReviewResponse struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// QuizResultResponse represents a graded quiz
// @Description Graded quiz
type QuizResultResponse struct {
	ID          string                   `json:"id"`
	SessionID   string                   `json:"session_id"`
	Level       string                   `json:"level"`
	Score       int                      `json:"score"`
	Total       int                      `json:"total"`
	Summary     string                   `json:"summary"`
	SubmittedAt time.Time                `json:"submitted_at"`
	Review      []QuestionReviewResponse `json:"review,omitempty"`
}

// ResultsResponse lists recent results
type ResultsResponse struct {
	Results []QuizResultResponse `json:"results"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache,omitempty"`
}

// NewQuizSessionResponse hides the answer key until the session is submitted.
func NewQuizSessionResponse(s *domain.QuizSession) QuizSessionResponse {
	questions := make([]QuestionView, len(s.Questions))
	for i, q := range s.Questions {
		keys := q.OptionKeys()
		options := make([]OptionView, len(keys))
		for j, k := range keys {
			options[j] = OptionView{Key: k, Text: q.Options[k]}
		}
		view := QuestionView{Index: i, Question: q.Question, Options: options}
		if i < len(s.Selected) {
			view.Selected = s.Selected[i]
		}
		if s.Submitted {
			view.CorrectAnswer = q.CorrectText()
		}
		questions[i] = view
	}

	resp := QuizSessionResponse{
		ID:          s.ID,
		UploadID:    s.UploadID,
		Level:       string(s.Level),
		Questions:   questions,
		Answered:    s.Answered(),
		Total:       len(s.Questions),
		Notice:      s.Notice,
		Submitted:   s.Submitted,
		CreatedAt:   s.CreatedAt,
		SubmittedAt: s.SubmittedAt,
	}
	if s.Submitted {
		score := s.Score
		resp.Score = &score
	}
	return resp
}

func NewQuizResultResponse(r *domain.QuizResult) QuizResultResponse {
	resp := QuizResultResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Level:       string(r.Level),
		Score:       r.Score,
		Total:       r.Total,
		Summary:     r.Summary(),
		SubmittedAt: r.SubmittedAt,
	}
	for i, rv := range r.Review {
		resp.Review = append(resp.Review, QuestionReviewResponse{
			Index:         i,
			Question:      rv.Question,
			Selected:      rv.Selected,
			CorrectAnswer: rv.CorrectAnswer,
			IsCorrect:     rv.IsCorrect,
		})
	}
	return resp
}

func NewResultsResponse(results []*domain.QuizResult) ResultsResponse {
	out := ResultsResponse{Results: make([]QuizResultResponse, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, NewQuizResultResponse(r))
	}
	return out
}
