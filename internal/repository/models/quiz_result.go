package models

import "time"

// QuizResult maps a row of quiz_results.
type QuizResult struct {
	ID          string    `db:"id"`
	SessionID   string    `db:"session_id"`
	QuizLevel   string    `db:"quiz_level"`
	Score       int       `db:"score"`
	Total       int       `db:"total"`
	SubmittedAt time.Time `db:"submitted_at"`
}
