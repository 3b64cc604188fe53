package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const quizResultsDDL = `CREATE TABLE IF NOT EXISTS quiz_results (
	id           VARCHAR(26) PRIMARY KEY,
	session_id   VARCHAR(26) NOT NULL,
	quiz_level   VARCHAR(16) NOT NULL,
	score        INTEGER NOT NULL,
	total        INTEGER NOT NULL,
	submitted_at TIMESTAMP NOT NULL
)`

const quizResultsIndexDDL = `CREATE INDEX IF NOT EXISTS idx_quiz_results_submitted_at ON quiz_results (submitted_at)`

const oracleQuizResultsDDL = `CREATE TABLE quiz_results (
	id           VARCHAR2(26) PRIMARY KEY,
	session_id   VARCHAR2(26) NOT NULL,
	quiz_level   VARCHAR2(16) NOT NULL,
	score        NUMBER(10) NOT NULL,
	total        NUMBER(10) NOT NULL,
	submitted_at TIMESTAMP NOT NULL
)`

const oracleQuizResultsIndexDDL = `CREATE INDEX idx_quiz_results_submitted_at ON quiz_results (submitted_at)`

// EnsureSchema creates the result history table if it does not exist. It is idempotent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if IsOracle(db) {
		for _, stmt := range []string{oracleQuizResultsDDL, oracleQuizResultsIndexDDL} {
			if _, err := db.ExecContext(ctx, stmt); err != nil && !isOracleAlreadyExists(err) {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	}
	for _, stmt := range []string{quizResultsDDL, quizResultsIndexDDL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ORA-00955: name is already used by an existing object.
func isOracleAlreadyExists(err error) bool {
	return strings.Contains(err.Error(), "ORA-00955")
}
