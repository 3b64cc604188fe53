package quizgen

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pdf-quiz/internal/domain"
)

// ResponseJSON is the literal example embedded in every prompt.
const ResponseJSON = `{
    "mcqs": [
        {
            "mcq": "multiple choice question1",
            "options": {
                "a": "choice here1",
                "b": "choice here2",
                "c": "choice here3",
                "d": "choice here4"
            },
            "correct": "a"
        },
        {
            "mcq": "multiple choice question2",
            "options": {
                "a": "choice here1",
                "b": "choice here2",
                "c": "choice here3",
                "d": "choice here4"
            },
            "correct": "b"
        },
        {
            "mcq": "multiple choice question3",
            "options": {
                "a": "choice here1",
                "b": "choice here2",
                "c": "choice here3",
                "d": "choice here4"
            },
            "correct": "c"
        }
    ]
}`

const promptTemplate = `
Text: %s
You are an expert in generating MCQ type quiz on the basis of provided content.
Given the above text, create a quiz of %d multiple choice questions keeping difficulty level as %s.
Make sure the questions are not repeated and check all the questions to be conforming the text as well.
Make sure to keep the format of your response like RESPONSE_JSON below and use it as a guide, do not do anything extra.
Every question must have exactly four options keyed "a", "b", "c" and "d", and "correct" must be one of those keys.
Here is the RESPONSE_JSON:

%s
`

// PromptBuilder formats document text and a difficulty level into the generation prompt.
type PromptBuilder struct {
	NumQuestions int
	// MaxTextRunes truncates the document text; 0 keeps all of it.
	MaxTextRunes int
}

// Build returns the prompt for text at the given level.
func (b PromptBuilder) Build(text string, level domain.QuizLevel) string {
	n := b.NumQuestions
	if n <= 0 {
		n = 10
	}
	return fmt.Sprintf(promptTemplate, b.truncate(strings.TrimSpace(text)), n, level.PromptValue(), ResponseJSON)
}

func (b PromptBuilder) truncate(text string) string {
	if b.MaxTextRunes <= 0 || utf8.RuneCountInString(text) <= b.MaxTextRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:b.MaxTextRunes])
}
