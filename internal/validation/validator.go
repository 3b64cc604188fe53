package validation

import (
	"regexp"
	"strconv"
	"strings"

	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/util"
)

const (
	maxResultsLimit = 100
	maxOptionKeyLen = 64
)

// Option keys come from the model, so only control characters are refused.
var controlCharPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreateQuizRequest checks the upload id and difficulty level.
func (v *Validator) ValidateCreateQuizRequest(uploadID, level string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(uploadID) == "" {
		errors = append(errors, domain.NewMissingFieldError("upload_id"))
	} else if !util.IsULID(uploadID) {
		errors = append(errors, domain.NewInvalidFormatError("upload_id", uploadID))
	}

	if strings.TrimSpace(level) == "" {
		errors = append(errors, domain.NewMissingFieldError("level"))
	} else if _, err := domain.ParseLevel(level); err != nil {
		errors = append(errors, domain.ValidationError{Field: "level", Message: "must be one of Easy, Medium, Hard"})
	}

	return errors
}

// ValidateSessionID checks a quiz session id from the path.
func (v *Validator) ValidateSessionID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !util.IsULID(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("id", id)}
	}
	return nil
}

// ValidateSelectAnswer parses the question index and checks the option key.
func (v *Validator) ValidateSelectAnswer(indexParam, option string) (int, domain.ValidationErrors) {
	var errors domain.ValidationErrors

	index, err := strconv.Atoi(indexParam)
	if err != nil || index < 0 {
		errors = append(errors, domain.NewInvalidFormatError("index", indexParam))
	}
	errors = append(errors, v.validateOption("option", option)...)

	return index, errors
}

// ValidateSubmitAnswers checks every submitted option key.
func (v *Validator) ValidateSubmitAnswers(answers map[int]string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	for i, option := range answers {
		if i < 0 {
			errors = append(errors, domain.NewInvalidFormatError("answers", strconv.Itoa(i)))
			continue
		}
		errors = append(errors, v.validateOption("answers."+strconv.Itoa(i), option)...)
	}
	return errors
}

// ValidateResultsLimit parses the optional limit query parameter; 0 means default.
func (v *Validator) ValidateResultsLimit(limitParam string) (int, domain.ValidationErrors) {
	if limitParam == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, domain.ValidationErrors{domain.NewInvalidFormatError("limit", limitParam)}
	}
	if limit < 1 || limit > maxResultsLimit {
		return 0, domain.ValidationErrors{domain.NewOutOfRangeError("limit", limit, 1, maxResultsLimit)}
	}
	return limit, nil
}

func (v *Validator) validateOption(field, option string) domain.ValidationErrors {
	if strings.TrimSpace(option) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	}
	if len(option) > maxOptionKeyLen || controlCharPattern.MatchString(option) {
		return domain.ValidationErrors{domain.NewInvalidFormatError(field, option)}
	}
	return nil
}
