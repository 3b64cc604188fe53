package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/util"

	"go.uber.org/zap"
)

const (
	uploadPrefix       = "uploads"
	defaultResultLimit = 20
	maxResultLimit     = 100
)

// QuizService defines the quiz workflow from upload to grading.
type QuizService interface {
	Upload(ctx context.Context, files []domain.UploadFile) (*domain.Upload, error)
	CreateQuiz(ctx context.Context, uploadID string, level domain.QuizLevel) (*domain.QuizSession, error)
	GetQuiz(ctx context.Context, sessionID string) (*domain.QuizSession, error)
	SelectAnswer(ctx context.Context, sessionID string, index int, optionKey string) (*domain.QuizSession, error)
	// SubmitQuiz applies answers (question index to option key) before grading.
	SubmitQuiz(ctx context.Context, sessionID string, answers map[int]string) (*domain.QuizResult, error)
	ListResults(ctx context.Context, limit int) ([]*domain.QuizResult, error)
}

// quizService implements QuizService
type quizService struct {
	blobs     domain.BlobStore
	extractor domain.TextExtractor
	generator domain.QuestionGenerator
	sessions  domain.SessionRepository
	results   domain.ResultRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuizService creates a new instance of quizService
func NewQuizService(
	blobs domain.BlobStore,
	extractor domain.TextExtractor,
	generator domain.QuestionGenerator,
	sessions domain.SessionRepository,
	results domain.ResultRepository,
	logger *zap.Logger,
) QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &quizService{
		blobs:     blobs,
		extractor: extractor,
		generator: generator,
		sessions:  sessions,
		results:   results,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func uploadDir(uploadID string) string {
	return path.Join(uploadPrefix, uploadID) + "/"
}

func isPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}

// cleanFileName drops any directory part a client may have sent.
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimSpace(path.Base(name))
}

// uniqueName suffixes name until it is not in seen.
func uniqueName(name string, seen map[string]bool) string {
	if !seen[name] {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !seen[candidate] {
			return candidate
		}
	}
}

// Upload implements QuizService
func (s *quizService) Upload(ctx context.Context, files []domain.UploadFile) (*domain.Upload, error) {
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("At least one PDF file is required")
	}
	for _, f := range files {
		name := cleanFileName(f.Name)
		if name == "" || name == "." || name == "/" || !isPDF(name) {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("Only PDF files are accepted: %q", f.Name))
		}
		if f.Size <= 0 {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("File %q is empty", f.Name))
		}
	}

	upload := &domain.Upload{ID: util.NewULID(), Files: make([]string, 0, len(files))}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		name := uniqueName(cleanFileName(f.Name), seen)
		seen[name] = true

		if err := s.storeFile(ctx, uploadDir(upload.ID)+name, f); err != nil {
			s.logger.Error("Failed to store uploaded file",
				zap.String("uploadID", upload.ID), zap.String("file", name), zap.Error(err))
			return nil, domain.NewInternalError("Failed to store uploaded file", err)
		}
		upload.Files = append(upload.Files, name)
	}

	s.logger.Info("Stored upload", zap.String("uploadID", upload.ID), zap.Strings("files", upload.Files))
	return upload, nil
}

func (s *quizService) storeFile(ctx context.Context, key string, f domain.UploadFile) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	_, err = s.blobs.Put(ctx, key, rc)
	return err
}

// CreateQuiz implements QuizService
func (s *quizService) CreateQuiz(ctx context.Context, uploadID string, level domain.QuizLevel) (*domain.QuizSession, error) {
	level, err := domain.ParseLevel(string(level))
	if err != nil {
		return nil, domain.NewInvalidInputError(err.Error())
	}
	if !util.IsULID(uploadID) {
		return nil, domain.NewUploadNotFoundError(uploadID)
	}

	keys, err := s.blobs.List(ctx, uploadDir(uploadID))
	if err != nil {
		return nil, domain.NewInternalError("Failed to list uploaded files", err)
	}
	var pdfKeys []string
	for _, k := range keys {
		if isPDF(k) {
			pdfKeys = append(pdfKeys, k)
		}
	}
	if len(pdfKeys) == 0 {
		return nil, domain.NewUploadNotFoundError(uploadID)
	}
	sort.Strings(pdfKeys)

	text, err := s.extractAll(ctx, pdfKeys)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewNoDocumentsError(uploadID)
	}

	res, err := s.generator.GenerateQuestions(ctx, text, level)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.NewLLMServiceError(err)
	}

	session := domain.NewQuizSession(util.NewULID(), uploadID, level, res.Questions, text)
	session.Notice = res.Status.Notice()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, domain.NewInternalError("Failed to save quiz session", err)
	}

	s.logger.Info("Created quiz session",
		zap.String("sessionID", session.ID),
		zap.String("uploadID", uploadID),
		zap.String("level", string(level)),
		zap.Int("questions", len(session.Questions)),
		zap.String("parseStatus", string(res.Status)))
	return session, nil
}

// extractAll concatenates the text of every document, skipping ones that cannot be read.
func (s *quizService) extractAll(ctx context.Context, keys []string) (string, error) {
	texts := make([]string, 0, len(keys))
	for _, key := range keys {
		data, err := s.readBlob(ctx, key)
		if err != nil {
			return "", domain.NewInternalError("Failed to read uploaded file", err)
		}
		text, err := s.extractor.ExtractText(ctx, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			s.logger.Warn("Skipping unreadable PDF", zap.String("key", key), zap.Error(err))
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

func (s *quizService) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *quizService) loadSession(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load quiz session", err)
	}
	if session == nil {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	return session, nil
}

// GetQuiz implements QuizService
func (s *quizService) GetQuiz(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	return s.loadSession(ctx, sessionID)
}

func selectionError(index int, optionKey string, err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return domain.NewInvalidSelectionError(fmt.Sprintf("Question index %d is out of range", index))
	case errors.Is(err, domain.ErrUnknownOption):
		return domain.NewInvalidSelectionError(fmt.Sprintf("Option %q does not exist for question %d", optionKey, index))
	default:
		return domain.NewInternalError("Failed to record answer", err)
	}
}

// SelectAnswer implements QuizService
func (s *quizService) SelectAnswer(ctx context.Context, sessionID string, index int, optionKey string) (*domain.QuizSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Submitted {
		return nil, domain.NewAlreadySubmittedError(sessionID)
	}
	if err := session.Select(index, optionKey); err != nil {
		return nil, selectionError(index, optionKey, err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, domain.NewInternalError("Failed to save quiz session", err)
	}
	return session, nil
}

// SubmitQuiz implements QuizService
func (s *quizService) SubmitQuiz(ctx context.Context, sessionID string, answers map[int]string) (*domain.QuizResult, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Submitted {
		return nil, domain.NewAlreadySubmittedError(sessionID)
	}

	indices := make([]int, 0, len(answers))
	for i := range answers {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		if err := session.Select(i, answers[i]); err != nil {
			return nil, selectionError(i, answers[i], err)
		}
	}

	result := session.Grade(s.now())
	result.ID = util.NewULID()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, domain.NewInternalError("Failed to save quiz session", err)
	}
	if err := s.results.Save(ctx, result); err != nil {
		// The graded session is already stored; history is best effort.
		s.logger.Error("Failed to record quiz result",
			zap.String("sessionID", sessionID), zap.Error(err))
	}

	s.logger.Info("Quiz submitted",
		zap.String("sessionID", sessionID),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total))
	return result, nil
}

// ListResults implements QuizService
func (s *quizService) ListResults(ctx context.Context, limit int) ([]*domain.QuizResult, error) {
	switch {
	case limit <= 0:
		limit = defaultResultLimit
	case limit > maxResultLimit:
		limit = maxResultLimit
	}
	results, err := s.results.ListRecent(ctx, limit)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quiz results", err)
	}
	return results, nil
}
