package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"pdf-quiz/internal/adapter"
	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/repository"
	"pdf-quiz/internal/storage"
	"pdf-quiz/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceMocks struct {
	blobs     *MockBlobStore
	extractor *MockTextExtractor
	generator *MockQuestionGenerator
	sessions  *MockSessionRepository
	results   *MockResultRepository
}

func newTestService() (*quizService, *serviceMocks) {
	m := &serviceMocks{
		blobs:     new(MockBlobStore),
		extractor: new(MockTextExtractor),
		generator: new(MockQuestionGenerator),
		sessions:  new(MockSessionRepository),
		results:   new(MockResultRepository),
	}
	svc := NewQuizService(m.blobs, m.extractor, m.generator, m.sessions, m.results, nil).(*quizService)
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return svc, m
}

func pdfFile(name, content string) domain.UploadFile {
	return domain.UploadFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func arithmeticQuestions() []domain.MCQ {
	return []domain.MCQ{
		{Question: "2+2?", Options: map[string]string{"a": "3", "b": "4", "c": "5", "d": "6"}, Correct: "b"},
		{Question: "3*3?", Options: map[string]string{"a": "6", "b": "8", "c": "9", "d": "12"}, Correct: "c"},
	}
}

func openSession(id string) *domain.QuizSession {
	return domain.NewQuizSession(id, util.NewULID(), domain.LevelEasy, arithmeticQuestions(), "text")
}

func assertDomainCode(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestQuizService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresFilesUnderUploadPrefix", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("Put", ctx, mock.MatchedBy(func(k string) bool {
			return strings.HasPrefix(k, "uploads/") && strings.HasSuffix(k, "/notes.pdf")
		}), mock.Anything).Return("k1", nil).Once()
		m.blobs.On("Put", ctx, mock.MatchedBy(func(k string) bool {
			return strings.HasSuffix(k, "/notes-2.pdf")
		}), mock.Anything).Return("k2", nil).Once()

		upload, err := svc.Upload(ctx, []domain.UploadFile{
			pdfFile("notes.pdf", "%PDF-1.4 a"),
			pdfFile("C:\\Users\\me\\notes.pdf", "%PDF-1.4 b"),
		})
		require.NoError(t, err)
		assert.True(t, util.IsULID(upload.ID))
		assert.Equal(t, []string{"notes.pdf", "notes-2.pdf"}, upload.Files)
		m.blobs.AssertExpectations(t)
	})

	t.Run("RejectsEmptyList", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Upload(ctx, nil)
		assertDomainCode(t, err, domain.CodeInvalidInput)
	})

	t.Run("RejectsNonPDF", func(t *testing.T) {
		svc, m := newTestService()
		_, err := svc.Upload(ctx, []domain.UploadFile{pdfFile("a.pdf", "x"), pdfFile("b.docx", "x")})
		assertDomainCode(t, err, domain.CodeInvalidInput)
		m.blobs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RejectsEmptyFile", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Upload(ctx, []domain.UploadFile{pdfFile("a.pdf", "")})
		assertDomainCode(t, err, domain.CodeInvalidInput)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("Put", ctx, mock.Anything, mock.Anything).Return("", errors.New("disk full"))
		_, err := svc.Upload(ctx, []domain.UploadFile{pdfFile("a.pdf", "x")})
		assertDomainCode(t, err, domain.CodeInternal)
	})
}

func TestQuizService_CreateQuiz(t *testing.T) {
	ctx := context.Background()
	uploadID := util.NewULID()
	prefix := "uploads/" + uploadID + "/"

	t.Run("Success", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("List", ctx, prefix).Return([]string{prefix + "b.pdf", prefix + "readme.txt", prefix + "a.pdf"}, nil)
		m.blobs.On("Get", ctx, prefix+"a.pdf").Return(io.NopCloser(strings.NewReader("A")), nil)
		m.blobs.On("Get", ctx, prefix+"b.pdf").Return(io.NopCloser(strings.NewReader("B")), nil)
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("first doc", nil).Once()
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("second doc", nil).Once()
		m.generator.On("GenerateQuestions", ctx, "first doc\n\nsecond doc", domain.LevelMedium).
			Return(&domain.GenerationResult{Questions: arithmeticQuestions(), Status: domain.ParseOK}, nil)
		m.sessions.On("Save", ctx, mock.AnythingOfType("*domain.QuizSession")).Return(nil)

		session, err := svc.CreateQuiz(ctx, uploadID, "medium")
		require.NoError(t, err)
		assert.Equal(t, uploadID, session.UploadID)
		assert.Equal(t, domain.LevelMedium, session.Level)
		assert.Len(t, session.Questions, 2)
		assert.Equal(t, []string{"", ""}, session.Selected)
		assert.Empty(t, session.Notice)
		m.blobs.AssertNotCalled(t, "Get", ctx, prefix+"readme.txt")
		m.generator.AssertExpectations(t)
		m.sessions.AssertExpectations(t)
	})

	t.Run("ParseFailureIsNotAnError", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("List", ctx, prefix).Return([]string{prefix + "a.pdf"}, nil)
		m.blobs.On("Get", ctx, prefix+"a.pdf").Return(io.NopCloser(strings.NewReader("A")), nil)
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("doc", nil)
		m.generator.On("GenerateQuestions", ctx, "doc", domain.LevelEasy).
			Return(&domain.GenerationResult{Questions: []domain.MCQ{}, Status: domain.ParseNoJSON}, nil)
		m.sessions.On("Save", ctx, mock.Anything).Return(nil)

		session, err := svc.CreateQuiz(ctx, uploadID, domain.LevelEasy)
		require.NoError(t, err)
		assert.Empty(t, session.Questions)
		assert.Equal(t, "No valid JSON found in the response.", session.Notice)
	})

	t.Run("UnknownUpload", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("List", ctx, prefix).Return([]string{}, nil)

		_, err := svc.CreateQuiz(ctx, uploadID, domain.LevelEasy)
		assertDomainCode(t, err, domain.CodeUploadNotFound)
	})

	t.Run("MalformedUploadID", func(t *testing.T) {
		svc, m := newTestService()
		_, err := svc.CreateQuiz(ctx, "../secrets", domain.LevelEasy)
		assertDomainCode(t, err, domain.CodeUploadNotFound)
		m.blobs.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateQuiz(ctx, uploadID, "Impossible")
		assertDomainCode(t, err, domain.CodeInvalidInput)
	})

	t.Run("NoExtractableText", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("List", ctx, prefix).Return([]string{prefix + "scan.pdf", prefix + "broken.pdf"}, nil)
		m.blobs.On("Get", ctx, prefix+"broken.pdf").Return(io.NopCloser(strings.NewReader("B")), nil)
		m.blobs.On("Get", ctx, prefix+"scan.pdf").Return(io.NopCloser(strings.NewReader("S")), nil)
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("", errors.New("malformed xref")).Once()
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("   \n", nil).Once()

		_, err := svc.CreateQuiz(ctx, uploadID, domain.LevelEasy)
		assertDomainCode(t, err, domain.CodeNoDocuments)
		m.generator.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LLMFailure", func(t *testing.T) {
		svc, m := newTestService()
		m.blobs.On("List", ctx, prefix).Return([]string{prefix + "a.pdf"}, nil)
		m.blobs.On("Get", ctx, prefix+"a.pdf").Return(io.NopCloser(strings.NewReader("A")), nil)
		m.extractor.On("ExtractText", ctx, mock.Anything, int64(1)).Return("doc", nil)
		m.generator.On("GenerateQuestions", ctx, "doc", domain.LevelHard).
			Return(nil, errors.New("503 from upstream"))

		_, err := svc.CreateQuiz(ctx, uploadID, domain.LevelHard)
		assertDomainCode(t, err, domain.CodeLLMServiceError)
		m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestQuizService_GetQuiz(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	session := openSession("s1")
	m.sessions.On("FindByID", ctx, "s1").Return(session, nil)
	m.sessions.On("FindByID", ctx, "missing").Return(nil, nil)
	m.sessions.On("FindByID", ctx, "broken").Return(nil, errors.New("redis down"))

	got, err := svc.GetQuiz(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = svc.GetQuiz(ctx, "missing")
	assertDomainCode(t, err, domain.CodeSessionNotFound)

	_, err = svc.GetQuiz(ctx, "broken")
	assertDomainCode(t, err, domain.CodeInternal)
}

func TestQuizService_SelectAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, m := newTestService()
		m.sessions.On("FindByID", ctx, "s1").Return(openSession("s1"), nil)
		m.sessions.On("Save", ctx, mock.MatchedBy(func(s *domain.QuizSession) bool {
			return s.Selected[1] == "9"
		})).Return(nil)

		session, err := svc.SelectAnswer(ctx, "s1", 1, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "9"}, session.Selected)
		m.sessions.AssertExpectations(t)
	})

	t.Run("InvalidSelection", func(t *testing.T) {
		svc, m := newTestService()
		m.sessions.On("FindByID", ctx, "s1").Return(openSession("s1"), nil)

		_, err := svc.SelectAnswer(ctx, "s1", 5, "a")
		assertDomainCode(t, err, domain.CodeInvalidSelection)
		_, err = svc.SelectAnswer(ctx, "s1", 0, "z")
		assertDomainCode(t, err, domain.CodeInvalidSelection)
		m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("AfterSubmit", func(t *testing.T) {
		svc, m := newTestService()
		session := openSession("s1")
		session.Submitted = true
		m.sessions.On("FindByID", ctx, "s1").Return(session, nil)

		_, err := svc.SelectAnswer(ctx, "s1", 0, "a")
		assertDomainCode(t, err, domain.CodeAlreadySubmitted)
	})
}

func TestQuizService_SubmitQuiz(t *testing.T) {
	ctx := context.Background()

	t.Run("GradesAndRecords", func(t *testing.T) {
		svc, m := newTestService()
		m.sessions.On("FindByID", ctx, "s1").Return(openSession("s1"), nil)
		m.sessions.On("Save", ctx, mock.MatchedBy(func(s *domain.QuizSession) bool { return s.Submitted })).Return(nil)
		m.results.On("Save", ctx, mock.AnythingOfType("*domain.QuizResult")).Return(nil)

		result, err := svc.SubmitQuiz(ctx, "s1", map[int]string{0: "b", 1: "a"})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Score)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, "You scored 1 out of 2", result.Summary())
		assert.True(t, util.IsULID(result.ID))
		assert.Equal(t, time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC), result.SubmittedAt)
		require.Len(t, result.Review, 2)
		assert.True(t, result.Review[0].IsCorrect)
		assert.Equal(t, "6", result.Review[1].Selected)
		assert.Equal(t, "9", result.Review[1].CorrectAnswer)
		m.results.AssertExpectations(t)
	})

	t.Run("HistoryFailureStillReturnsResult", func(t *testing.T) {
		svc, m := newTestService()
		m.sessions.On("FindByID", ctx, "s1").Return(openSession("s1"), nil)
		m.sessions.On("Save", ctx, mock.Anything).Return(nil)
		m.results.On("Save", ctx, mock.Anything).Return(errors.New("db down"))

		result, err := svc.SubmitQuiz(ctx, "s1", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Score)
	})

	t.Run("SecondSubmit", func(t *testing.T) {
		svc, m := newTestService()
		session := openSession("s1")
		session.Grade(time.Now())
		m.sessions.On("FindByID", ctx, "s1").Return(session, nil)

		_, err := svc.SubmitQuiz(ctx, "s1", nil)
		assertDomainCode(t, err, domain.CodeAlreadySubmitted)
	})

	t.Run("InvalidAnswer", func(t *testing.T) {
		svc, m := newTestService()
		m.sessions.On("FindByID", ctx, "s1").Return(openSession("s1"), nil)

		_, err := svc.SubmitQuiz(ctx, "s1", map[int]string{0: "q"})
		assertDomainCode(t, err, domain.CodeInvalidSelection)
	})
}

func TestQuizService_ListResults(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	m.results.On("ListRecent", ctx, 20).Return([]*domain.QuizResult{{ID: "r1"}}, nil).Once()
	m.results.On("ListRecent", ctx, 100).Return([]*domain.QuizResult{}, nil).Once()
	m.results.On("ListRecent", ctx, 5).Return(nil, errors.New("boom")).Once()

	results, err := svc.ListResults(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.ListResults(ctx, 1000)
	require.NoError(t, err)

	_, err = svc.ListResults(ctx, 5)
	assertDomainCode(t, err, domain.CodeInternal)
	m.results.AssertExpectations(t)
}

// stubExtractor returns the stored bytes as text.
type stubExtractor struct{}

func (stubExtractor) ExtractText(_ context.Context, r io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	_, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return string(buf), nil
}

func TestQuizService_EndToEndWithFSStore(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	gen := new(MockQuestionGenerator)
	gen.On("GenerateQuestions", ctx, "alpha\n\nbeta", domain.LevelEasy).
		Return(&domain.GenerationResult{Questions: arithmeticQuestions(), Status: domain.ParseOK}, nil)

	svc := NewQuizService(blobs, stubExtractor{}, gen,
		repository.NewCacheSessionRepository(adapter.NewMemoryCacheAdapter(), time.Hour),
		repository.NewNoopResultRepository(), nil)

	upload, err := svc.Upload(ctx, []domain.UploadFile{pdfFile("b.pdf", "beta"), pdfFile("a.pdf", "alpha")})
	require.NoError(t, err)

	session, err := svc.CreateQuiz(ctx, upload.ID, domain.LevelEasy)
	require.NoError(t, err)

	_, err = svc.SelectAnswer(ctx, session.ID, 0, "b")
	require.NoError(t, err)
	result, err := svc.SubmitQuiz(ctx, session.ID, map[int]string{1: "c"})
	require.NoError(t, err)
	assert.Equal(t, "You scored 2 out of 2", result.Summary())

	stored, err := svc.GetQuiz(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.Submitted)

	_, err = svc.SubmitQuiz(ctx, session.ID, nil)
	assertDomainCode(t, err, domain.CodeAlreadySubmitted)
}
