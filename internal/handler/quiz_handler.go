package handler

import (
	"context"
	"io"
	"mime/multipart"

	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/dto"
	"pdf-quiz/internal/middleware"
	"pdf-quiz/internal/service"
	"pdf-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
	health    HealthChecker
}

// NewQuizHandler creates a new QuizHandler instance. health may be nil.
func NewQuizHandler(service service.QuizService, health HealthChecker) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validation.NewValidator(),
		health:    health,
	}
}

// RegisterRoutes mounts the quiz API under router.
func (h *QuizHandler) RegisterRoutes(router fiber.Router) {
	vm := middleware.NewValidationMiddleware()

	router.Get("/health", h.Health)
	router.Post("/uploads", h.Upload)
	router.Post("/quizzes", h.CreateQuiz)
	router.Get("/quizzes/:id", vm.ValidateSessionID(), h.GetQuiz)
	router.Put("/quizzes/:id/answers/:index", vm.ValidateSessionID(), h.SelectAnswer)
	router.Post("/quizzes/:id/submit", vm.ValidateSessionID(), h.SubmitQuiz)
	router.Get("/results", vm.ValidateResultsLimit(), h.ListResults)
}

func toUploadFile(fh *multipart.FileHeader) domain.UploadFile {
	return domain.UploadFile{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// Upload godoc
// @Summary Upload PDF documents
// @Description Stores one or more PDFs and returns an upload id used to generate quizzes
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF files"
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /uploads [post]
func (h *QuizHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return domain.ValidationErrors{domain.NewMissingFieldError("files")}
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return domain.ValidationErrors{domain.NewMissingFieldError("files")}
	}

	files := make([]domain.UploadFile, len(headers))
	for i, fh := range headers {
		files[i] = toUploadFile(fh)
	}

	upload, err := h.service.Upload(c.UserContext(), files)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{
		UploadID: upload.ID,
		Files:    upload.Files,
	})
}

// CreateQuiz godoc
// @Summary Generate a quiz
// @Description Extracts the text of an upload and asks the LLM for multiple-choice questions
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.CreateQuizRequest true "Upload and difficulty"
// @Success 201 {object} dto.QuizSessionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *fiber.Ctx) error {
	var req dto.CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	if errs := h.validator.ValidateCreateQuizRequest(req.UploadID, req.Level); len(errs) > 0 {
		return errs
	}
	level, _ := domain.ParseLevel(req.Level)

	session, err := h.service.CreateQuiz(c.UserContext(), req.UploadID, level)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewQuizSessionResponse(session))
}

// GetQuiz godoc
// @Summary Get a quiz session
// @Description Returns questions and current selections without the answer key
// @Tags quiz
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.QuizSessionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	session, err := h.service.GetQuiz(c.UserContext(), c.Locals(middleware.LocalSessionID).(string))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizSessionResponse(session))
}

// SelectAnswer godoc
// @Summary Select an answer
// @Description Records the option chosen for one question
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param index path int true "Question index"
// @Param request body dto.SelectAnswerRequest true "Option key"
// @Success 200 {object} dto.QuizSessionResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /quizzes/{id}/answers/{index} [put]
func (h *QuizHandler) SelectAnswer(c *fiber.Ctx) error {
	var req dto.SelectAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Invalid request body")
	}
	index, errs := h.validator.ValidateSelectAnswer(c.Params("index"), req.Option)
	if len(errs) > 0 {
		return errs
	}

	session, err := h.service.SelectAnswer(c.UserContext(), c.Locals(middleware.LocalSessionID).(string), index, req.Option)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizSessionResponse(session))
}

// SubmitQuiz godoc
// @Summary Submit a quiz
// @Description Grades the session and returns the score with a per-question review
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.SubmitQuizRequest false "Answers to apply before grading"
// @Success 200 {object} dto.QuizResultResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /quizzes/{id}/submit [post]
func (h *QuizHandler) SubmitQuiz(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.NewInvalidInputError("Invalid request body")
		}
	}
	if errs := h.validator.ValidateSubmitAnswers(req.Answers); len(errs) > 0 {
		return errs
	}

	result, err := h.service.SubmitQuiz(c.UserContext(), c.Locals(middleware.LocalSessionID).(string), req.Answers)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResultResponse(result))
}

// ListResults godoc
// @Summary List recent results
// @Description Returns the most recent graded quizzes, newest first
// @Tags results
// @Produce json
// @Param limit query int false "Maximum number of results (1-100)"
// @Success 200 {object} dto.ResultsResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /results [get]
func (h *QuizHandler) ListResults(c *fiber.Ctx) error {
	results, err := h.service.ListResults(c.UserContext(), c.Locals(middleware.LocalResultsLimit).(int))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewResultsResponse(results))
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *QuizHandler) Health(c *fiber.Ctx) error {
	if h.health == nil {
		return c.JSON(dto.HealthResponse{Status: "ok"})
	}
	if err := h.health.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded", Cache: err.Error()})
	}
	return c.JSON(dto.HealthResponse{Status: "ok", Cache: "ok"})
}
