package pdftext

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pdf-quiz/internal/domain"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Extractor concatenates the plain text of every page of a PDF.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractText reads pages in order. A page that fails to decode is skipped and logged.
func (e *Extractor) ExtractText(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to read PDF: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Skipping unreadable PDF page", zap.Int("page", i), zap.Error(err))
			continue
		}
		sb.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
	}
	e.logger.Debug("Extracted PDF text", zap.Int("pages", numPages), zap.Int("length", sb.Len()))
	return sb.String(), nil
}

var _ domain.TextExtractor = (*Extractor)(nil)
