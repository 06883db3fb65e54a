package parser

import (
	"errors"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperkg/paperkg/internal/apperr"
)

var errEmptyExtraction = errors.New("no extractable text found in pdf")

// LocalParser extracts plain text directly from a PDF's content streams, no
// external service involved. It is the degraded-quality fallback used when
// the external parser is unreachable or over quota.
type LocalParser struct{}

// Parse reads every page's plain text and joins them with blank lines.
func (p *LocalParser) Parse(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", apperr.Wrap("open pdf locally", apperr.KindValidation, err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", apperr.Wrap("extract pdf text locally", apperr.KindValidation, errEmptyExtraction)
	}
	return sb.String(), nil
}
