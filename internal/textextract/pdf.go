package textextract

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
)

// ErrUnreadablePDF is returned when a PDF cannot be parsed.
var ErrUnreadablePDF = errors.New("unreadable PDF")

// ErrTooManyPages is returned when a PDF exceeds the configured page limit.
var ErrTooManyPages = errors.New("PDF exceeds page limit")

// PageCount returns the number of pages in a PDF document.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, errors.Wrapf(ErrUnreadablePDF, "%v", err)
	}
	return n, nil
}

// CheckPDF rejects PDFs that cannot be parsed, have no pages, or exceed
// maxPages (0 disables the limit).
func CheckPDF(data []byte, maxPages int) (int, error) {
	n, err := PageCount(data)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.Wrap(ErrUnreadablePDF, "no pages")
	}
	if maxPages > 0 && n > maxPages {
		return n, errors.Wrapf(ErrTooManyPages, "%d pages, limit %d", n, maxPages)
	}
	return n, nil
}
