// Package extraction turns uploaded documents into raw text.
//
// PDF documents are parsed page by page; anything else must be valid UTF-8
// text (txt, markdown, source files). Further binary formats would plug in
// behind the same function without changing callers.
package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrExtractionFailed indicates the document could not be read.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrNotText indicates the document is not valid text.
	ErrNotText = errors.New("document is not valid UTF-8 text")
)

// maxDocumentSize caps uploads at 10MB to bound memory per ingestion.
const maxDocumentSize = 10 << 20

// pdfMagic is the PDF file header.
var pdfMagic = []byte("%PDF-")

// ExtractText reads the document at path and returns its raw text content.
func ExtractText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if info.Size() > maxDocumentSize {
		return "", fmt.Errorf("%w: document too large: %d bytes (max %d)", ErrExtractionFailed, info.Size(), maxDocumentSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if bytes.HasPrefix(content, pdfMagic) {
		return extractPDF(path)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, ErrNotText)
	}

	return string(content), nil
}

// extractPDF returns the concatenated plain text of all pages.
func extractPDF(path string) (text string, err error) {
	// The parser panics on some corrupt files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parsing pdf: %v", ErrExtractionFailed, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: reading pdf text: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: reading pdf text: %v", ErrExtractionFailed, err)
	}

	return buf.String(), nil
}
