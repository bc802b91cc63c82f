// Package fileconvert is the file-conversion collaborator connectors call
// when they encounter a non-text format they recognize as convertible
// (spec §4.4): on success content becomes markdown and metadata gains
// conversion_method/original_file_type; on failure a short explanatory
// fallback document is produced with conversion_failed=true. Grounded on
// original_source's localfile/connector.py markitdown/markitdown_fallback
// handling, reimplemented here since the underlying markitdown library has
// no Go equivalent in the example pack.
package fileconvert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"qdrantloader/internal/apperror"
)

// convertibleExtensions lists the binary formats this collaborator claims to
// convert (spec §4.4: "pdf, docx, xlsx, pptx, etc.").
var convertibleExtensions = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".doc":  "doc",
	".xlsx": "xlsx",
	".xls":  "xls",
	".pptx": "pptx",
	".ppt":  "ppt",
}

// IsConvertible reports whether path has an extension this collaborator
// recognizes as convertible, returning the normalized file-type label too.
func IsConvertible(path string) (fileType string, ok bool) {
	ext := strings.ToLower(filepath.Ext(path))
	ft, ok := convertibleExtensions[ext]
	return ft, ok
}

// Budget carries the per-call limits spec §4.4 names.
type Budget struct {
	MaxFileSize       int64
	ConversionTimeout time.Duration
}

// DefaultBudget matches the spec's named defaults for file conversion.
func DefaultBudget() Budget {
	return Budget{MaxFileSize: 50 * 1024 * 1024, ConversionTimeout: 30 * time.Second}
}

// Result is the outcome of a conversion attempt.
type Result struct {
	Content          string
	ContentType      string // always "md"
	ConversionMethod string // "converted" or "conversion_fallback"
	ConversionFailed bool
}

// Converter turns raw bytes of a recognized convertible format into
// markdown. It is the seam a real document-conversion backend (the
// teacher's stack has none) would occupy; the default, PlainTextExtractor,
// converts nothing.
type Converter interface {
	Convert(ctx context.Context, fileType string, raw []byte, budget Budget) (string, error)
}

// PlainTextExtractor is the default Converter: it cannot parse binary
// document formats, so every call fails, driving callers onto the spec's
// documented fallback path. This keeps the conversion seam exercised and
// testable without bundling a real pdf/docx/xlsx/pptx parser (none of the
// example repos ship one).
type PlainTextExtractor struct{}

func (PlainTextExtractor) Convert(ctx context.Context, fileType string, raw []byte, budget Budget) (string, error) {
	if int64(len(raw)) > budget.MaxFileSize {
		return "", apperror.New(apperror.KindValidation, fmt.Sprintf("file exceeds max_file_size for %s conversion", fileType))
	}
	return "", apperror.New(apperror.KindIntegrity, fmt.Sprintf("no converter available for %s", fileType))
}

// Service runs a Converter and produces the markdown-or-fallback Result
// spec §4.4 requires, regardless of whether the underlying conversion
// succeeds.
type Service struct {
	converter Converter
	budget    Budget
}

// New builds a Service. A nil converter defaults to PlainTextExtractor.
func New(converter Converter, budget Budget) *Service {
	if converter == nil {
		converter = PlainTextExtractor{}
	}
	return &Service{converter: converter, budget: budget}
}

// Convert attempts conversion within the configured timeout budget. On
// failure it returns a fallback document containing a short explanation
// instead of an error, matching spec §4.4's "fallback document... short
// explanation" requirement — callers always get a usable Document.
func (s *Service) Convert(ctx context.Context, path string, raw []byte) Result {
	fileType, ok := IsConvertible(path)
	if !ok {
		fileType = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget.ConversionTimeout)
	defer cancel()

	content, err := s.converter.Convert(ctx, fileType, raw, s.budget)
	if err != nil {
		return Result{
			Content:          fmt.Sprintf("# %s\n\nThis document could not be converted to markdown: %v\n", filepath.Base(path), err),
			ContentType:      "md",
			ConversionMethod: "conversion_fallback",
			ConversionFailed: true,
		}
	}
	return Result{
		Content:          content,
		ContentType:      "md",
		ConversionMethod: "converted",
		ConversionFailed: false,
	}
}
