package fileconvert

import (
	"context"
	"testing"
)

func TestIsConvertible(t *testing.T) {
	if ft, ok := IsConvertible("report.pdf"); !ok || ft != "pdf" {
		t.Fatalf("expected pdf convertible, got %q, %v", ft, ok)
	}
	if _, ok := IsConvertible("notes.md"); ok {
		t.Fatal("expected .md to not be convertible")
	}
}

func TestConvertFallsBackOnNoConverter(t *testing.T) {
	svc := New(nil, DefaultBudget())
	res := svc.Convert(context.Background(), "report.pdf", []byte("binary"))
	if !res.ConversionFailed {
		t.Fatal("expected fallback with no converter registered")
	}
	if res.ContentType != "md" {
		t.Fatalf("expected fallback content type md, got %q", res.ContentType)
	}
	if res.ConversionMethod != "conversion_fallback" {
		t.Fatalf("expected conversion_fallback method, got %q", res.ConversionMethod)
	}
}

type stubConverter struct {
	out string
	err error
}

func (s stubConverter) Convert(ctx context.Context, fileType string, raw []byte, budget Budget) (string, error) {
	return s.out, s.err
}

func TestConvertSucceedsWithWorkingConverter(t *testing.T) {
	svc := New(stubConverter{out: "# Title\n\nBody"}, DefaultBudget())
	res := svc.Convert(context.Background(), "doc.docx", []byte("x"))
	if res.ConversionFailed {
		t.Fatal("did not expect a failure")
	}
	if res.Content != "# Title\n\nBody" {
		t.Fatalf("unexpected content: %q", res.Content)
	}
	if res.ConversionMethod != "converted" {
		t.Fatalf("expected converted method, got %q", res.ConversionMethod)
	}
}
