package chunking

import (
	"strings"
	"testing"

	"qdrantloader/internal/model"
)

func TestSelectStrategy(t *testing.T) {
	cases := map[string]string{
		"md":       "markdown",
		"markdown": "markdown",
		"html":     "html",
		"htm":      "html",
		"json":     "json",
		"go":       "code",
		"py":       "code",
		"txt":      "text",
		"":         "text",
	}
	for ct, want := range cases {
		if got := SelectStrategy(ct); got != want {
			t.Errorf("SelectStrategy(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestChunkTextRespectsMaxChunksPerDocument(t *testing.T) {
	content := strings.Repeat("word ", 20000)
	doc := &model.Document{ID: "doc-1", Content: content, ContentType: "txt"}
	chunks := Chunk(doc, Options{ChunkSize: 50, ChunkOverlap: 5, MaxChunksPerDocument: 3})
	if len(chunks) > 3 {
		t.Fatalf("expected at most 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d has ChunkIndex %d", i, c.ChunkIndex)
		}
		if c.TotalChunks != len(chunks) {
			t.Fatalf("chunk %d has TotalChunks %d, want %d", i, c.TotalChunks, len(chunks))
		}
		if c.ParentDocumentID != doc.ID {
			t.Fatalf("chunk %d missing parent back-reference", i)
		}
		if c.ChunkingStrategy() != "text" {
			t.Fatalf("chunk %d strategy = %q, want text", i, c.ChunkingStrategy())
		}
	}
}

func TestChunkMarkdownCarriesBreadcrumb(t *testing.T) {
	content := "# Title\n\nIntro text.\n\n## Section A\n\nBody A with enough content to stand alone.\n\n## Section B\n\nBody B.\n"
	doc := &model.Document{ID: "doc-2", Content: content, ContentType: "md"}
	chunks := Chunk(doc, Options{})
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	foundBreadcrumb := false
	for _, c := range chunks {
		if bc, ok := c.Metadata["breadcrumb"].([]string); ok && len(bc) > 0 {
			foundBreadcrumb = true
		}
	}
	if !foundBreadcrumb {
		t.Fatalf("expected at least one chunk with a breadcrumb, got %+v", chunks)
	}
}

func TestChunkHTMLFlagsCodeAndTables(t *testing.T) {
	content := `<html><body><section><h2>Intro</h2><p>text</p><pre><code>fmt.Println("hi")</code></pre><table><tr><td>1</td></tr></table></section></body></html>`
	doc := &model.Document{ID: "doc-3", Content: content, ContentType: "html"}
	chunks := Chunk(doc, Options{})
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	var sawCode, sawTable bool
	for _, c := range chunks {
		if v, _ := c.Metadata["has_code"].(bool); v {
			sawCode = true
		}
		if v, _ := c.Metadata["has_tables"].(bool); v {
			sawTable = true
		}
	}
	if !sawCode || !sawTable {
		t.Fatalf("expected has_code and has_tables flags, got chunks=%+v", chunks)
	}
}

func TestChunkHTMLFallsBackAboveThreshold(t *testing.T) {
	content := "<p>" + strings.Repeat("x", 200) + "</p>"
	doc := &model.Document{ID: "doc-4", Content: content, ContentType: "html"}
	chunks := Chunk(doc, Options{SimpleParsingThreshold: 10})
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunks")
	}
	for _, c := range chunks {
		if strings.Contains(c.Content, "<p>") {
			t.Fatalf("expected tags stripped in fallback, got %q", c.Content)
		}
	}
}

func TestChunkCodeExtractsFunctionName(t *testing.T) {
	content := "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n\nfunc World() string {\n\treturn \"world\"\n}\n"
	doc := &model.Document{ID: "doc-5", Content: content, ContentType: "go"}
	chunks := Chunk(doc, Options{})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	found := false
	for _, c := range chunks {
		if name, _ := c.Metadata["element_name"].(string); name == "Hello" || name == "World" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a function element name, got %+v", chunks)
	}
}

func TestChunkCodeFallsBackAboveASTThreshold(t *testing.T) {
	content := strings.Repeat("x = 1\n", 100)
	doc := &model.Document{ID: "doc-6", Content: content, ContentType: "go"}
	chunks := Chunk(doc, Options{MaxFileSizeForAST: 5, ChunkSize: 50})
	if len(chunks) == 0 {
		t.Fatal("expected fallback text chunks")
	}
	if chunks[0].ChunkingStrategy() != "code" {
		t.Fatalf("expected chunking_strategy stamped as code even on fallback, got %q", chunks[0].ChunkingStrategy())
	}
}

func TestChunkJSONExtractsFormatHints(t *testing.T) {
	content := `{"id": "123", "email": "a@example.com", "created_at": "2026-07-31T00:00:00Z", "nested": {"k": "v"}}`
	doc := &model.Document{ID: "doc-7", Content: content, ContentType: "json"}
	chunks := Chunk(doc, Options{})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].Metadata["root_type"] != "object" {
		t.Fatalf("expected root_type object, got %+v", chunks[0].Metadata)
	}
	hints, _ := chunks[0].Metadata["format_hints"].([]string)
	sawEmail := false
	for _, h := range hints {
		if h == "email" {
			sawEmail = true
		}
	}
	if !sawEmail {
		t.Fatalf("expected an email format hint, got %+v", chunks[0].Metadata)
	}
}

func TestChunkJSONFallsBackAboveThreshold(t *testing.T) {
	content := `{"a": 1}`
	doc := &model.Document{ID: "doc-8", Content: content, ContentType: "json"}
	chunks := Chunk(doc, Options{MaxJSONSizeForParsing: 2})
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunks")
	}
}

func TestChunkJSONFallsBackOnInvalidJSON(t *testing.T) {
	doc := &model.Document{ID: "doc-9", Content: "not json", ContentType: "json"}
	chunks := Chunk(doc, Options{})
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunks")
	}
}
