// Package localfile implements the LocalFile connector (spec §4.4): walks a
// base directory, identifies each document by its canonical absolute path,
// and stamps relative path / file size / mime type / modified timestamp
// metadata. Grounded directly on original_source's
// connectors/localfile/connector.py os.walk + should_process_file +
// conversion-on-demand structure, translated into filepath.WalkDir.
package localfile

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/connectors"
	"qdrantloader/internal/fileconvert"
	"qdrantloader/internal/model"
)

// Connector walks BasePath and emits one Document per eligible file.
type Connector struct {
	projectID        string
	sourceName       string
	basePath         string
	includeExts      []string // empty = all
	excludePatterns  []string
	maxFileSize      int64
	enableConversion bool
	converter        *fileconvert.Service
}

// New builds a LocalFile connector from its project scope and settings bag.
func New(cfg connectors.Config, converter *fileconvert.Service) *Connector {
	s := cfg.Source.Settings
	maxSize := int64(50 * 1024 * 1024)
	if v, ok := s["max_file_size"].(int); ok {
		maxSize = int64(v)
	}
	if converter == nil {
		converter = fileconvert.New(nil, fileconvert.DefaultBudget())
	}
	return &Connector{
		projectID:        cfg.ProjectID,
		sourceName:       cfg.Source.Name,
		basePath:         connectors.StringSetting(s, "base_path", "."),
		includeExts:      connectors.StringSliceSetting(s, "include_extensions"),
		excludePatterns:  connectors.StringSliceSetting(s, "exclude_patterns"),
		maxFileSize:      maxSize,
		enableConversion: connectors.BoolSetting(s, "enable_file_conversion", true),
		converter:        converter,
	}
}

func (c *Connector) SourceType() string { return "localfile" }

// GetDocuments walks BasePath, producing Documents for each file that passes
// shouldProcess, converting recognized binary formats via the fileconvert
// collaborator per spec §4.4.
func (c *Connector) GetDocuments(ctx context.Context) ([]model.Document, error) {
	absBase, err := filepath.Abs(c.basePath)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "resolve localfile base_path", err)
	}

	var docs []model.Document
	walkErr := filepath.WalkDir(absBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !c.shouldProcess(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > c.maxFileSize {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(absBase, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		content := string(raw)
		contentType := strings.TrimPrefix(filepath.Ext(path), ".")
		meta := map[string]any{
			"relative_path":    relPath,
			"file_size":        info.Size(),
			"mime_type":        mime.TypeByExtension(filepath.Ext(path)),
			"modified_at":      info.ModTime(),
			"conversion_failed": false,
		}

		if c.enableConversion {
			if _, convertible := fileconvert.IsConvertible(path); convertible {
				res := c.converter.Convert(ctx, path, raw)
				content = res.Content
				contentType = res.ContentType
				meta["conversion_method"] = res.ConversionMethod
				meta["original_file_type"] = strings.TrimPrefix(filepath.Ext(path), ".")
				meta["conversion_failed"] = res.ConversionFailed
			}
		}

		docs = append(docs, model.Document{
			ID:            model.NewDocumentID("localfile", path, "", ""),
			SourceType:    "localfile",
			Source:        c.sourceName,
			ProjectID:     c.projectID,
			Title:         filepath.Base(path),
			Content:       content,
			ContentType:   contentType,
			URL:           "file://" + path,
			LastUpdatedAt: info.ModTime(),
			Metadata:      meta,
		})
		return nil
	})
	if walkErr != nil {
		return docs, apperror.Wrap(apperror.KindTransient, "walk localfile base_path", walkErr)
	}
	return docs, nil
}

func (c *Connector) shouldProcess(path string) bool {
	base := filepath.Base(path)
	for _, pat := range c.excludePatterns {
		if matched, _ := filepath.Match(pat, base); matched {
			return false
		}
		if strings.Contains(path, pat) {
			return false
		}
	}
	if len(c.includeExts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range c.includeExts {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}
