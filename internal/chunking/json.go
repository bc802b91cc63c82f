package chunking

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// chunkJSON implements spec §4.2's JSON strategy: above
// max_json_size_for_parsing, fall back to text chunking. Otherwise parse
// into a generic tree and recursively extract object/array elements up to
// max_recursion_depth/max_objects_to_process/max_object_keys_to_process/
// max_array_items_per_chunk, grouping small elements until a ~200 char
// minimum and splitting oversized ones via the Default text strategy. No
// pack repo walks a JSON document tree for chunking purposes (the
// dependency a Python config_loader would use, a schema/tree library, has
// no Go analogue in the examples), so this strategy is stdlib
// encoding/json plus a hand-rolled recursive walk — the documented stdlib
// exception for this strategy.
func chunkJSON(content string, opts Options) []piece {
	if len(content) > opts.MaxJSONSizeForParsing {
		return chunkText(content, opts)
	}

	var root any
	if err := json.Unmarshal([]byte(content), &root); err != nil {
		return chunkText(content, opts)
	}

	w := &jsonWalker{opts: opts}
	w.walk(root, "$", 0)

	if len(w.elements) == 0 {
		return chunkText(content, opts)
	}

	const minChunkSize = 200
	var out []piece
	var group strings.Builder
	var groupMeta []map[string]any
	flush := func() {
		if group.Len() == 0 {
			return
		}
		var hints []string
		seenHint := map[string]bool{}
		for _, m := range groupMeta {
			if h, _ := m["format_hint"].(string); h != "" && !seenHint[h] {
				seenHint[h] = true
				hints = append(hints, h)
			}
		}
		out = append(out, piece{content: group.String(), metadata: map[string]any{
			"root_type":     w.rootType,
			"grouped_paths": pathsOf(groupMeta),
			"format_hints":  hints,
		}})
		group.Reset()
		groupMeta = nil
	}
	for _, el := range w.elements {
		if len(el.text) > opts.MaxElementSize {
			flush()
			for _, sub := range chunkText(el.text, opts) {
				meta := cloneMeta(el.meta)
				for k, v := range sub.metadata {
					meta[k] = v
				}
				out = append(out, piece{content: sub.content, metadata: meta})
			}
			continue
		}
		group.WriteString(el.text)
		group.WriteString("\n")
		groupMeta = append(groupMeta, el.meta)
		if group.Len() >= minChunkSize {
			flush()
		}
	}
	flush()
	return out
}

type jsonElement struct {
	text string
	meta map[string]any
}

type jsonWalker struct {
	opts      Options
	elements  []jsonElement
	rootType  string
	objects   int
	maxDepth  int
	truncated bool
}

func (w *jsonWalker) walk(v any, path string, depth int) {
	if w.rootType == "" {
		w.rootType = jsonTypeOf(v)
	}
	if depth > w.opts.MaxRecursionDepthJSON {
		w.addLeaf(v, path, depth, "max_depth")
		return
	}
	switch t := v.(type) {
	case map[string]any:
		if w.objects >= w.opts.MaxObjectsToProcess {
			return
		}
		w.objects++
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		if len(keys) > w.opts.MaxObjectKeysToProcess {
			keys = keys[:w.opts.MaxObjectKeysToProcess]
		}
		for _, k := range keys {
			w.walk(t[k], path+"."+k, depth+1)
		}
	case []any:
		items := t
		if len(items) > w.opts.MaxArrayItemsPerChunk {
			items = items[:w.opts.MaxArrayItemsPerChunk]
		}
		for i, item := range items {
			w.walk(item, path+"["+strconv.Itoa(i)+"]", depth+1)
		}
	default:
		w.addLeaf(v, path, depth, "")
	}
}

func (w *jsonWalker) addLeaf(v any, path string, depth int, note string) {
	b, err := json.Marshal(v)
	text := string(b)
	if err != nil {
		text = "null"
	}
	meta := map[string]any{
		"path":          path,
		"depth":         depth,
		"data_type":     jsonTypeOf(v),
		"key_pattern":   keyPatternOf(path),
		"format_hint":   formatHintOf(v),
		"truncate_note": note,
	}
	w.elements = append(w.elements, jsonElement{text: path + "=" + text, meta: meta})
}

func jsonTypeOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

var (
	snakeCasePattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)+$`)
	camelCasePattern = regexp.MustCompile(`^[a-z]+([A-Z][a-z0-9]*)+$`)
	idFieldPattern   = regexp.MustCompile(`(?i)(^id$|_id$|Id$)`)
	timeFieldPattern = regexp.MustCompile(`(?i)(time|date|_at$|At$)`)
)

// keyPatternOf inspects the final path segment for spec §4.2's named
// key-pattern hints (snake_case, camelCase, id_fields, timestamp_fields).
func keyPatternOf(path string) string {
	seg := path
	if i := strings.LastIndexAny(path, ".["); i >= 0 {
		seg = path[i+1:]
	}
	seg = strings.TrimSuffix(seg, "]")
	switch {
	case idFieldPattern.MatchString(seg):
		return "id_field"
	case timeFieldPattern.MatchString(seg):
		return "timestamp_field"
	case snakeCasePattern.MatchString(seg):
		return "snake_case"
	case camelCasePattern.MatchString(seg):
		return "camel_case"
	default:
		return ""
	}
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlHintPattern = regexp.MustCompile(`^https?://`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	uuidPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// formatHintOf classifies a scalar leaf value's string form per spec
// §4.2's format hints (email, url, iso_date, uuid) or "" if none match.
func formatHintOf(v any) string {
	s, ok := v.(string)
	if !ok {
		if b, ok := v.(bool); ok {
			_ = b
			return "boolean_flag"
		}
		return ""
	}
	switch {
	case emailPattern.MatchString(s):
		return "email"
	case urlHintPattern.MatchString(s):
		return "url"
	case isoDatePattern.MatchString(s):
		return "iso_date"
	case uuidPattern.MatchString(s):
		return "uuid"
	default:
		return ""
	}
}

func pathsOf(metas []map[string]any) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		if p, ok := m["path"].(string); ok {
			out = append(out, p)
		}
	}
	return out
}
