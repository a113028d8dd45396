package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// RedactWriter rewrites JSON log records before they reach the underlying writer,
// replacing the values found at the configured key paths with RedactedMarker.
// Paths are dot separated; a "*" segment matches any key at that level.
type RedactWriter struct {
	out   io.Writer
	paths [][]string
}

func NewRedactWriter(out io.Writer, paths []string) *RedactWriter {
	w := &RedactWriter{out: out}
	for _, p := range paths {
		if p == "" {
			continue
		}
		w.paths = append(w.paths, strings.Split(p, "."))
	}
	return w
}

func (w *RedactWriter) Write(p []byte) (int, error) {
	record := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		// not a JSON record, leave it alone
		return w.out.Write(p)
	}

	redacted := false
	for _, path := range w.paths {
		if redactPath(record, path) {
			redacted = true
		}
	}
	if !redacted {
		return w.out.Write(p)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}
	if _, err := w.out.Write(append(line, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}

func redactPath(node map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}

	head, rest := path[0], path[1:]
	changed := false
	for key, value := range node {
		if head != "*" && head != key {
			continue
		}
		if len(rest) == 0 {
			node[key] = RedactedMarker
			changed = true
			continue
		}
		if child, ok := value.(map[string]any); ok && redactPath(child, rest) {
			changed = true
		}
	}
	return changed
}
