package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
)

// FileReader reads a JSON document holding either an array of job records
// or an object with an "items" array.
type FileReader struct {
	Path string
}

func NewFileReader(path string) *FileReader {
	return &FileReader{Path: path}
}

func (f *FileReader) All(ctx context.Context) iter.Seq2[*Job, error] {
	return func(yield func(*Job, error) bool) {
		items, err := f.items()
		if err != nil {
			yield(nil, sourceError(err))
			return
		}

		for i, item := range items {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			job, err := DecodeJob(item)
			if err != nil {
				err = fmt.Errorf("%s: record %d: %w", f.Path, i, err)
			}
			if !yield(job, err) {
				return
			}
		}
	}
}

func (f *FileReader) items() ([]any, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", f.Path, err)
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("catalog file %s: expected an array of jobs or an object with items", f.Path)
}
