package catalog

import (
	"context"
	"errors"
	"iter"
)

// Reader streams catalog records. A (nil, err) pair reports a record that
// could not be read and iteration goes on. Failures of the source itself
// are yielded as *SourceError and end the iteration.
type Reader interface {
	All(ctx context.Context) iter.Seq2[*Job, error]
}

// SourceError is a failure to reach or read the catalog source, as opposed
// to a single bad record.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }

func sourceError(err error) error {
	return &SourceError{Err: err}
}

// SliceReader serves jobs from memory.
type SliceReader []*Job

func (s SliceReader) All(ctx context.Context) iter.Seq2[*Job, error] {
	return func(yield func(*Job, error) bool) {
		for _, job := range s {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(job, nil) {
				return
			}
		}
	}
}

// Collect drains a reader into a Jobs list. Record errors are passed to
// onError, when set, and skipped. Source errors and a cancelled context
// abort collection.
func Collect(ctx context.Context, r Reader, onError func(error)) (*Jobs, error) {
	jobs, _, err := Stream(ctx, r, nil, onError)
	return jobs, err
}

// Stream reads the whole catalog but holds on only to the jobs keep
// accepts; a nil keep accepts every job. The returned count covers every
// job read, kept or not.
func Stream(ctx context.Context, r Reader, keep func(*Job) bool, onError func(error)) (*Jobs, int, error) {
	jobs := &Jobs{}
	read := 0
	for job, err := range r.All(ctx) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, read, ctxErr
			}
			var srcErr *SourceError
			if errors.As(err, &srcErr) {
				return nil, read, err
			}
			if onError != nil {
				onError(err)
			}
			continue
		}
		read++
		if keep == nil || keep(job) {
			jobs.Items = append(jobs.Items, job)
		}
	}
	return jobs, read, nil
}
