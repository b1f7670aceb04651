package matching

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

var topics = []string{"technology", "arts", "healthcare", "business"}

// topicProvider puts each known topic on its own axis and everything else
// on a shared "misc" axis.
type topicProvider struct {
	failOn string
}

var errEmbed = errors.New("embedding backend unavailable")

func (p topicProvider) Dimension() int { return len(topics) + 1 }

func (p topicProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.failOn != "" && strings.Contains(text, p.failOn) {
		return nil, errEmbed
	}

	vec := make([]float32, p.Dimension())
	if strings.TrimSpace(text) == "" {
		return vec, nil
	}

	lower := strings.ToLower(text)
	found := false
	for i, topic := range topics {
		if strings.Contains(lower, topic) {
			vec[i] = 1
			found = true
		}
	}
	if !found {
		vec[len(topics)] = 1
	}
	return vec, nil
}

type failingReader struct {
	jobs []*catalog.Job
}

func (r failingReader) All(context.Context) iter.Seq2[*catalog.Job, error] {
	return func(yield func(*catalog.Job, error) bool) {
		if !yield(nil, errors.New("corrupt record")) {
			return
		}
		for _, job := range r.jobs {
			if !yield(job, nil) {
				return
			}
		}
	}
}

// generatedReader yields n jobs, one in every `every` of them coded RIA and
// the rest coded SEC.
type generatedReader struct {
	n, every int
}

func (r generatedReader) All(ctx context.Context) iter.Seq2[*catalog.Job, error] {
	return func(yield func(*catalog.Job, error) bool) {
		for i := range r.n {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			code := "SEC"
			if i%r.every == 0 {
				code = "RIA"
			}
			if !yield(techJob(strconv.Itoa(i), code), nil) {
				return
			}
		}
	}
}

type brokenSource struct{}

func (brokenSource) All(context.Context) iter.Seq2[*catalog.Job, error] {
	return func(yield func(*catalog.Job, error) bool) {
		yield(nil, &catalog.SourceError{Err: errors.New("connection refused")})
	}
}
