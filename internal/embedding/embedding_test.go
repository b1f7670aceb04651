package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 1}, b: []float32{-1, -1}, want: -1},
		{name: "empty", a: nil, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch truncates", a: []float32{1, 0, 5}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHashProvider(t *testing.T) {
	h := NewHash(64)
	ctx := context.Background()

	blank, err := h.Embed(ctx, "   \n\t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blank) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(blank))
	}
	for _, v := range blank {
		if v != 0 {
			t.Fatalf("expected zero vector for blank input")
		}
	}

	a, _ := h.Embed(ctx, "Healthcare and Wellness")
	b, _ := h.Embed(ctx, "healthcare and wellness")
	if Cosine(a, b) < 0.999 {
		t.Fatalf("expected case-insensitive identical vectors, got %v", Cosine(a, b))
	}

	wide := NewHash(0)
	a, _ = wide.Embed(ctx, "Healthcare and Wellness")
	c, _ := wide.Embed(ctx, "Healthcare and Wellness services")
	d, _ := wide.Embed(ctx, "Finance Economics")
	if Cosine(a, c) <= Cosine(a, d) {
		t.Fatalf("expected shared words to be more similar: %v <= %v", Cosine(a, c), Cosine(a, d))
	}
}

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Dimension() int { return 3 }

func (p *countingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCached(inner, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.Embed(ctx, "same text"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", inner.calls)
	}

	if _, err := cached.Embed(ctx, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected blank text to skip backend, got %d calls", inner.calls)
	}

	_, _ = cached.Embed(ctx, "second")
	_, _ = cached.Embed(ctx, "third")
	if got := cached.(*Cached).Len(); got != 1 {
		t.Fatalf("expected cache reset when full, got %d entries", got)
	}

	failing := NewCached(&countingProvider{err: errors.New("boom")}, 2)
	if _, err := failing.Embed(ctx, "x"); err == nil {
		t.Fatalf("expected error to propagate")
	}

	if NewCached(inner, 0) != Provider(inner) {
		t.Fatalf("expected non-positive size to disable caching")
	}
}
