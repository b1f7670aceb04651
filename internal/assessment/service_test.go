package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/session"
)

type memoryRecorder struct {
	mu      sync.Mutex
	results map[string]*Result
}

func (r *memoryRecorder) SaveResult(_ context.Context, res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]*Result{}
	}
	r.results[res.SessionID] = res
	return nil
}

func (r *memoryRecorder) LatestResult(_ context.Context, sessionID string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[sessionID]
	if !ok {
		return nil, errors.New("no result")
	}
	return res, nil
}

func newTestService(t *testing.T, store session.Store[State], opts ...ServiceOption) *Service {
	t.Helper()
	e := newTestEngine(t, DefaultConfig(), nil)
	return NewService(e, store, session.NewLocal(), nil, opts...)
}

func complete(t *testing.T, svc *Service, id string, choose chooser) {
	t.Helper()
	ctx := context.Background()

	q, err := svc.CurrentQuestion(ctx, id)
	require.NoError(t, err)
	for i := 0; q != nil; i++ {
		require.Less(t, i, 200, "assessment did not finish")

		st, err := svc.State(ctx, id)
		require.NoError(t, err)

		res, err := svc.SubmitAnswer(ctx, id, q.ID, choose(st, q))
		require.NoError(t, err)
		require.True(t, res.Accepted)
		q = res.NextQuestion
	}
}

func TestServiceFlow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := map[string]session.Store[State]{
		"memory": NewMemoryStore(),
		"redis":  session.NewRedis[State](client, "", time.Hour, nil),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(t, store, WithIDGenerator(func() string { return "fixed-" + name }))

			st, q, err := svc.Start(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, "fixed-"+name, st.SessionID)
			require.NotNil(t, q)
			assert.Equal(t, 1, q.ID)

			complete(t, svc, st.SessionID, overrides(prefer("RIASEC"), map[int]string{1: "B"}))

			got, err := svc.State(ctx, st.SessionID)
			require.NoError(t, err)
			assert.Equal(t, PhaseFinished, got.Phase)
			assert.Equal(t, []string{"R-I"}, got.PairsServed)
			assert.Len(t, got.Answers, 32)

			res, err := svc.Finalize(ctx, st.SessionID)
			require.NoError(t, err)
			assert.Equal(t, "RIA", res.CategoryCode)

			again, err := svc.Finalize(ctx, st.SessionID)
			require.NoError(t, err)
			assert.Equal(t, res.CategoryCode, again.CategoryCode)
		})
	}
}

func TestServiceStaleSubmissionReturnsExpected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore())

	st, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, st.SessionID, 1, "A")
	require.NoError(t, err)

	// Replaying the first answer is stale.
	res, err := svc.SubmitAnswer(ctx, st.SessionID, 1, "A")
	require.ErrorIs(t, err, ErrStaleSubmission)
	assert.True(t, IsRetryable(err))
	require.NotNil(t, res)
	assert.False(t, res.Accepted)
	require.NotNil(t, res.NextQuestion)
	assert.Equal(t, 2, res.NextQuestion.ID)

	got, err := svc.State(ctx, st.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Answers, 1)
	assert.Equal(t, 2, got.Cursor)
}

func TestServiceStoresTieBreakReinjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := newTestService(t, store)

	st, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	// A drained tie-break round that is still tied stays in the tie-break phase.
	st.Phase = PhaseTieBreak
	st.Scores = riasec.Scores{"R": 10, "I": 10, "A": 4, "S": 2, "E": 1, "C": 0}
	require.NoError(t, store.Set(ctx, "s1", st))

	q, err := svc.CurrentQuestion(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, q)

	got, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseTieBreak, got.Phase)
	assert.Equal(t, 1, got.Rounds)
	assert.Contains(t, got.TieQueue, q.ID)

	again, err := svc.CurrentQuestion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, q.ID, again.ID)
}

func TestServiceUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore())

	_, err := svc.CurrentQuestion(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.SubmitAnswer(ctx, "nope", 1, "A")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Finalize(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceFinalizeBeforeFinish(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore())

	st, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, st.SessionID)
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestServiceFinalizePersistsAndClears(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	recorder := &memoryRecorder{}
	svc := newTestService(t, store, WithRecorder(recorder))

	st, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	complete(t, svc, st.SessionID, prefer("RIASEC"))

	res, err := svc.Finalize(ctx, st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "RIA", res.CategoryCode)
	assert.Equal(t, 0, store.Len())

	saved, err := recorder.LatestResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, res, saved)

	again, err := svc.Finalize(ctx, st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.CategoryCode, again.CategoryCode)
}

func TestServiceRestartResetsState(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore())

	_, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, "s1", 1, "A")
	require.NoError(t, err)

	st, q, err := svc.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, st.Answers)
	assert.Equal(t, 1, q.ID)

	require.NoError(t, svc.Clear(ctx, "s1"))
	_, err = svc.State(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceSerializesWriters(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, NewMemoryStore())

	_, _, err := svc.Start(ctx, "s1")
	require.NoError(t, err)

	// Concurrent answers to question 1: exactly one is accepted.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		stale    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SubmitAnswer(ctx, "s1", 1, "A")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Accepted:
				accepted++
			case errors.Is(err, ErrStaleSubmission):
				stale++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 7, stale)
}
