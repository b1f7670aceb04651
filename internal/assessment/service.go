package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/logger"
	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/session"
)

// ResultRecorder persists finalized results.
type ResultRecorder interface {
	SaveResult(ctx context.Context, res *Result) error
	LatestResult(ctx context.Context, sessionID string) (*Result, error)
}

// SubmitResult is returned by Service.SubmitAnswer. NextQuestion is nil once
// the assessment is finished.
type SubmitResult struct {
	Accepted     bool
	Phase        Phase
	NextQuestion *questions.Question
	LiveScores   riasec.Scores
}

// Service runs assessments for many sessions. Each call holds the session
// lock while it loads, mutates and stores the state.
type Service struct {
	engine   *Engine
	store    session.Store[State]
	locker   session.Locker
	recorder ResultRecorder
	logger   *zap.Logger
	newID    func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder persists finalized results and clears the session state
// afterwards.
func WithRecorder(r ResultRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithIDGenerator overrides uuid session ids.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a service. A nil locker serializes in process.
func NewService(engine *Engine, store session.Store[State], locker session.Locker, log *zap.Logger, opts ...ServiceOption) *Service {
	if locker == nil {
		locker = session.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		engine: engine,
		store:  store,
		locker: locker,
		logger: log,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemoryStore returns an in-process state store.
func NewMemoryStore() *session.Memory[State] {
	return session.NewMemory((*State).Clone)
}

// Start begins a new assessment. An empty id gets a generated one; an
// existing session with the same id is restarted.
func (s *Service) Start(ctx context.Context, sessionID string) (*State, *questions.Question, error) {
	if sessionID == "" {
		sessionID = s.newID()
	}

	var (
		st *State
		q  *questions.Question
	)
	err := s.withLock(ctx, sessionID, func() error {
		st = s.engine.Start(sessionID, nil)

		var err error
		if q, err = s.engine.Current(st); err != nil {
			return err
		}
		return s.store.Set(ctx, sessionID, st)
	})
	if err != nil {
		return nil, nil, err
	}

	logger.ForSession(s.logger, sessionID, string(st.Phase)).Info("assessment started")
	return st.Clone(), q, nil
}

// State returns a copy of the stored state.
func (s *Service) State(ctx context.Context, sessionID string) (*State, error) {
	return s.load(ctx, sessionID)
}

// CurrentQuestion returns the question to answer next, moving to the next
// phase when the current one is exhausted. Nil means the assessment is
// finished.
func (s *Service) CurrentQuestion(ctx context.Context, sessionID string) (*questions.Question, error) {
	var q *questions.Question
	err := s.withLock(ctx, sessionID, func() error {
		st, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}

		var advanced bool
		if q, advanced, err = s.next(st); err != nil {
			return err
		}
		if advanced {
			return s.store.Set(ctx, sessionID, st)
		}
		return nil
	})
	return q, err
}

// SubmitAnswer records an answer. A stale submission returns a
// *StaleSubmissionError together with a non-accepted result that carries
// the question the session actually expects.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID string, questionID int, label string) (*SubmitResult, error) {
	var res *SubmitResult
	err := s.withLock(ctx, sessionID, func() error {
		st, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}

		sub, err := s.engine.Submit(st, questionID, label)
		if err != nil {
			if errors.Is(err, ErrStaleSubmission) {
				expected, advanced, nerr := s.next(st)
				if nerr == nil && advanced {
					nerr = s.store.Set(ctx, sessionID, st)
				}
				if nerr != nil {
					return errors.Join(err, nerr)
				}
				res = &SubmitResult{Phase: st.Phase, NextQuestion: expected, LiveScores: st.Scores.Clone()}
			}
			return err
		}

		next, _, err := s.next(st)
		if err != nil {
			return err
		}
		if err := s.store.Set(ctx, sessionID, st); err != nil {
			return err
		}

		res = &SubmitResult{
			Accepted:     true,
			Phase:        st.Phase,
			NextQuestion: next,
			LiveScores:   sub.LiveScores,
		}
		return nil
	})
	return res, err
}

// Finalize returns the result of a finished assessment. With a recorder the
// result is persisted and the session state cleared; later calls return the
// recorded result.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*Result, error) {
	var res *Result
	err := s.withLock(ctx, sessionID, func() error {
		st, err := s.load(ctx, sessionID)
		if errors.Is(err, ErrSessionNotFound) && s.recorder != nil {
			recorded, rerr := s.recorder.LatestResult(ctx, sessionID)
			if rerr != nil {
				return errors.Join(err, rerr)
			}
			res = recorded
			return nil
		}
		if err != nil {
			return err
		}

		if _, _, err := s.next(st); err != nil {
			return err
		}
		if res, err = s.engine.Finalize(st); err != nil {
			return err
		}

		if s.recorder == nil {
			return s.store.Set(ctx, sessionID, st)
		}
		if err := s.recorder.SaveResult(ctx, res); err != nil {
			return fmt.Errorf("persist result for session %s: %w", sessionID, err)
		}
		return s.store.Clear(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	logger.ForSession(s.logger, sessionID, string(PhaseFinished)).Info("assessment finalized",
		zap.String("code", res.CategoryCode),
		zap.Int("answered", res.Answered),
	)
	return res, nil
}

// Clear drops the session state.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.withLock(ctx, sessionID, func() error {
		return s.store.Clear(ctx, sessionID)
	})
}

// next returns the pending question, advancing through exhausted phases.
// next returns the question to serve, advancing st past exhausted phases.
// advanced reports whether st was changed on the way.
func (s *Service) next(st *State) (q *questions.Question, advanced bool, err error) {
	for {
		q, err = s.engine.Current(st)
		if err != nil || q != nil || st.Phase == PhaseFinished {
			return q, advanced, err
		}
		if _, err = s.engine.Advance(st); err != nil {
			return nil, advanced, err
		}
		advanced = true
	}
}

func (s *Service) load(ctx context.Context, sessionID string) (*State, error) {
	st, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return st, nil
}

func (s *Service) withLock(ctx context.Context, sessionID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()
	return fn()
}
