package assessment

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/scoring"
	"github.com/spigell/riasec-matcher/internal/tiebreak"
)

// DefaultMaxQuestionsPerPair bounds tie-breakers injected per flagged pair.
const DefaultMaxQuestionsPerPair = 3

const codeLength = 3

// Config tunes the engine.
type Config struct {
	Order               riasec.Order
	Threshold           float64
	MaxQuestionsPerPair int
	ShuffleMainOrder    bool
	// RandomLeaderDraw picks the leading category at random when several
	// share the top score. Off means canonical order decides.
	RandomLeaderDraw bool
}

// DefaultConfig returns the canonical configuration.
func DefaultConfig() Config {
	return Config{
		Order:               riasec.DefaultOrder,
		Threshold:           tiebreak.DefaultThreshold,
		MaxQuestionsPerPair: DefaultMaxQuestionsPerPair,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if err := c.Order.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := tiebreak.ValidateThreshold(c.Threshold); err != nil {
		errs = append(errs, err)
	}
	if c.MaxQuestionsPerPair < 1 {
		errs = append(errs, fmt.Errorf("max questions per pair must be positive, got %d", c.MaxQuestionsPerPair))
	}
	return errors.Join(errs...)
}

// Submission is the outcome of an accepted answer.
type Submission struct {
	QuestionID int
	Label      string
	Phase      Phase
	LiveScores riasec.Scores
}

// AdvanceResult describes a phase transition.
type AdvanceResult struct {
	From, To Phase
	// Flagged are the near-tie pairs not served before this call.
	Flagged []string
	// Injected are the tie-breaker ids queued by this call.
	Injected []int
	// Exhausted are flagged pairs with no tie-breaker left in the bank.
	Exhausted []string
}

// Engine drives the assessment state machine. It keeps no per-session state
// and may be shared between sessions.
type Engine struct {
	bank    *questions.Bank
	scorer  *scoring.Engine
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	seed    func() uint64
}

// NewEngine builds an engine. A nil metrics value disables instrumentation.
func NewEngine(bank *questions.Bank, scorer *scoring.Engine, cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	if bank == nil || scorer == nil {
		return nil, errors.New("assessment engine requires a question bank and a scorer")
	}
	if cfg.Order == nil {
		cfg.Order = riasec.DefaultOrder
	}
	if cfg.MaxQuestionsPerPair == 0 {
		cfg.MaxQuestionsPerPair = DefaultMaxQuestionsPerPair
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		bank:    bank,
		scorer:  scorer,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		seed:    rand.Uint64,
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start returns a fresh state in the main phase. rng is only used when the
// main order is shuffled; nil falls back to a random seed.
func (e *Engine) Start(sessionID string, rng *rand.Rand) *State {
	order := e.bank.MainIDs()
	if e.cfg.ShuffleMainOrder {
		if rng == nil {
			s := e.seed()
			rng = rand.New(rand.NewPCG(s, s))
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	now := e.now()
	st := &State{
		SessionID:   sessionID,
		Phase:       PhaseMain,
		Order:       order,
		Cursor:      1,
		Answers:     map[int]string{},
		TieQueue:    []int{},
		PairsServed: []string{},
		Scores:      riasec.NewScores(),
		Traits:      map[string]float64{},
		StartedAt:   now,
		UpdatedAt:   now,
	}

	res := e.scorer.Compute(st.Answers)
	st.Traits = res.Traits

	return st
}

// Current returns the question to display next. A nil question with a nil
// error means the current phase is exhausted: call Advance, unless the
// assessment is finished.
func (e *Engine) Current(st *State) (*questions.Question, error) {
	var id int
	switch st.Phase {
	case PhaseNotStarted, "":
		return nil, ErrNotStarted
	case PhaseMain:
		if st.Cursor < 1 || st.Cursor > len(st.Order) {
			return nil, nil
		}
		id = st.Order[st.Cursor-1]
	case PhaseTieBreak:
		if st.TieCursor >= len(st.TieQueue) {
			return nil, nil
		}
		id = st.TieQueue[st.TieCursor]
	case PhaseFinished:
		return nil, nil
	default:
		return nil, fmt.Errorf("session %s: unknown phase %q", st.SessionID, st.Phase)
	}

	q, _, ok := e.bank.Find(id)
	if !ok {
		return nil, fmt.Errorf("session %s: question %d is not in the bank", st.SessionID, id)
	}
	return q, nil
}

// Submit records an answer for the expected question and rescores. A
// rejected submission leaves the state untouched.
func (e *Engine) Submit(st *State, questionID int, label string) (*Submission, error) {
	expected, err := e.Current(st)
	if err != nil {
		return nil, err
	}

	if expected == nil || expected.ID != questionID {
		stale := &StaleSubmissionError{SessionID: st.SessionID, Got: questionID}
		if expected != nil {
			stale.Expected = expected.ID
		}
		e.metrics.StaleSubmission()
		e.logger.Info("rejected stale submission",
			zap.String("session_id", st.SessionID),
			zap.String("phase", string(st.Phase)),
			zap.Int("expected", stale.Expected),
			zap.Int("got", questionID),
		)
		return nil, stale
	}

	if _, ok := expected.Option(label); !ok {
		return nil, fmt.Errorf("question %d has no option %q (want one of %v): %w",
			questionID, label, expected.Labels(), ErrUnknownOption)
	}

	st.Answers[questionID] = label
	switch st.Phase {
	case PhaseMain:
		st.Cursor++
	case PhaseTieBreak:
		st.TieCursor++
		if expected.Pair != nil {
			st.markServed(*expected.Pair)
		}
	}

	e.rescore(st)
	e.metrics.AnswerSubmitted(string(st.Phase))

	return &Submission{
		QuestionID: questionID,
		Label:      label,
		Phase:      st.Phase,
		LiveScores: st.Scores.Clone(),
	}, nil
}

func (e *Engine) rescore(st *State) {
	res := e.scorer.Compute(st.Answers)
	st.Scores = res.Categories
	st.Traits = res.Traits
	st.UpdatedAt = e.now()
}

// Advance moves past an exhausted phase. Near-tie pairs among the current
// top three that were not served yet get up to MaxQuestionsPerPair new
// tie-breakers each. When nothing new is injected the assessment finishes.
// Calling Advance while questions are still pending is a no-op.
//
// Every injecting call serves at least one new pair, so a session advances
// at most len(AllPairs)+1 times.
func (e *Engine) Advance(st *State) (*AdvanceResult, error) {
	pending, err := e.Current(st)
	if err != nil {
		return nil, err
	}

	res := &AdvanceResult{From: st.Phase, To: st.Phase}
	if pending != nil || st.Phase == PhaseFinished {
		return res, nil
	}

	served := make(tiebreak.PairSet, len(st.PairsServed))
	for _, s := range st.PairsServed {
		p, err := riasec.ParsePair(e.cfg.Order, s)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", st.SessionID, err)
		}
		served.Add(p)
	}

	flagged := tiebreak.Detect(st.Scores, e.cfg.Order, e.cfg.Threshold).Minus(served)
	queued := st.queued()

	for _, pair := range flagged.Sorted(e.cfg.Order) {
		res.Flagged = append(res.Flagged, pair.String())

		qs := e.bank.ForPair(pair, queued, e.cfg.MaxQuestionsPerPair)
		st.markServed(pair)
		if len(qs) == 0 {
			res.Exhausted = append(res.Exhausted, pair.String())
			continue
		}

		for _, q := range qs {
			st.TieQueue = append(st.TieQueue, q.ID)
			queued[q.ID] = true
			res.Injected = append(res.Injected, q.ID)
		}
		e.metrics.TieBreakInjected(pair.String(), len(qs))
	}

	if len(res.Injected) == 0 {
		st.Phase = PhaseFinished
	} else {
		st.Phase = PhaseTieBreak
		st.Rounds++
	}
	st.UpdatedAt = e.now()
	res.To = st.Phase

	e.logger.Info("advanced assessment phase",
		zap.String("session_id", st.SessionID),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.To)),
		zap.Strings("flagged", res.Flagged),
		zap.Ints("injected", res.Injected),
		zap.Strings("exhausted", res.Exhausted),
	)

	return res, nil
}

// Finalize computes the result of a finished assessment. Without a random
// leader draw the code is the top three in canonical tie order. With it, a
// draw among categories sharing the top score is made once and stored on
// the state, so repeated calls return the same code.
func (e *Engine) Finalize(st *State) (*Result, error) {
	if st.Phase != PhaseFinished {
		return nil, fmt.Errorf("session %s is in phase %s: %w", st.SessionID, st.Phase, ErrNotFinished)
	}

	code := st.Scores.Code(e.cfg.Order, codeLength)
	if e.cfg.RandomLeaderDraw {
		code = e.drawCode(st)
	}

	traits := make(map[string]float64, len(st.Traits))
	for k, v := range st.Traits {
		traits[k] = v
	}

	res := &Result{
		SessionID:        st.SessionID,
		CategoryCode:     code,
		CategoryScores:   st.Scores.Clone(),
		Traits:           traits,
		TraitPercentiles: scoring.Percentiles(traits),
		Answered:         len(st.Answers),
		TieBreakRounds:   st.Rounds,
		FinishedAt:       st.UpdatedAt,
	}
	if st.Draw != nil {
		d := *st.Draw
		res.Draw = &d
	}

	e.metrics.AssessmentFinished(code)
	return res, nil
}

func (e *Engine) drawCode(st *State) string {
	ranked := st.Scores.Ranked(e.cfg.Order)

	var leaders []riasec.Category
	for _, r := range ranked {
		if r.Score == ranked[0].Score {
			leaders = append(leaders, r.Category)
		}
	}
	if len(leaders) < 2 {
		st.Draw = nil
		return st.Scores.Code(e.cfg.Order, codeLength)
	}

	if st.Draw == nil || riasec.Join(st.Draw.Candidates) != riasec.Join(leaders) {
		seed := e.seed()
		rng := rand.New(rand.NewPCG(seed, seed))
		st.Draw = &Draw{
			Seed:       seed,
			Candidates: leaders,
			Pick:       leaders[rng.IntN(len(leaders))],
		}
		e.logger.Info("drew leading category",
			zap.String("session_id", st.SessionID),
			zap.Uint64("seed", seed),
			zap.String("candidates", riasec.Join(leaders)),
			zap.String("pick", string(st.Draw.Pick)),
		)
	}

	code := []riasec.Category{st.Draw.Pick}
	for _, r := range ranked {
		if len(code) == codeLength {
			break
		}
		if r.Category != st.Draw.Pick {
			code = append(code, r.Category)
		}
	}
	return riasec.Join(code)
}
