// Package assessment runs the adaptive RIASEC assessment: main questions,
// then tie-breaker rounds until no unresolved near-tie remains.
package assessment

import (
	"time"

	"github.com/spigell/riasec-matcher/internal/riasec"
)

// Phase of an assessment.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseMain       Phase = "main"
	PhaseTieBreak   Phase = "tie_break"
	PhaseFinished   Phase = "finished"
)

// State is everything one session needs between calls. It is a plain value
// persisted by a session store; questions are referenced by id.
type State struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`

	// Order is the serving order of main question ids and Cursor the
	// 1-based position of the next one.
	Order  []int `json:"order"`
	Cursor int   `json:"cursor"`

	Answers map[int]string `json:"answers"`

	// TieQueue holds every tie-breaker id queued so far, TieCursor the index
	// of the next unanswered one.
	TieQueue  []int `json:"tie_queue"`
	TieCursor int   `json:"tie_cursor"`

	PairsServed []string `json:"pairs_served"`
	Rounds      int      `json:"rounds"`

	Scores riasec.Scores      `json:"scores"`
	Traits map[string]float64 `json:"traits"`

	Draw *Draw `json:"draw,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draw records a random pick among categories tied for the lead so later
// finalizations reuse it.
type Draw struct {
	Seed       uint64            `json:"seed"`
	Candidates []riasec.Category `json:"candidates"`
	Pick       riasec.Category   `json:"pick"`
}

// Result is a finalized assessment.
type Result struct {
	SessionID        string             `json:"session_id"`
	CategoryCode     string             `json:"category_code"`
	CategoryScores   riasec.Scores      `json:"category_scores"`
	Traits           map[string]float64 `json:"traits"`
	TraitPercentiles map[string]int     `json:"trait_percentiles"`
	Draw             *Draw              `json:"draw,omitempty"`
	Answered         int                `json:"answered"`
	TieBreakRounds   int                `json:"tie_break_rounds"`
	FinishedAt       time.Time          `json:"finished_at"`
}

func (s *State) pairServed(p riasec.Pair) bool {
	key := p.String()
	for _, served := range s.PairsServed {
		if served == key {
			return true
		}
	}
	return false
}

func (s *State) markServed(p riasec.Pair) bool {
	if s.pairServed(p) {
		return false
	}
	s.PairsServed = append(s.PairsServed, p.String())
	return true
}

func (s *State) queued() map[int]bool {
	ids := make(map[int]bool, len(s.TieQueue))
	for _, id := range s.TieQueue {
		ids[id] = true
	}
	return ids
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Order = append([]int(nil), s.Order...)
	c.TieQueue = append([]int(nil), s.TieQueue...)
	c.PairsServed = append([]string(nil), s.PairsServed...)
	c.Answers = make(map[int]string, len(s.Answers))
	for id, label := range s.Answers {
		c.Answers[id] = label
	}
	c.Scores = s.Scores.Clone()
	c.Traits = make(map[string]float64, len(s.Traits))
	for name, v := range s.Traits {
		c.Traits[name] = v
	}
	if s.Draw != nil {
		d := *s.Draw
		d.Candidates = append([]riasec.Category(nil), s.Draw.Candidates...)
		c.Draw = &d
	}
	return &c
}
