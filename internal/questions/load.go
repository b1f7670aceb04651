package questions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/riasec-matcher/internal/riasec"
)

//go:embed schema.json
var bankSchema string

//go:embed data/bank.json
var defaultBank []byte

// ValidationError lists every schema violation found in a bank document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "question bank is invalid: " + strings.Join(e.Problems, "; ")
}

type rawQuestion struct {
	Question
	Pair string `json:"pair,omitempty"`
}

type rawBank struct {
	Version       int           `json:"version"`
	TraitTaxonomy string        `json:"traitTaxonomy"`
	Main          []rawQuestion `json:"main"`
	TieBreak      []rawQuestion `json:"tiebreak"`
}

// Default returns the embedded question bank.
func Default(order riasec.Order) (*Bank, error) {
	return Load(defaultBank, order)
}

// LoadFile reads and validates a bank document from disk.
func LoadFile(path string, order riasec.Order) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank %q: %w", path, err)
	}
	return Load(data, order)
}

// Load validates the document against the bank schema and the id/pair rules,
// then builds an immutable Bank.
func Load(data []byte, order riasec.Order) (*Bank, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var raw rawBank
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding question bank: %w", err)
	}

	bank := &Bank{
		TraitTaxonomy: raw.TraitTaxonomy,
		Main:          make([]Question, 0, len(raw.Main)),
		TieBreak:      make([]Question, 0, len(raw.TieBreak)),
		byID:          make(map[int]*Question, len(raw.Main)+len(raw.TieBreak)),
	}

	var problems []error
	for i, rq := range raw.Main {
		q := rq.Question
		if q.ID != i+1 {
			problems = append(problems, fmt.Errorf("main question at position %d has id %d, want %d", i+1, q.ID, i+1))
		}
		if rq.Pair != "" {
			problems = append(problems, fmt.Errorf("main question %d must not have a pair", q.ID))
		}
		bank.Main = append(bank.Main, q)
	}

	for _, rq := range raw.TieBreak {
		q := rq.Question
		if q.ID <= len(raw.Main) {
			problems = append(problems, fmt.Errorf("tie-breaker question id %d overlaps the main bank", q.ID))
		}
		pair, err := riasec.ParsePair(order, rq.Pair)
		if err != nil {
			problems = append(problems, fmt.Errorf("tie-breaker question %d: %w", q.ID, err))
			continue
		}
		for _, c := range []riasec.Category{pair.First, pair.Second} {
			if !q.offers(c) {
				problems = append(problems, fmt.Errorf("tie-breaker question %d has no option for %s", q.ID, c))
			}
		}
		q.Pair = &pair
		bank.TieBreak = append(bank.TieBreak, q)
	}

	for _, qs := range [][]Question{bank.Main, bank.TieBreak} {
		for i := range qs {
			if _, dup := bank.byID[qs[i].ID]; dup {
				problems = append(problems, fmt.Errorf("duplicate question id %d", qs[i].ID))
				continue
			}
			bank.byID[qs[i].ID] = &qs[i]
		}
	}

	if err := errors.Join(problems...); err != nil {
		return nil, err
	}

	return bank, nil
}

func validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(bankSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validating question bank: %w", err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Problems = append(verr.Problems, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return verr
}

func (q *Question) offers(c riasec.Category) bool {
	for _, o := range q.Options {
		if o.Category == c {
			return true
		}
	}
	return false
}
