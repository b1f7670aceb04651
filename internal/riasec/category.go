package riasec

import (
	"fmt"
	"strings"
)

// Category is one of the six RIASEC symbols.
type Category string

const (
	Realistic     Category = "R"
	Investigative Category = "I"
	Artistic      Category = "A"
	Social        Category = "S"
	Enterprising  Category = "E"
	Conventional  Category = "C"
)

var names = map[Category]string{
	Realistic:     "Realistic",
	Investigative: "Investigative",
	Artistic:      "Artistic",
	Social:        "Social",
	Enterprising:  "Enterprising",
	Conventional:  "Conventional",
}

// DefaultOrder is the canonical order used when none is configured.
var DefaultOrder = Order{Realistic, Investigative, Artistic, Social, Enterprising, Conventional}

// Valid reports whether c is one of the six symbols.
func (c Category) Valid() bool {
	_, ok := names[c]
	return ok
}

// Name returns the long name of the category.
func (c Category) Name() string {
	return names[c]
}

// ParseCategory accepts a single symbol in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Order is a canonical ordering of all six categories. Ties in score are
// broken by position in the order.
type Order []Category

// ParseOrder parses a string such as "RIASEC" into an Order.
func ParseOrder(s string) (Order, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultOrder, nil
	}

	order := make(Order, 0, len(DefaultOrder))
	for _, r := range s {
		c, err := ParseCategory(string(r))
		if err != nil {
			return nil, fmt.Errorf("parse order %q: %w", s, err)
		}
		order = append(order, c)
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate checks that the order is a permutation of all six categories.
func (o Order) Validate() error {
	if len(o) != len(DefaultOrder) {
		return fmt.Errorf("order must contain %d categories, got %d", len(DefaultOrder), len(o))
	}
	seen := make(map[Category]bool, len(o))
	for _, c := range o {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q in order", c)
		}
		if seen[c] {
			return fmt.Errorf("category %q repeated in order", c)
		}
		seen[c] = true
	}
	return nil
}

// Index returns the canonical position of c, or len(o) for unknown symbols.
func (o Order) Index(c Category) int {
	for i, oc := range o {
		if oc == c {
			return i
		}
	}
	return len(o)
}

func (o Order) String() string {
	var b strings.Builder
	for _, c := range o {
		b.WriteString(string(c))
	}
	return b.String()
}
