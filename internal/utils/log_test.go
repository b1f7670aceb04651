package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		limit int
		want  string
	}{
		"non-positive limit":    {"Interest: Technology", 0, ""},
		"fits":                  {"Role: Analyst", 20, "Role: Analyst"},
		"cut with ellipsis":     {"Field: Finance | Category: Finance", 14, "Field: Finance..."},
		"whitespace collapsed":  {"  Skills:\n\tdata   entry  ", 40, "Skills: data entry"},
		"counts runes":          {"Ингенер-конструктор", 7, "Ингенер..."},
		"collapse before limit": {"a\n\n\nb", 3, "a b"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
