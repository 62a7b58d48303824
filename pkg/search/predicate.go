package search

import (
	"fmt"
	"strings"
)

// Kind discriminates what a predicate searches for.
type Kind int

const (
	// Accounts searches users and organizations.
	Accounts Kind = iota
	// Repositories searches repositories.
	Repositories
)

// Predicate is an immutable structured search query: a base term, an entity
// kind, and zero or more bound filter clauses. Methods return copies; a
// predicate handed to another component never changes underneath it.
type Predicate struct {
	kind   Kind
	terms  []string
	window *Window
}

// NewPredicate creates a predicate from ordered clause terms.
// Empty terms are dropped.
func NewPredicate(kind Kind, terms ...string) Predicate {
	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, strings.TrimSpace(t))
		}
	}
	return Predicate{kind: kind, terms: kept}
}

// ForLocation builds an account predicate for a location term.
// accountType is the GitHub type qualifier value ("user" or "org").
func ForLocation(location, accountType string) Predicate {
	return NewPredicate(Accounts,
		fmt.Sprintf("location:%q", location),
		fmt.Sprintf("type:%s", accountType),
	)
}

// ForOwner builds a repository predicate scoped to one account's repositories.
func ForOwner(login string, minStars int, includeForks bool, extra string) Predicate {
	terms := []string{fmt.Sprintf("user:%s", login)}
	if minStars > 0 {
		terms = append(terms, fmt.Sprintf("stars:>=%d", minStars))
	}
	if !includeForks {
		terms = append(terms, "fork:false")
	}
	if extra != "" {
		terms = append(terms, extra)
	}
	return NewPredicate(Repositories, terms...)
}

// ForQuery builds a repository predicate from a caller-supplied query string,
// appending a stars floor when the query does not bind one itself.
func ForQuery(custom string, minStars int) Predicate {
	terms := []string{custom}
	if !strings.Contains(custom, "stars:") && minStars > 0 {
		terms = append(terms, fmt.Sprintf("stars:>=%d", minStars))
	}
	return NewPredicate(Repositories, terms...)
}

// Kind returns the entity kind this predicate searches.
func (p Predicate) Kind() Kind {
	return p.kind
}

// With returns a copy with an additional filter clause appended.
func (p Predicate) With(clause string) Predicate {
	if strings.TrimSpace(clause) == "" {
		return p
	}
	terms := make([]string, len(p.terms), len(p.terms)+1)
	copy(terms, p.terms)
	terms = append(terms, strings.TrimSpace(clause))
	out := p
	out.terms = terms
	return out
}

// WithWindow returns a copy bound to a creation-date window. Binding a second
// window intersects it with the existing one rather than stacking clauses.
func (p Predicate) WithWindow(w Window) Predicate {
	out := p
	if p.window != nil {
		w = p.window.Intersect(w)
	}
	out.window = &w
	return out
}

// Window returns the bound creation-date window, if any.
func (p Predicate) Window() (Window, bool) {
	if p.window == nil {
		return Window{}, false
	}
	return *p.window, true
}

// String renders the predicate as a GitHub search query string.
func (p Predicate) String() string {
	parts := make([]string, 0, len(p.terms)+1)
	parts = append(parts, p.terms...)
	if p.window != nil {
		parts = append(parts, p.window.Clause())
	}
	return strings.Join(parts, " ")
}
