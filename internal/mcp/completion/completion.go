// Package completion implements completion/complete: argument-value
// suggestions for a prompt or resource-template reference, capped at 100
// values and matched by prefix (spec.md §4.H).
// file: internal/mcp/completion/completion.go
package completion

import "strings"

// MaxValues is the hard cap on the number of suggested values a single
// Completion may report, per spec.md §4.H.
const MaxValues = 100

// RefKind discriminates the two shapes completion/complete's ref argument
// can take.
type RefKind string

const (
	RefKindPrompt          RefKind = "ref/prompt"
	RefKindResourceTemplate RefKind = "ref/resource"
)

// Ref identifies what's being completed: either a prompt by name or a
// resource template by URI.
type Ref struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// Argument names the argument being completed and the partial value typed so
// far.
type Argument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteParams is the params shape of completion/complete.
type CompleteParams struct {
	Ref      Ref      `json:"ref"`
	Argument Argument `json:"argument"`
}

// Completion is the values block of a CompleteResult: the matches (at most
// MaxValues), whether more matches exist beyond those in Values, and the
// total number of matches.
type Completion struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// CompleteResult is the result shape of completion/complete.
type CompleteResult struct {
	Completion Completion `json:"completion"`
}

// Source produces the full candidate list for one argument; Provider looks
// up the right Source for a Ref and argument name.
type Source func() []string

// Provider resolves a Ref + argument name to a candidate Source, or returns
// ok=false if nothing is registered for it.
type Provider interface {
	Lookup(ref Ref, argumentName string) (Source, bool)
}

// Complete runs prefix matching against the candidates from provider for the
// given params, truncating to MaxValues and reporting whether more matches
// exist beyond the cap.
func Complete(provider Provider, params CompleteParams) CompleteResult {
	source, ok := provider.Lookup(params.Ref, params.Argument.Name)
	if !ok {
		return CompleteResult{Completion: Completion{Values: []string{}}}
	}

	var matches []string
	for _, candidate := range source() {
		if strings.HasPrefix(candidate, params.Argument.Value) {
			matches = append(matches, candidate)
		}
	}

	total := len(matches)
	hasMore := false
	if total > MaxValues {
		matches = matches[:MaxValues]
		hasMore = true
	}

	return CompleteResult{Completion: Completion{
		Values:  matches,
		Total:   total,
		HasMore: hasMore,
	}}
}
