package completion

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticProvider struct {
	values []string
}

func (p staticProvider) Lookup(ref Ref, argumentName string) (Source, bool) {
	return func() []string { return p.values }, true
}

func TestComplete_PrefixMatch(t *testing.T) {
	p := staticProvider{values: []string{"apple", "apricot", "banana"}}
	result := Complete(p, CompleteParams{Argument: Argument{Name: "fruit", Value: "ap"}})
	assert.ElementsMatch(t, []string{"apple", "apricot"}, result.Completion.Values)
	assert.False(t, result.Completion.HasMore)
}

func TestComplete_CapsAt100(t *testing.T) {
	values := make([]string, 150)
	for i := range values {
		values[i] = "item" + strconv.Itoa(i)
	}
	p := staticProvider{values: values}
	result := Complete(p, CompleteParams{Argument: Argument{Name: "x", Value: "item"}})
	assert.Len(t, result.Completion.Values, MaxValues)
	assert.True(t, result.Completion.HasMore)
	assert.Equal(t, 150, result.Completion.Total)
}

type emptyProvider struct{}

func (emptyProvider) Lookup(ref Ref, argumentName string) (Source, bool) { return nil, false }

func TestComplete_NoProviderMatch(t *testing.T) {
	result := Complete(emptyProvider{}, CompleteParams{Argument: Argument{Name: "x", Value: "a"}})
	assert.Empty(t, result.Completion.Values)
}
