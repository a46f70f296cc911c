package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_DeliverRoutesToSink(t *testing.T) {
	r := NewRegistry()
	var got []float64
	r.Register("tok1", func(progress, total float64, message string) {
		got = append(got, progress)
	})

	r.Deliver("tok1", 1, 5, "")
	r.Deliver("tok1", 2, 5, "")
	r.Deliver("tok2", 99, 0, "")

	assert.Equal(t, []float64{1, 2}, got)
}

func TestRegistry_UnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register("tok", func(progress, total float64, message string) { calls++ })
	r.Unregister("tok")
	r.Deliver("tok", 1, 1, "")
	assert.Equal(t, 0, calls)
}
