package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolGeneratesWhenEmpty(t *testing.T) {
	calls := 0
	p := NewPool(func() *[]byte {
		calls++
		b := make([]byte, 0, 8)
		return &b
	})

	b := p.Get()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 8, cap(*b))

	*b = append((*b)[:0], 1, 2, 3)
	p.Put(b)

	// sync.Pool may drop items at any time; either way Get must return a
	// usable buffer.
	again := p.Get()
	assert.NotNil(t, again)
	assert.GreaterOrEqual(t, cap(*again), 8)
}
