package systems

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsObserve(t *testing.T) {
	var m Metrics

	m.Observe(time.Now().Add(-2*time.Millisecond), 3, nil)
	m.Observe(time.Now().Add(-4*time.Millisecond), 3, errors.New("boom"))

	assert.Equal(t, uint64(2), m.ExecutionCount)
	assert.Equal(t, uint64(6), m.EntitiesProcessed)
	assert.Equal(t, uint64(1), m.ErrorCount)
	assert.EqualError(t, m.LastError, "boom")
	assert.GreaterOrEqual(t, m.MaxExecutionTime, 4*time.Millisecond)
	assert.GreaterOrEqual(t, m.MinExecutionTime, 2*time.Millisecond)
	assert.LessOrEqual(t, m.MinExecutionTime, m.MaxExecutionTime)
	assert.Equal(t, m.TotalExecutionTime/2, m.AverageExecutionTime)
}
