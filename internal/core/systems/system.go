package systems

import (
	"time"

	"github.com/zeusync/gravisim/internal/core/models"
)

// System advances part of the world state by one step.
// Update receives the whole World with exclusive write access for the duration
// of the call.
type System interface {
	// Identity

	Name() string

	// Execution

	Update(deltaTime float64, world *models.World) error
	Reset() error

	// Performance monitoring

	GetMetrics() Metrics
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
	EntitiesProcessed    uint64
}

// Observe folds one execution into the metrics.
func (m *Metrics) Observe(started time.Time, entities int, err error) {
	elapsed := time.Since(started)

	m.ExecutionCount++
	m.TotalExecutionTime += elapsed
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if elapsed > m.MaxExecutionTime {
		m.MaxExecutionTime = elapsed
	}
	if m.MinExecutionTime == 0 || elapsed < m.MinExecutionTime {
		m.MinExecutionTime = elapsed
	}
	m.LastExecutionTime = started
	m.EntitiesProcessed += uint64(entities)
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
