package simulation

// Event types published by the loop. Step events carry a Snapshot as data;
// started and stopped events carry the frame counter.
const (
	EventStarted = "simulation.started"
	EventStep    = "simulation.step"
	EventStopped = "simulation.stopped"

	eventSource = "simulation.loop"
)
