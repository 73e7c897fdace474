package importer

import "time"

// Metrics receives pipeline events. Implementations must be safe for
// concurrent use; chunk events arrive from worker goroutines.
type Metrics interface {
	RowAccepted()
	RowRejected(reason string)
	ChunkFinished(status ChunkStatus, d time.Duration)
	BatchStarted()
	BatchFinished(status Status)
}

type noopMetrics struct{}

func (noopMetrics) RowAccepted() {}
func (noopMetrics) RowRejected(string) {}
func (noopMetrics) ChunkFinished(ChunkStatus, time.Duration) {}
func (noopMetrics) BatchStarted() {}
func (noopMetrics) BatchFinished(Status) {}
