package hashstate

// Recorder receives provider events for metrics.
type Recorder interface {
	HashWritten(replace bool)
	HashSkipped()
	PopStateDispatched(listeners int)
	ListenerPanicked()
}

type nopRecorder struct{}

func (nopRecorder) HashWritten(bool)       {}
func (nopRecorder) HashSkipped()           {}
func (nopRecorder) PopStateDispatched(int) {}
func (nopRecorder) ListenerPanicked()      {}
