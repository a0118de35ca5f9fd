package batch

const (
	// DefaultUpdateResultsBufferSize is the default number of update outcomes
	// buffered per UpdateResults subscriber. Observers are expected to keep
	// up; when they do not, the oldest outcome is dropped.
	DefaultUpdateResultsBufferSize = 1
)
