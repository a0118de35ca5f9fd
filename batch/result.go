package batch

// FetchResult is the outcome of fetching one page. It is a success when Err
// is nil.
type FetchResult[D any] struct {
	// Data is the page payload.
	Data D

	// Empty tells the Source not to add a batch for this result, although
	// the status still advances.
	Empty bool

	// Last tells the Source there are no further pages.
	Last bool

	// Err is set when the fetch failed.
	Err error
}

// Success returns a successful FetchResult.
func Success[D any](data D, empty, last bool) FetchResult[D] {
	return FetchResult[D]{
		Data:  data,
		Empty: empty,
		Last:  last,
	}
}

// Failure returns a failed FetchResult.
func Failure[D any](err error) FetchResult[D] {
	return FetchResult[D]{Err: err}
}

// OK reports whether the fetch succeeded.
func (r FetchResult[D]) OK() bool {
	return r.Err == nil
}

// UpdateResult is the outcome of one update job. On success Batches holds
// the refreshed batches that were applied, which are those whose key was
// requested.
type UpdateResult[K comparable, D any] struct {
	Batches []Batch[K, D]
	Err     error
}

// OK reports whether the update succeeded.
func (r UpdateResult[K, D]) OK() bool {
	return r.Err == nil
}

// UpdateOutcome pairs an update request with its result. One is published
// for every completed update job, whether it succeeded or not.
type UpdateOutcome[K comparable, D any, U any] struct {
	Request     U
	OperationID string
	Result      UpdateResult[K, D]
}
