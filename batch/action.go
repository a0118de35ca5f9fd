package batch

// Action is a control message sent to a Source through its action channel.
// The set of actions is closed; the implementations are Reload, LoadMore,
// UpdateBatches, CancelBatchLoading, CancelAllUpdates, CancelUpdates and
// Reset. An action whose type parameters do not match the Source receiving it
// is ignored.
type Action interface {
	actionName() string
}

// Reload cancels all loading and update work, clears the list and fetches the
// first page with Params.
type Reload[P any] struct {
	Params P
}

// LoadMore fetches the next page. Params is optional; when nil the fetcher
// continues with the params of the previous request. Once the source has
// reached the end of pagination only a LoadMore with params does anything.
type LoadMore[P any] struct {
	Params *P
}

// UpdateBatches refreshes the loaded batches whose key is in Keys.
type UpdateBatches[K comparable, U any] struct {
	Keys    []K
	Request U

	// OperationID optionally identifies the update. An UpdateBatches with
	// the same OperationID as a pending update is rejected.
	OperationID string

	// Async runs the update without waiting for overlapping updates. The
	// update fetcher must implement AsyncUpdateFetcher.
	Async bool
}

// CancelBatchLoading cancels a running Reload or LoadMore. The loaded
// batches and the status are left as they are.
type CancelBatchLoading struct{}

// CancelAllUpdates cancels every waiting and running update.
type CancelAllUpdates struct{}

// CancelUpdates cancels the waiting and running updates whose original
// action satisfies Match.
type CancelUpdates[K comparable, U any] struct {
	Match func(UpdateBatches[K, U]) bool
}

// Reset cancels everything and returns the source to its initial empty
// state. Unlike the end of the source's context, the source keeps running.
type Reset struct{}

func (Reload[P]) actionName() string           { return "Reload" }
func (LoadMore[P]) actionName() string         { return "LoadMore" }
func (UpdateBatches[K, U]) actionName() string { return "UpdateBatches" }
func (CancelBatchLoading) actionName() string  { return "CancelBatchLoading" }
func (CancelAllUpdates) actionName() string    { return "CancelAllUpdates" }
func (CancelUpdates[K, U]) actionName() string { return "CancelUpdates" }
func (Reset) actionName() string               { return "Reset" }

// NewReload returns a Reload action.
func NewReload[P any](params P) Reload[P] {
	return Reload[P]{Params: params}
}

// NewLoadMore returns a LoadMore action. params may be nil.
func NewLoadMore[P any](params *P) LoadMore[P] {
	return LoadMore[P]{Params: params}
}

// NewUpdate returns an UpdateBatches action for keys.
func NewUpdate[K comparable, U any](keys []K, req U) UpdateBatches[K, U] {
	return UpdateBatches[K, U]{
		Keys:    keys,
		Request: req,
	}
}

// NewCancelUpdates returns a CancelUpdates action.
func NewCancelUpdates[K comparable, U any](match func(UpdateBatches[K, U]) bool) CancelUpdates[K, U] {
	return CancelUpdates[K, U]{Match: match}
}

// ActionName returns a short name for a, for logging.
func ActionName(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.actionName()
}
