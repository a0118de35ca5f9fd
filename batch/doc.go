// Package batch contains the incremental-loading engine. The main type is
// Source, which can be created using New or NewWithUpdates. It owns a list of
// loaded pages (batches) and a pagination status, and it changes them only in
// response to actions read from a channel supplied by the caller. Fetching is
// delegated to a Fetcher and, optionally, an UpdateFetcher; some
// implementations are provided in the source, processor and pipeline packages,
// or you can create your own.
//
// The actions are:
//
//   - Reload cancels everything in flight, clears the list and loads the first page.
//   - LoadMore loads the next page. Only one LoadMore runs at a time; extra ones are dropped.
//   - UpdateBatches refreshes a subset of already loaded pages, identified by key.
//   - CancelBatchLoading, CancelAllUpdates and CancelUpdates abort work in flight.
//   - Reset clears the list and cancels everything, leaving the source usable.
//
// The pagination status moves through the following states:
//
//	None --Reload--> InitialLoading --ok,last--> EndOfPagination
//	                                --ok-------> Paginating
//	                                --error----> InitialLoadingError
//	Paginating --LoadMore--> NextBatchLoading --ok,last--> EndOfPagination
//	                                          --ok-------> Paginating
//	                                          --error----> Paginating (with the error)
//	EndOfPagination --LoadMore with params--> NextBatchLoading
//
// Updates touching disjoint sets of keys run concurrently. An update whose
// keys overlap a running update waits until that update completes, so
// refreshes of the same page never race.
//
// A Source is bound to the context passed to its constructor. When that
// context ends, every fetch and update is cancelled, the state is reset to the
// empty snapshot and the source stops reading actions. It cannot be restarted.
package batch
