package sync

import "errors"

var (
	// ErrClosed is returned by the methods of a closed List.
	ErrClosed = errors.New("list is closed")

	// ErrSourceStopped is returned when the Source stops while a call is
	// waiting for it.
	ErrSourceStopped = errors.New("source stopped")

	// ErrReloaded is returned when the list was reloaded or reset while a
	// call was waiting for a result in the previous list.
	ErrReloaded = errors.New("list was reloaded")

	// ErrCannotLoadMore is returned by LoadMore when the status of the list
	// doesn't allow loading another page.
	ErrCannotLoadMore = errors.New("cannot load more")

	// ErrReloadActive is returned by Update while the first page of a
	// Reload is loading.
	ErrReloadActive = errors.New("reload in progress")

	// ErrAsyncUpdate is returned by Update for an asynchronous update,
	// which has no single result to wait for.
	ErrAsyncUpdate = errors.New("asynchronous updates have no single result")
)
