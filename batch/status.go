package batch

// StatusKind is the state of the pagination state machine.
type StatusKind int

const (
	// StatusNone means nothing has been requested yet.
	StatusNone StatusKind = iota
	// StatusInitialLoading means the first page is being fetched.
	StatusInitialLoading
	// StatusInitialLoadingError means fetching the first page failed.
	StatusInitialLoadingError
	// StatusPaginating means more pages can be requested with LoadMore.
	StatusPaginating
	// StatusNextBatchLoading means a LoadMore is fetching the next page.
	StatusNextBatchLoading
	// StatusEndOfPagination means the fetcher reported the last page.
	StatusEndOfPagination
)

// String returns the string representation of the status kind.
func (k StatusKind) String() string {
	switch k {
	case StatusNone:
		return "None"
	case StatusInitialLoading:
		return "InitialLoading"
	case StatusInitialLoadingError:
		return "InitialLoadingError"
	case StatusPaginating:
		return "Paginating"
	case StatusNextBatchLoading:
		return "NextBatchLoading"
	case StatusEndOfPagination:
		return "EndOfPagination"
	default:
		return "Unknown"
	}
}

// Status is the pagination status of a Source.
type Status[D any] struct {
	Kind StatusKind

	// Err is the cause of a StatusInitialLoadingError. It is nil otherwise.
	Err error

	// LastResult is the result of the most recent page fetch when Kind is
	// StatusPaginating. It holds an error if the latest LoadMore failed.
	LastResult FetchResult[D]
}

// String returns the name of the status kind.
func (s Status[D]) String() string {
	return s.Kind.String()
}

// Loading reports whether a page fetch is running.
func (s Status[D]) Loading() bool {
	return s.Kind == StatusInitialLoading || s.Kind == StatusNextBatchLoading
}

// canLoadMore reports whether a LoadMore may run from this status. From
// StatusEndOfPagination it may only run with new request params.
func (s Status[D]) canLoadMore(hasParams bool) bool {
	switch s.Kind {
	case StatusPaginating:
		return true
	case StatusEndOfPagination:
		return hasParams
	default:
		return false
	}
}

// statusAfter returns the status that follows a successful or failed fetch
// of a page other than the first.
func statusAfter[D any](res FetchResult[D]) Status[D] {
	if res.OK() && res.Last {
		return Status[D]{Kind: StatusEndOfPagination}
	}
	return Status[D]{Kind: StatusPaginating, LastResult: res}
}
