package batch

// Batch is one loaded page of data. Keys are created by a KeyGenerator and
// are unique for the lifetime of a Source.
type Batch[K comparable, D any] struct {
	// Key identifies the page. It must not be modified by update fetchers.
	Key K

	// Data holds the page payload, usually a slice of items.
	Data D
}

// State is an immutable snapshot of a Source. A committed State is never
// modified; every change to the list produces a new Batches slice.
type State[K comparable, D any] struct {
	// Batches is the list of loaded pages in load order.
	Batches []Batch[K, D]

	// Status is the pagination status.
	Status Status[D]

	epoch   uint64
	fetches int
}

// Len returns the number of loaded batches.
func (s State[K, D]) Len() int {
	return len(s.Batches)
}

// Keys returns the keys of all loaded batches in load order.
func (s State[K, D]) Keys() []K {
	keys := make([]K, len(s.Batches))
	for i, b := range s.Batches {
		keys[i] = b.Key
	}
	return keys
}

// Find returns the batch with the given key.
func (s State[K, D]) Find(key K) (Batch[K, D], bool) {
	for _, b := range s.Batches {
		if b.Key == key {
			return b, true
		}
	}
	return Batch[K, D]{}, false
}

// Epoch returns how many times the list has been cleared by Reload or Reset.
// Snapshots with the same epoch describe the same list, possibly at different
// stages of loading.
func (s State[K, D]) Epoch() uint64 {
	return s.epoch
}

// Fetches returns how many page fetches, successful or not, have completed
// in the current epoch.
func (s State[K, D]) Fetches() int {
	return s.fetches
}

// selectBatches returns the batches whose key is in keys, preserving order.
func selectBatches[K comparable, D any](batches []Batch[K, D], keys map[K]struct{}) []Batch[K, D] {
	selected := make([]Batch[K, D], 0, len(keys))
	for _, b := range batches {
		if _, ok := keys[b.Key]; ok {
			selected = append(selected, b)
		}
	}
	return selected
}

// mergeBatches replaces the entries of cur whose key is in allowed with the
// matching entry of updated. Updated batches with keys outside allowed are
// ignored. The second return value is false if nothing was replaced, in which
// case cur is returned as is.
func mergeBatches[K comparable, D any](cur, updated []Batch[K, D], allowed map[K]struct{}) ([]Batch[K, D], bool) {
	byKey := make(map[K]Batch[K, D], len(updated))
	for _, b := range updated {
		if _, ok := allowed[b.Key]; ok {
			byKey[b.Key] = b
		}
	}
	if len(byKey) == 0 {
		return cur, false
	}

	merged := make([]Batch[K, D], len(cur))
	changed := false
	for i, b := range cur {
		if nb, ok := byKey[b.Key]; ok {
			merged[i] = nb
			changed = true
		} else {
			merged[i] = b
		}
	}
	if !changed {
		return cur, false
	}
	return merged, true
}

// appendBatch returns a new slice holding batches followed by b. The input
// slice is never written to, so snapshots sharing it stay intact.
func appendBatch[K comparable, D any](batches []Batch[K, D], b Batch[K, D]) []Batch[K, D] {
	out := make([]Batch[K, D], len(batches), len(batches)+1)
	copy(out, batches)
	return append(out, b)
}
