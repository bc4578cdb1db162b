// Package reconcile merges remote collections into local state.
//
// Records are joined on their frontend key. On a match the remote content
// wins and the local identity is kept; records present on only one side
// survive (local ones are reported for upload, remote ones are imported).
// Remote records whose backend id is pending deletion are dropped before
// merging so a delete that has not reached the backend yet cannot bring
// the record back.
package reconcile

import "lockin/internal/service"

// Policy describes how to merge one record type.
type Policy[T any] struct {
	// FrontendKey returns the join key of a record.
	FrontendKey func(T) int64
	// Adopt combines a local record with its remote counterpart.
	Adopt func(local, remote T) T
	// Import turns a remote-only record into a local one.
	Import func(remote T) T
}

// Result is the outcome of a merge.
type Result[T any] struct {
	// Merged replaces the local collection: local order first, then imports.
	Merged []T
	// Unmatched holds the frontend keys of local records the remote lacks.
	Unmatched []int64
	// Imported counts remote-only records appended to Merged.
	Imported int
}

// Merge joins local and remote on the frontend key.
func Merge[T any](local, remote []T, p Policy[T]) Result[T] {
	byKey := make(map[int64]T, len(remote))
	for _, r := range remote {
		k := p.FrontendKey(r)
		if _, dup := byKey[k]; !dup {
			byKey[k] = r
		}
	}

	res := Result[T]{Merged: make([]T, 0, len(local)+len(remote))}
	seen := make(map[int64]bool, len(local))
	for _, l := range local {
		k := p.FrontendKey(l)
		seen[k] = true
		if r, ok := byKey[k]; ok {
			res.Merged = append(res.Merged, p.Adopt(l, r))
			continue
		}
		res.Merged = append(res.Merged, l)
		res.Unmatched = append(res.Unmatched, k)
	}

	for _, r := range remote {
		k := p.FrontendKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		res.Merged = append(res.Merged, p.Import(r))
		res.Imported++
	}
	return res
}

// FilterPending drops records whose backend id is in pending.
func FilterPending[T any](records []T, backendID func(T) int64, pending map[int64]bool) []T {
	if len(pending) == 0 {
		return records
	}
	kept := make([]T, 0, len(records))
	for _, r := range records {
		if !pending[backendID(r)] {
			kept = append(kept, r)
		}
	}
	return kept
}

// SavedTaskPolicy merges templates. keepLocal reports templates whose
// local edits are still queued for upload; those keep their local content
// and only learn the backend id.
func SavedTaskPolicy(keepLocal func(frontendKey int64) bool) Policy[service.SavedTask] {
	return Policy[service.SavedTask]{
		FrontendKey: func(s service.SavedTask) int64 { return s.FrontendKey },
		Adopt: func(local, remote service.SavedTask) service.SavedTask {
			merged := local
			merged.BackendID = remote.BackendID
			if keepLocal == nil || !keepLocal(local.FrontendKey) {
				merged.Name = remote.Name
				merged.EstimatedMinutes = remote.EstimatedMinutes
			}
			return merged
		},
		Import: func(remote service.SavedTask) service.SavedTask {
			return remote
		},
	}
}

// TaskPolicy merges ongoing tasks. nextID hands out a local id for an
// imported task the server gave no usable id. Dirty local tasks keep
// their content; it is pushed on the next cycle.
func TaskPolicy(nextID func() int64) Policy[service.Task] {
	return Policy[service.Task]{
		FrontendKey: func(t service.Task) int64 { return t.FrontendKey },
		Adopt: func(local, remote service.Task) service.Task {
			merged := local
			if !local.HasRemoteID() && remote.HasRemoteID() {
				merged.ID = remote.ID
			}
			if !local.NeedsSync {
				merged.Name = remote.Name
				merged.EstimatedMinutes = remote.EstimatedMinutes
			}
			return merged
		},
		Import: func(remote service.Task) service.Task {
			t := service.Task{
				ID:               remote.ID,
				FrontendKey:      remote.FrontendKey,
				Name:             remote.Name,
				EstimatedMinutes: remote.EstimatedMinutes,
			}
			if !t.HasRemoteID() {
				t.ID = nextID()
			}
			return t
		},
	}
}
