package sequencer

import "sync/atomic"

// GroupID ties together the steps of one sustained note. Zero means no group.
type GroupID uint64

// GroupIDAllocator hands out session-unique group ids. Ids are never reused,
// even after the note they identified is cleared.
type GroupIDAllocator struct {
	last atomic.Uint64
}

// Next returns a fresh id, strictly greater than every id returned or reserved before
func (a *GroupIDAllocator) Next() GroupID {
	return GroupID(a.last.Add(1))
}

// Reserve makes sure id will never be returned by Next. Used after importing
// a snapshot that already carries ids.
func (a *GroupIDAllocator) Reserve(id GroupID) {
	for {
		cur := a.last.Load()
		if uint64(id) <= cur || a.last.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}
