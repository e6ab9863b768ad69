package quadrant

import "sync"

// Index maps quadrant ids to the set of subscribed connection ids. All
// methods are safe for concurrent use; readers see a consistent snapshot.
type Index struct {
	mu   sync.RWMutex
	subs map[int]map[uint64]struct{}
}

func NewIndex() *Index {
	return &Index{subs: make(map[int]map[uint64]struct{})}
}

// Subscribe adds conn to the quadrant's subscriber set. Repeated calls are
// no-ops.
func (i *Index) Subscribe(quadrantID int, conn uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.subs[quadrantID]
	if !ok {
		set = make(map[uint64]struct{})
		i.subs[quadrantID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from the quadrant's subscriber set. Removing a
// non-member is a no-op.
func (i *Index) Unsubscribe(quadrantID int, conn uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	set, ok := i.subs[quadrantID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(i.subs, quadrantID)
	}
}

// SubscribersOf returns a copy of the quadrant's subscriber set.
func (i *Index) SubscribersOf(quadrantID int) []uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()

	set := i.subs[quadrantID]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// RemoveConnection purges conn from every quadrant.
func (i *Index) RemoveConnection(conn uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for quadrantID, set := range i.subs {
		delete(set, conn)
		if len(set) == 0 {
			delete(i.subs, quadrantID)
		}
	}
}

// SubscriptionCount returns the total number of (quadrant, connection) pairs.
func (i *Index) SubscriptionCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n := 0
	for _, set := range i.subs {
		n += len(set)
	}
	return n
}
