package scopes

import "github.com/derkreature/TaskScheduler/core"

// Storage is the persistent scope descriptor storage: a fixed-capacity,
// append-only registry of interned descriptors. Concurrent Alloc calls
// contend only on the atomic top cursor, never on the storage body. Ids
// and descriptor addresses stay stable until the storage itself is
// discarded.
type Storage struct {
	top   core.Int32
	slots []ScopeDesc
}

// NewStorage reserves room for capacity descriptors up front.
func NewStorage(capacity int) *Storage {
	if capacity <= 0 {
		panic("scopes: storage capacity must be positive")
	}
	return &Storage{
		slots: make([]ScopeDesc, capacity),
	}
}

// Alloc interns a descriptor and returns its 1-based id.
// Returns InvalidStorageID when the registry is exhausted; running out of
// descriptor slots is fatal at the registration site.
func (s *Storage) Alloc(srcFile string, srcLine int32, scopeName string) int32 {
	index := s.top.IncFetch() - 1
	if int(index) >= len(s.slots) {
		return InvalidStorageID
	}

	s.slots[index] = NewScopeDesc(srcFile, srcLine, scopeName)
	return index + 1
}

// Get returns the stable descriptor pointer for id, or nil for the
// sentinel and out-of-range ids.
func (s *Storage) Get(id int32) *ScopeDesc {
	if id <= InvalidStorageID || id > s.top.Load() || int(id) > len(s.slots) {
		return nil
	}
	return &s.slots[id-1]
}

// Count returns the number of interned descriptors.
func (s *Storage) Count() int {
	n := int(s.top.Load())
	if n > len(s.slots) {
		n = len(s.slots)
	}
	return n
}
