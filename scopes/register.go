package scopes

import (
	"runtime"

	"github.com/derkreature/TaskScheduler/core"
)

// registration cell states; any positive value is a descriptor id
const (
	scopeNotInitialized    int32 = 0
	scopeNotYetInitialized int32 = -1
)

// RegistrationCell is the lazy one-time registration latch for a static
// call site. The zero value is the "not initialized" state, so a cell
// declared as a package-level variable is ready before any init function
// runs:
//
//	var loadMeshScope scopes.RegistrationCell
//
//	func loadMesh() {
//		id := loadMeshScope.Register(storage, "mesh.go", 42, "loadMesh")
//		...
//	}
//
// Three states are encoded in the cell: 0 (not initialized), -1
// (initialization in progress) and any positive value (the registered
// descriptor id). The first caller through wins the CAS, performs the
// single Alloc and publishes the id; racing callers spin until they
// observe it. The spin is bounded by the registrar's Alloc latency, which
// is non-blocking.
type RegistrationCell struct {
	state core.Int32
}

// Register returns the call site's descriptor id, interning it into
// storage on first use. Concurrent first use from many workers performs
// exactly one Alloc; every caller observes the same id.
//
// Panics if the registry is exhausted.
func (c *RegistrationCell) Register(storage *Storage, srcFile string, srcLine int32, scopeName string) int32 {
	state := c.state.CompareAndSwap(scopeNotInitialized, scopeNotYetInitialized)
	switch state {
	case scopeNotInitialized:
		// First time here, allocate the descriptor.
		if storage == nil {
			panic("scopes: storage was not initialized")
		}
		id := storage.Alloc(srcFile, srcLine, scopeName)
		if id == InvalidStorageID {
			panic("scopes: descriptor storage is full")
		}
		c.state.Store(id)
		return id

	case scopeNotYetInitialized:
		// Allocation in progress on another worker; wait for the id.
		for {
			id := c.state.Load()
			if id != scopeNotYetInitialized {
				return id
			}
			runtime.Gosched()
		}

	default:
		// Already registered.
		return state
	}
}

// ID returns the registered descriptor id without registering, or
// InvalidStorageID when the site has not been registered yet.
func (c *RegistrationCell) ID() int32 {
	id := c.state.Load()
	if id <= scopeNotInitialized {
		return InvalidStorageID
	}
	return id
}
