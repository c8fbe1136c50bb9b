package fs

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"xipfs/mount"
	"xipfs/pathclassifier"
)

// classifyCache fronts the structural record-list scan with a bounded
// cache keyed by normalized path, invalidated wholesale on every
// mutating record-store operation (SPEC_FULL.md §11's "avoid repeated
// O(records) scans on repeated stat/open of the same path" note). This
// is the one place in the module that exercises
// github.com/dgraph-io/ristretto/v2, present but unused in the
// teacher's own go.mod.
type classifyCache struct {
	c *ristretto.Cache[string, *pathclassifier.Result]
}

func newClassifyCache() *classifyCache {
	c, err := ristretto.NewCache(&ristretto.Config[string, *pathclassifier.Result]{
		NumCounters: 1e3,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		// A cache is a pure optimization here: 64 records, ≤64-byte
		// paths. If ristretto can't allocate its admission structures,
		// fall back to an always-miss cache rather than failing mount.
		return &classifyCache{}
	}
	return &classifyCache{c: c}
}

var (
	cachesMu sync.Mutex
	caches   = map[*mount.Mount]*classifyCache{}
)

func cacheFor(m *mount.Mount) *classifyCache {
	cachesMu.Lock()
	defer cachesMu.Unlock()
	cc, ok := caches[m]
	if !ok {
		cc = newClassifyCache()
		caches[m] = cc
	}
	return cc
}

func cacheGet(m *mount.Mount, path string) (*pathclassifier.Result, bool) {
	cc := cacheFor(m)
	if cc.c == nil {
		return nil, false
	}
	return cc.c.Get(path)
}

func cacheSet(m *mount.Mount, path string, res *pathclassifier.Result) {
	cc := cacheFor(m)
	if cc.c == nil {
		return
	}
	cc.c.Set(path, res, 1)
	cc.c.Wait()
}

// invalidate clears the whole cache for m. Called by every mutating
// record-store operation (new_file, unlink, mkdir, rmdir, rename,
// format) rather than carrying any finer-grained invalidation logic of
// its own — wholesale invalidation is correct and simple, matching the
// size of the problem.
func invalidate(m *mount.Mount) {
	cc := cacheFor(m)
	if cc.c == nil {
		return
	}
	cc.c.Clear()
}
