package plancache

import (
	"github.com/pingcap/parser"

	"github.com/adi64/hyrise/plan"
)

// CachedPlan is the unit the engine caches per statement digest: the query
// text plus its logical and physical plan forms.
type CachedPlan struct {
	SQL      string
	Logical  *plan.LogicalPlan
	Physical *plan.PhysicalPlan
}

// Snapshotter is the surface the tuner consumes: cache entries in
// GDFS-priority order. A cache that cannot provide it is opaque to the
// tuner, which then skips the pass.
type Snapshotter interface {
	Values() []Entry[*CachedPlan]
}

// PlanCache caches query plans keyed by normalized statement digest, so
// literal variants of the same statement share one entry and aggregate
// frequency.
type PlanCache struct {
	cache *GDFSCache[*CachedPlan]
}

// NewPlanCache creates a plan cache bounded to the given number of entries.
func NewPlanCache(capacity int) *PlanCache {
	return &PlanCache{cache: NewGDFSCache[*CachedPlan](capacity)}
}

func digest(sql string) string {
	_, d := parser.NormalizeDigest(sql)
	if d == "" {
		return sql
	}
	return d
}

// Get returns the cached plan for the statement, counting the access.
func (pc *PlanCache) Get(sql string) (*CachedPlan, bool) {
	return pc.cache.Get(digest(sql))
}

// Put caches the plan for the statement. Re-putting counts as an access.
func (pc *PlanCache) Put(sql string, cached *CachedPlan) {
	size := 1.0
	if cached.Logical != nil {
		size = float64(cached.Logical.Len())
	}
	pc.cache.Put(digest(sql), cached, size)
}

// Size returns the number of cached plans.
func (pc *PlanCache) Size() int { return pc.cache.Size() }

// Clear evicts everything, e.g. after a structural change to a table.
func (pc *PlanCache) Clear() { pc.cache.Clear() }

// Values returns the cached plans in descending GDFS priority.
func (pc *PlanCache) Values() []Entry[*CachedPlan] {
	return pc.cache.SnapshotByPriority()
}
