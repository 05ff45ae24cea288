package storage

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/adi64/hyrise/utils"
)

// IndexInfo describes one live index of a table, with its memory usage
// summed over all chunks.
type IndexInfo struct {
	ColumnIDs         []ColumnID
	Type              IndexType
	MemoryConsumption uint64
}

// Catalog is the registry of live tables and the mutator for their
// secondary indexes. It is an explicit value threaded through the engine;
// there is no process-wide instance.
type Catalog struct {
	tables map[string]*Table
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// AddTable registers a table under its name.
func (c *Catalog) AddTable(t *Table) error {
	if _, ok := c.tables[t.Name()]; ok {
		return errors.Errorf("table %v already registered", t.Name())
	}
	c.tables[t.Name()] = t
	return nil
}

// TableNames returns all registered table names in stable order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the table registered under the given name.
func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, errors.Wrap(ErrTableNotFound, name)
	}
	return t, nil
}

// Indexes lists the live indexes of the given table. Every live
// (columns, type) pair appears exactly once, with memory summed over chunks.
func (c *Catalog) Indexes(tableName string) ([]IndexInfo, error) {
	t, err := c.Table(tableName)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var infos []IndexInfo
	for _, chunk := range t.chunks {
		for _, idx := range chunk.indexes {
			merged := false
			for i := range infos {
				if infos[i].Type == idx.Type() && columnIDsEqual(infos[i].ColumnIDs, idx.ColumnIDs()) {
					infos[i].MemoryConsumption += idx.MemoryConsumption()
					merged = true
					break
				}
			}
			if !merged {
				infos = append(infos, IndexInfo{
					ColumnIDs:         append([]ColumnID(nil), idx.ColumnIDs()...),
					Type:              idx.Type(),
					MemoryConsumption: idx.MemoryConsumption(),
				})
			}
		}
	}
	return infos, nil
}

// CreateIndex builds an index of the given type over the given columns on
// every chunk of the table. Chunks are indexed off to the side, concurrently,
// and the finished indexes are swapped in under the table lock so concurrent
// readers never observe a half-built index.
func (c *Catalog) CreateIndex(ctx context.Context, tableName string, columnIDs []ColumnID, indexType IndexType) error {
	t, err := c.Table(tableName)
	if err != nil {
		return err
	}
	for _, id := range columnIDs {
		if int(id) >= len(t.columns) {
			return errors.Errorf("table %v has no column %d", tableName, id)
		}
	}

	t.mu.RLock()
	chunks := append([]*Chunk(nil), t.chunks...)
	for _, chunk := range chunks {
		if chunk.GetIndex(indexType, columnIDs) != nil {
			t.mu.RUnlock()
			return errors.Wrapf(ErrIndexExists, "%v%v %v", tableName, columnIDs, indexType)
		}
	}
	t.mu.RUnlock()

	built := make([]ChunkIndex, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx, err := buildChunkIndex(indexType, chunk, columnIDs)
			if err != nil {
				return err
			}
			built[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "create index on %v%v", tableName, columnIDs)
	}

	t.mu.Lock()
	for i, chunk := range chunks {
		chunk.indexes = append(chunk.indexes, built[i])
	}
	t.mu.Unlock()
	utils.Debugf("created %v index on %v%v over %d chunks", indexType, tableName, columnIDs, len(chunks))
	return nil
}

// DropIndex unlinks the index of the given type over the given columns from
// every chunk. Deallocation is left to the garbage collector once outstanding
// readers drain.
func (c *Catalog) DropIndex(tableName string, columnIDs []ColumnID, indexType IndexType) error {
	t, err := c.Table(tableName)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	found := false
	for _, chunk := range t.chunks {
		for i, idx := range chunk.indexes {
			if idx.Type() == indexType && columnIDsEqual(idx.ColumnIDs(), columnIDs) {
				chunk.indexes = append(chunk.indexes[:i], chunk.indexes[i+1:]...)
				found = true
				break
			}
		}
	}
	if !found {
		return errors.Wrapf(ErrIndexNotFound, "%v%v %v", tableName, columnIDs, indexType)
	}
	utils.Debugf("dropped %v index on %v%v", indexType, tableName, columnIDs)
	return nil
}
