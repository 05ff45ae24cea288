package storage

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultChunkCapacity is the number of rows a chunk holds before the table
// starts a new one.
const DefaultChunkCapacity = 65536

// ColumnDefinition describes one column of a table.
type ColumnDefinition struct {
	Name string
	Type DataType
}

// Chunk is a horizontal partition of a table: one value vector per column
// plus the secondary indexes built over those vectors.
type Chunk struct {
	vectors [][]Value
	indexes []ChunkIndex
}

// Size returns the number of rows in the chunk.
func (c *Chunk) Size() ChunkOffset {
	if len(c.vectors) == 0 {
		return 0
	}
	return ChunkOffset(len(c.vectors[0]))
}

// Vector returns the value vector of the given column.
func (c *Chunk) Vector(column ColumnID) []Value {
	return c.vectors[column]
}

// GetIndex returns the chunk's index of the given type over the given columns,
// or nil if none exists.
func (c *Chunk) GetIndex(indexType IndexType, columnIDs []ColumnID) ChunkIndex {
	for _, idx := range c.indexes {
		if idx.Type() == indexType && columnIDsEqual(idx.ColumnIDs(), columnIDs) {
			return idx
		}
	}
	return nil
}

// Table is an append-only chunked column store table.
type Table struct {
	mu            sync.RWMutex
	name          string
	columns       []ColumnDefinition
	chunkCapacity ChunkOffset
	chunks        []*Chunk
}

// TableOption configures table construction.
type TableOption func(*Table)

// WithChunkCapacity overrides the default chunk capacity.
func WithChunkCapacity(capacity ChunkOffset) TableOption {
	return func(t *Table) { t.chunkCapacity = capacity }
}

// NewTable creates an empty table with the given column definitions.
func NewTable(name string, columns []ColumnDefinition, opts ...TableOption) *Table {
	t := &Table{
		name:          name,
		columns:       columns,
		chunkCapacity: DefaultChunkCapacity,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.chunks = append(t.chunks, t.newChunk())
	return t
}

func (t *Table) newChunk() *Chunk {
	c := &Chunk{vectors: make([][]Value, len(t.columns))}
	for i := range c.vectors {
		c.vectors[i] = make([]Value, 0, t.chunkCapacity)
	}
	return c
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// ColumnName returns the name of the given column.
func (t *Table) ColumnName(id ColumnID) string { return t.columns[id].Name }

// ColumnType returns the data type of the given column.
func (t *Table) ColumnType(id ColumnID) DataType { return t.columns[id].Type }

// ColumnIDByName resolves a column name to its id.
func (t *Table) ColumnIDByName(name string) (ColumnID, bool) {
	for i, col := range t.columns {
		if col.Name == name {
			return ColumnID(i), true
		}
	}
	return 0, false
}

// Append adds one row to the table, starting a new chunk when the current
// one is full. New chunks start without indexes; indexes built on earlier
// chunks are not extended to them.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.columns) {
		return errors.Errorf("table %v: appending row with %d values to %d columns", t.name, len(row), len(t.columns))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	last := t.chunks[len(t.chunks)-1]
	if last.Size() >= t.chunkCapacity {
		last = t.newChunk()
		t.chunks = append(t.chunks, last)
	}
	for i, v := range row {
		last.vectors[i] = append(last.vectors[i], v)
	}
	return nil
}

// RowCount returns the total number of rows across all chunks.
func (t *Table) RowCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var n uint64
	for _, c := range t.chunks {
		n += uint64(c.Size())
	}
	return n
}

// ChunkCount returns the number of chunks.
func (t *Table) ChunkCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.chunks))
}

// GetChunk returns the chunk with the given id.
func (t *Table) GetChunk(id uint64) *Chunk {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chunks[id]
}

func columnIDsEqual(a, b []ColumnID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
