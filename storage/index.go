package storage

import (
	"sort"

	"github.com/pkg/errors"
)

// IndexType enumerates the secondary index implementations.
type IndexType int

const (
	IndexInvalid IndexType = iota
	IndexGroupKey
	IndexCompositeGroupKey
	IndexAdaptiveRadixTree
)

func (t IndexType) String() string {
	switch t {
	case IndexGroupKey:
		return "group-key"
	case IndexCompositeGroupKey:
		return "composite-group-key"
	case IndexAdaptiveRadixTree:
		return "adaptive-radix-tree"
	}
	return "invalid"
}

// ParseIndexType parses the string form produced by IndexType.String.
func ParseIndexType(s string) (IndexType, error) {
	switch s {
	case "group-key":
		return IndexGroupKey, nil
	case "composite-group-key":
		return IndexCompositeGroupKey, nil
	case "adaptive-radix-tree":
		return IndexAdaptiveRadixTree, nil
	}
	return IndexInvalid, errors.Errorf("unknown index type %q", s)
}

// ChunkIndex is a secondary index over one chunk of a table.
type ChunkIndex interface {
	Type() IndexType
	ColumnIDs() []ColumnID
	// Lookup returns the chunk offsets holding the given key, one value per
	// indexed column.
	Lookup(key []Value) []ChunkOffset
	// MemoryConsumption reports the index's memory usage in bytes.
	MemoryConsumption() uint64
}

// buildChunkIndex constructs an index of the given type over a chunk.
func buildChunkIndex(indexType IndexType, chunk *Chunk, columnIDs []ColumnID) (ChunkIndex, error) {
	switch indexType {
	case IndexGroupKey:
		if len(columnIDs) != 1 {
			return nil, errors.Errorf("group-key index requires exactly one column, got %d", len(columnIDs))
		}
		return newGroupKeyIndex(chunk, columnIDs[0]), nil
	case IndexCompositeGroupKey:
		if len(columnIDs) == 0 {
			return nil, errors.New("composite-group-key index requires at least one column")
		}
		return newCompositeGroupKeyIndex(chunk, columnIDs), nil
	case IndexAdaptiveRadixTree:
		if len(columnIDs) != 1 {
			return nil, errors.Errorf("adaptive-radix-tree index requires exactly one column, got %d", len(columnIDs))
		}
		return newAdaptiveRadixIndex(chunk, columnIDs[0]), nil
	}
	return nil, errors.Errorf("cannot build index of type %v", indexType)
}

// PredictMemoryConsumption estimates the per-chunk memory in bytes an index
// of the given type would use, assuming an equal value distribution.
func PredictMemoryConsumption(indexType IndexType, chunkRows, chunkDistinct, valueBytes uint64) uint64 {
	switch indexType {
	case IndexGroupKey:
		// dictionary of distinct values plus one position per row and one
		// offset per dictionary entry
		return chunkDistinct*(valueBytes+4) + chunkRows*4
	case IndexCompositeGroupKey:
		// concatenated keys are materialized in the dictionary
		return chunkDistinct*(valueBytes+8) + chunkRows*8
	case IndexAdaptiveRadixTree:
		// per-row leaf entries plus amortized inner-node overhead per
		// distinct key
		return chunkRows*(valueBytes+16) + chunkDistinct*32
	}
	return 0
}

// groupKeyIndex is a dictionary index: sorted distinct values, an offset
// slice delimiting each value's postings, and the postings themselves.
type groupKeyIndex struct {
	columnID  ColumnID
	keys      []Value
	offsets   []uint32
	positions []ChunkOffset
	keyBytes  uint64
}

func newGroupKeyIndex(chunk *Chunk, columnID ColumnID) *groupKeyIndex {
	vector := chunk.Vector(columnID)
	groups := make(map[Value][]ChunkOffset, len(vector))
	for off, v := range vector {
		groups[v] = append(groups[v], ChunkOffset(off))
	}
	keys := make([]Value, 0, len(groups))
	for v := range groups {
		keys = append(keys, v)
	}
	sort.Slice(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })

	idx := &groupKeyIndex{
		columnID:  columnID,
		keys:      keys,
		offsets:   make([]uint32, 0, len(keys)+1),
		positions: make([]ChunkOffset, 0, len(vector)),
	}
	for _, k := range keys {
		idx.offsets = append(idx.offsets, uint32(len(idx.positions)))
		idx.positions = append(idx.positions, groups[k]...)
		idx.keyBytes += k.byteWidth()
	}
	idx.offsets = append(idx.offsets, uint32(len(idx.positions)))
	return idx
}

func (idx *groupKeyIndex) Type() IndexType { return IndexGroupKey }
func (idx *groupKeyIndex) ColumnIDs() []ColumnID { return []ColumnID{idx.columnID} }

func (idx *groupKeyIndex) Lookup(key []Value) []ChunkOffset {
	if len(key) != 1 {
		return nil
	}
	i := sort.Search(len(idx.keys), func(i int) bool { return Compare(idx.keys[i], key[0]) >= 0 })
	if i >= len(idx.keys) || Compare(idx.keys[i], key[0]) != 0 {
		return nil
	}
	return idx.positions[idx.offsets[i]:idx.offsets[i+1]]
}

func (idx *groupKeyIndex) MemoryConsumption() uint64 {
	return idx.keyBytes + uint64(len(idx.offsets))*4 + uint64(len(idx.positions))*4
}

// compositeGroupKeyIndex generalizes the group-key layout to concatenated
// multi-column keys.
type compositeGroupKeyIndex struct {
	columnIDs []ColumnID
	keys      []string
	offsets   []uint32
	positions []ChunkOffset
	keyBytes  uint64
}

func newCompositeGroupKeyIndex(chunk *Chunk, columnIDs []ColumnID) *compositeGroupKeyIndex {
	size := int(chunk.Size())
	groups := make(map[string][]ChunkOffset, size)
	for off := 0; off < size; off++ {
		key := compositeKey(chunk, columnIDs, ChunkOffset(off))
		groups[key] = append(groups[key], ChunkOffset(off))
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := &compositeGroupKeyIndex{
		columnIDs: append([]ColumnID(nil), columnIDs...),
		keys:      keys,
		offsets:   make([]uint32, 0, len(keys)+1),
		positions: make([]ChunkOffset, 0, size),
	}
	for _, k := range keys {
		idx.offsets = append(idx.offsets, uint32(len(idx.positions)))
		idx.positions = append(idx.positions, groups[k]...)
		idx.keyBytes += uint64(len(k))
	}
	idx.offsets = append(idx.offsets, uint32(len(idx.positions)))
	return idx
}

func compositeKey(chunk *Chunk, columnIDs []ColumnID, off ChunkOffset) string {
	var buf []byte
	for _, id := range columnIDs {
		part := encodeKey(chunk.Vector(id)[off])
		// length-prefix each part so that concatenations stay unambiguous
		buf = append(buf, byte(len(part)>>8), byte(len(part)))
		buf = append(buf, part...)
	}
	return string(buf)
}

func (idx *compositeGroupKeyIndex) Type() IndexType { return IndexCompositeGroupKey }
func (idx *compositeGroupKeyIndex) ColumnIDs() []ColumnID { return idx.columnIDs }

func (idx *compositeGroupKeyIndex) Lookup(key []Value) []ChunkOffset {
	if len(key) != len(idx.columnIDs) {
		return nil
	}
	var buf []byte
	for _, v := range key {
		part := encodeKey(v)
		buf = append(buf, byte(len(part)>>8), byte(len(part)))
		buf = append(buf, part...)
	}
	want := string(buf)
	i := sort.SearchStrings(idx.keys, want)
	if i >= len(idx.keys) || idx.keys[i] != want {
		return nil
	}
	return idx.positions[idx.offsets[i]:idx.offsets[i+1]]
}

func (idx *compositeGroupKeyIndex) MemoryConsumption() uint64 {
	return idx.keyBytes + uint64(len(idx.offsets))*4 + uint64(len(idx.positions))*4
}

// adaptiveRadixIndex is a byte-wise radix tree over the order-preserving
// key encoding of a single column.
type adaptiveRadixIndex struct {
	columnID ColumnID
	root     *artNode
	nodes    uint64
	keyBytes uint64
	entries  uint64
}

type artNode struct {
	children  map[byte]*artNode
	positions []ChunkOffset
}

func newAdaptiveRadixIndex(chunk *Chunk, columnID ColumnID) *adaptiveRadixIndex {
	idx := &adaptiveRadixIndex{columnID: columnID, root: &artNode{}}
	idx.nodes = 1
	for off, v := range chunk.Vector(columnID) {
		key := encodeKey(v)
		node := idx.root
		for _, b := range key {
			if node.children == nil {
				node.children = make(map[byte]*artNode)
			}
			child, ok := node.children[b]
			if !ok {
				child = &artNode{}
				node.children[b] = child
				idx.nodes++
			}
			node = child
		}
		node.positions = append(node.positions, ChunkOffset(off))
		idx.keyBytes += uint64(len(key))
		idx.entries++
	}
	return idx
}

func (idx *adaptiveRadixIndex) Type() IndexType { return IndexAdaptiveRadixTree }
func (idx *adaptiveRadixIndex) ColumnIDs() []ColumnID { return []ColumnID{idx.columnID} }

func (idx *adaptiveRadixIndex) Lookup(key []Value) []ChunkOffset {
	if len(key) != 1 {
		return nil
	}
	node := idx.root
	for _, b := range encodeKey(key[0]) {
		child, ok := node.children[b]
		if !ok {
			return nil
		}
		node = child
	}
	return node.positions
}

func (idx *adaptiveRadixIndex) MemoryConsumption() uint64 {
	return idx.nodes*16 + idx.entries*4
}
