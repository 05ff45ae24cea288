package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adi64/hyrise/storage"
)

func TestColumnRefKey(t *testing.T) {
	single := NewColumnRef("t", 3)
	require.Equal(t, "t[3]", single.Key())

	multi := ColumnRef{TableName: "t", ColumnIDs: []storage.ColumnID{1, 2}}
	require.Equal(t, "t[1,2]", multi.Key())
}

func TestColumnRefEqualIsStructural(t *testing.T) {
	a := NewColumnRef("t", 3)
	b := NewColumnRef("t", 3)
	require.True(t, a.Equal(b))

	require.False(t, a.Equal(NewColumnRef("u", 3)))
	require.False(t, a.Equal(NewColumnRef("t", 4)))
	require.False(t, a.Equal(ColumnRef{TableName: "t", ColumnIDs: []storage.ColumnID{3, 4}}))
}

func TestColumnRefKeyDistinguishesOrder(t *testing.T) {
	ab := ColumnRef{TableName: "t", ColumnIDs: []storage.ColumnID{1, 2}}
	ba := ColumnRef{TableName: "t", ColumnIDs: []storage.ColumnID{2, 1}}
	require.NotEqual(t, ab.Key(), ba.Key())
	require.False(t, ab.Equal(ba))
}
