package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRow_CloneIsIndependent(t *testing.T) {
	nested := map[string]any{"bid": 1.5}
	orig := NewRow("1", map[string]any{"price": 10, "book": nested})

	clone := orig.Clone()
	clone.Fields["price"] = 12

	require.Equal(t, 10, orig.Fields["price"])
	// Nested values are shared by design of the shallow merge.
	require.Equal(t, nested, clone.Fields["book"])
}

func TestRow_Value(t *testing.T) {
	r := NewRow("abc", map[string]any{"qty": 3})

	v, ok := r.Value("qty")
	require.True(t, ok)
	require.Equal(t, 3, v)

	v, ok = r.Value(KeyField)
	require.True(t, ok)
	require.Equal(t, "abc", v)

	_, ok = r.Value("missing")
	require.False(t, ok)

	shadow := NewRow("abc", map[string]any{KeyField: "custom"})
	v, _ = shadow.Value(KeyField)
	require.Equal(t, "custom", v)
}

func TestNewRow_NilFields(t *testing.T) {
	r := NewRow("k", nil)
	require.NotNil(t, r.Fields)
	require.Empty(t, r.Fields)
}

func TestDiff_IsEmptyAndSize(t *testing.T) {
	require.True(t, Diff{}.IsEmpty())

	d := Diff{
		Added:       []Row{NewRow("1", nil)},
		RemovedKeys: []Key{"2", "3"},
	}
	require.False(t, d.IsEmpty())
	require.Equal(t, 3, d.Size())
}

func TestOp_Valid(t *testing.T) {
	require.True(t, OpUpdate.Valid())
	require.True(t, OpRemove.Valid())
	require.False(t, Op("upsert").Valid())
	require.False(t, Op("").Valid())
}
