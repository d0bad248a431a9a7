package indexset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIndexSet(t *testing.T) {
	r := NewRegistry()

	h, err := r.RegisterIndexSet("landscape")
	require.NoError(t, err)
	assert.Equal(t, Handle(0), h)
	assert.Equal(t, "landscape", r.Name(h))

	_, err = r.RegisterIndexSet("landscape")
	assert.ErrorIs(t, err, ErrDuplicateIndexSet)

	_, err = r.RegisterBranchedIndexSet("landscape")
	assert.ErrorIs(t, err, ErrDuplicateIndexSet)

	_, err = r.RegisterIndexSet("")
	assert.Error(t, err)

	got, err := r.Lookup("landscape")
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = r.Lookup("reach")
	var idxErr *IndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, "reach", idxErr.Set)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupOrRegister(t *testing.T) {
	r := NewRegistry()
	land, err := r.LookupOrRegister("landscape", false)
	require.NoError(t, err)
	again, err := r.LookupOrRegister("landscape", false)
	require.NoError(t, err)
	assert.Equal(t, land, again)
	assert.Equal(t, 1, r.Len())

	_, err = r.LookupOrRegister("landscape", true)
	assert.ErrorContains(t, err, "branched=false")

	reach, err := r.LookupOrRegister("reach", true)
	require.NoError(t, err)
	assert.True(t, r.IsBranched(reach))

	_, err = r.RegisterSubIndexSet("layer", land)
	require.NoError(t, err)
	_, err = r.LookupOrRegister("layer", false)
	assert.ErrorContains(t, err, "tied")

	r.Freeze()
	_, err = r.LookupOrRegister("soil", false)
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestAddIndex(t *testing.T) {
	r := NewRegistry()
	h, err := r.RegisterIndexSet("landscape")
	require.NoError(t, err)

	require.NoError(t, r.AddIndex(h, "forest"))
	require.NoError(t, r.AddIndex(h, "arable"))
	assert.ErrorIs(t, r.AddIndex(h, "forest"), ErrDuplicateIndex)

	assert.Equal(t, 2, r.IndexCount(h))
	pos, err := r.IndexPosition(h, "arable")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "arable", r.IndexName(h, 0, 1))

	_, err = r.IndexPosition(h, "urban")
	var idxErr *IndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, "landscape", idxErr.Set)
	assert.Equal(t, "urban", idxErr.Name)

	err = r.AddBranchIndex(h, "urban", []string{"forest"})
	assert.ErrorContains(t, err, "not branched")
}

func TestAddBranchIndex(t *testing.T) {
	r := NewRegistry()
	h, err := r.RegisterBranchedIndexSet("reach")
	require.NoError(t, err)

	require.NoError(t, r.AddIndex(h, "a"))
	require.NoError(t, r.AddIndex(h, "b"))
	require.NoError(t, r.AddBranchIndex(h, "c", []string{"a", "b"}))

	assert.True(t, r.IsBranched(h))
	assert.Equal(t, []int{0, 1}, r.BranchInputs(h, 2))
	assert.Empty(t, r.BranchInputs(h, 0))

	t.Run("forward reference is rejected", func(t *testing.T) {
		err := r.AddBranchIndex(h, "d", []string{"e"})
		assert.ErrorIs(t, err, ErrForwardBranchReference)
		assert.ErrorContains(t, err, `"e"`)
		assert.Equal(t, 3, r.IndexCount(h), "a rejected index must not be added")
	})

	t.Run("self reference is a forward reference", func(t *testing.T) {
		err := r.AddBranchIndex(h, "d", []string{"d"})
		assert.ErrorIs(t, err, ErrForwardBranchReference)
	})

	t.Run("duplicate input is rejected", func(t *testing.T) {
		err := r.AddBranchIndex(h, "d", []string{"a", "a"})
		assert.ErrorContains(t, err, "twice")
	})
}

func TestSubIndexSet(t *testing.T) {
	r := NewRegistry()
	land, err := r.RegisterIndexSet("landscape")
	require.NoError(t, err)
	layer, err := r.RegisterSubIndexSet("layer", land)
	require.NoError(t, err)

	require.NoError(t, r.AddIndex(land, "forest"))
	require.NoError(t, r.AddIndex(land, "arable"))
	require.NoError(t, r.AddSubIndex(layer, "forest", "top"))
	require.NoError(t, r.AddSubIndex(layer, "forest", "deep"))
	require.NoError(t, r.AddSubIndex(layer, "arable", "plough"))

	assert.ErrorIs(t, r.AddSubIndex(layer, "forest", "top"), ErrDuplicateIndex)
	assert.ErrorIs(t, r.AddSubIndex(layer, "urban", "top"), ErrNotFound)
	assert.Error(t, r.AddIndex(layer, "top"))

	parent, tied := r.Parent(layer)
	assert.True(t, tied)
	assert.Equal(t, land, parent)
	assert.Equal(t, 2, r.Count(layer, 0))
	assert.Equal(t, 1, r.Count(layer, 1))
	assert.Equal(t, 3, r.IndexCount(layer))

	pos, err := r.SubIndexPosition(layer, 1, "plough")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	_, err = r.SubIndexPosition(layer, 1, "deep")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.RegisterSubIndexSet("horizon", layer)
	assert.ErrorContains(t, err, "nested ties")
}

func TestFreeze(t *testing.T) {
	r := NewRegistry()
	h, err := r.RegisterIndexSet("landscape")
	require.NoError(t, err)
	r.Freeze()

	assert.ErrorIs(t, r.AddIndex(h, "forest"), ErrFrozen)
	_, err = r.RegisterIndexSet("reach")
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestCanonical(t *testing.T) {
	r := NewRegistry()
	reach, _ := r.RegisterBranchedIndexSet("reach")
	land, _ := r.RegisterIndexSet("landscape")
	layer, _ := r.RegisterSubIndexSet("layer", land)

	assert.Equal(t, []Handle{reach, land, layer}, r.Canonical([]Handle{layer, reach, reach}))
	assert.Equal(t, []Handle{reach}, r.Without([]Handle{reach, land, layer}, land))
	assert.Empty(t, r.Canonical(nil))
}
