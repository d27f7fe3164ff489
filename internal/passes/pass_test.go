package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByNameExactMatch(t *testing.T) {
	for _, name := range []string{"target-layout", "internalize", "mem2reg", "verify", "tm-instrument", "dce", "noop"} {
		t.Run(name, func(t *testing.T) {
			p, ok := FindByName(name)
			require.True(t, ok)
			assert.Equal(t, name, p.Name())
		})
	}
}

func TestFindByNameMiss(t *testing.T) {
	tests := []string{"", "tm", "TM-INSTRUMENT", "tm-instrument ", "does-not-exist"}
	for _, name := range tests {
		p, ok := FindByName(name)
		assert.False(t, ok, "name %q", name)
		assert.Nil(t, p)
	}
}

func TestFindByNameReturnsFreshInstance(t *testing.T) {
	a, ok := FindByName("dce")
	require.True(t, ok)
	b, ok := FindByName("dce")
	require.True(t, ok)
	assert.NotSame(t, a, b)
}

func TestListSorted(t *testing.T) {
	infos := List()
	require.NotEmpty(t, infos)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].Argument, infos[i].Argument)
	}
	for _, info := range infos {
		assert.NotEmpty(t, info.Description, info.Argument)
	}
}

func TestRegisterPanics(t *testing.T) {
	assert.Panics(t, func() { Register(Info{Argument: " ", New: func() Pass { return Noop{} }}) })
	assert.Panics(t, func() { Register(Info{Argument: "no-constructor"}) })
	assert.Panics(t, func() { Register(Info{Argument: "noop", New: func() Pass { return Noop{} }}) })
}
