package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastRegistrationWins(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("a", 2))
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestConcurrentReadersDontBlock(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("k", 1))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Get("k")
		}()
	}
	wg.Wait()
}

func TestListIsNameOrdered(t *testing.T) {
	r := NewBaseRegistry[string]()
	require.NoError(t, r.Register("b", "B"))
	require.NoError(t, r.Register("a", "A"))
	require.NoError(t, r.Register("c", "C"))
	assert.Equal(t, []string{"A", "B", "C"}, r.List())
}

func TestRemoveMissingErrors(t *testing.T) {
	r := NewBaseRegistry[int]()
	assert.Error(t, r.Remove("missing"))
}
