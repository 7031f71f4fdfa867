package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7_ValidFormat(t *testing.T) {
	id := UUIDv7{}.Generate()

	assert.Len(t, id, 36)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7_Concurrent(t *testing.T) {
	gen := UUIDv7{}
	const goroutines = 100

	out := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- gen.Generate()
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[string]bool)
	for id := range out {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines)
}
