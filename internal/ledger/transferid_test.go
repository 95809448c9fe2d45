package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferIDShape(t *testing.T) {
	g := NewTransferIDGenerator()
	id := g.Next(func(string) bool { return false })

	require.Len(t, id, 12)
	assert.True(t, strings.HasPrefix(id, "TXF-"))
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestTransferIDsUniqueOverManyDraws(t *testing.T) {
	g := NewTransferIDGenerator()
	seen := make(map[string]struct{}, 10000)
	taken := func(id string) bool {
		_, ok := seen[id]
		return ok
	}

	for i := 0; i < 10000; i++ {
		id := g.Next(taken)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s after %d draws", id, i)
		seen[id] = struct{}{}
	}
}

func TestTransferIDRegeneratesOnCollision(t *testing.T) {
	candidates := []string{"TXF-AAAAAAAA", "TXF-AAAAAAAA", "TXF-BBBBBBBB"}
	i := 0
	g := &TransferIDGenerator{candidate: func() string {
		id := candidates[i]
		i++
		return id
	}}

	taken := func(id string) bool { return id == "TXF-AAAAAAAA" }

	assert.Equal(t, "TXF-BBBBBBBB", g.Next(taken))
	assert.Equal(t, 3, i, "generator must keep drawing until the candidate is free")
}
