package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"savings":  KindSavings,
		" Current": KindCurrent,
		"SALARY":   KindSalary,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("offshore")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSupportsOverdraft(t *testing.T) {
	assert.True(t, KindCurrent.SupportsOverdraft())
	assert.False(t, KindSavings.SupportsOverdraft())
	assert.False(t, KindSalary.SupportsOverdraft())
}

func TestKindTitle(t *testing.T) {
	assert.Equal(t, "Savings", KindSavings.Title())
	assert.Equal(t, "Current", KindCurrent.Title())
}
