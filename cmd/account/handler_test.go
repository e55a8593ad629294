package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/vpsbot/types"
)

func TestParseAmount(t *testing.T) {
	n, err := parseAmount("150")
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	for _, bad := range []string{"0", "-5", "ten", ""} {
		_, err := parseAmount(bad)
		assert.ErrorIs(t, err, types.ErrInvalidInput, bad)
	}
}
