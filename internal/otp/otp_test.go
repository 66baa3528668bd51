package otp

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)

		assert.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0], "code must not have a leading zero")

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)

		seen[code] = true
	}

	// 200 draws from 900k values should essentially never collide down to
	// a single code.
	assert.Greater(t, len(seen), 1)
}
