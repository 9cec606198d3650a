package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTXFRenderer_Render(t *testing.T) {
	renderer := NewTXFRenderer(zap.NewNop())

	data, err := renderer.Render(testPackage())
	require.NoError(t, err)
	payload := string(data)
	lines := strings.Split(strings.TrimRight(payload, "\r\n"), "\r\n")

	t.Run("header block", func(t *testing.T) {
		require.True(t, len(lines) >= 4)
		assert.Equal(t, "V042", lines[0])
		assert.Equal(t, "AGigLedger 2024.1", lines[1])
		assert.Equal(t, "D03/01/2025", lines[2])
		assert.Equal(t, "^", lines[3])
	})

	t.Run("one record per line item", func(t *testing.T) {
		assert.Equal(t, 3, strings.Count(payload, "TD\r\n"))
	})

	t.Run("amounts are positive entry values", func(t *testing.T) {
		assert.Contains(t, payload, "$1500.00")
		assert.Contains(t, payload, "$120.00")
		assert.NotContains(t, payload, "$-")
	})

	t.Run("known refs map to their codes", func(t *testing.T) {
		assert.Contains(t, payload, "N293") // gross receipts
		assert.Contains(t, payload, "N318") // supplies
		assert.Contains(t, payload, "N326") // other expenses
	})
}
