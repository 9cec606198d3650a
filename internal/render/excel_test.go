package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExcelRenderer_Render(t *testing.T) {
	renderer := NewExcelRenderer(zap.NewNop())

	data, err := renderer.Render(testPackage())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	t.Run("has the expected sheets", func(t *testing.T) {
		sheets := f.GetSheetList()
		for _, want := range []string{"Schedule C", "Income", "Expenses", "Mileage", "Payer Summary"} {
			assert.Contains(t, sheets, want)
		}
		assert.NotContains(t, sheets, "Sheet1")
	})

	t.Run("schedule C title names the tax year", func(t *testing.T) {
		title, err := f.GetCellValue("Schedule C", "A1")
		require.NoError(t, err)
		assert.Contains(t, title, "2024")
	})

	t.Run("income sheet carries the row", func(t *testing.T) {
		desc, err := f.GetCellValue("Income", "C2")
		require.NoError(t, err)
		assert.Equal(t, "Private party set", desc)
	})
}
