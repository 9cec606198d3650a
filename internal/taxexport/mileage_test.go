package taxexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMileageRateTable_RateForYear(t *testing.T) {
	table := DefaultMileageRates()

	t.Run("known years are exact hits", func(t *testing.T) {
		rate, exact := table.RateForYear(2024)
		assert.Equal(t, 0.67, rate)
		assert.True(t, exact)

		rate, exact = table.RateForYear(2021)
		assert.Equal(t, 0.56, rate)
		assert.True(t, exact)
	})

	t.Run("future years fall back to the latest published rate", func(t *testing.T) {
		rate, exact := table.RateForYear(2031)
		assert.Equal(t, 0.70, rate)
		assert.False(t, exact)
	})

	t.Run("years before the table use the earliest rate", func(t *testing.T) {
		rate, exact := table.RateForYear(2001)
		assert.Equal(t, 0.545, rate)
		assert.False(t, exact)
	})

	t.Run("empty table returns zero", func(t *testing.T) {
		rate, exact := MileageRateTable{}.RateForYear(2024)
		assert.Equal(t, 0.0, rate)
		assert.False(t, exact)
	})
}
