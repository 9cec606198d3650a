package taxexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryMapper_Map(t *testing.T) {
	mapper := NewCategoryMapper(0.5)

	t.Run("maps known categories to their tax lines", func(t *testing.T) {
		cases := []struct {
			raw string
			ref string
			pct float64
		}{
			{"Advertising", RefAdvertising, 1.0},
			{"Travel", RefTravel, 1.0},
			{"Lodging", RefTravel, 1.0},
			{"Supplies", RefSupplies, 1.0},
			{"Equipment/Gear", RefSupplies, 1.0},
			{"Insurance", RefInsurance, 1.0},
			{"Legal & Professional", RefLegalProfessional, 1.0},
			{"Meals & Entertainment", RefMeals, 0.5},
			{"Phone & Internet", RefUtilities, 1.0},
			{"Contract Labor", RefContractLabor, 1.0},
		}
		for _, tc := range cases {
			m := mapper.Map(tc.raw, nil)
			assert.Equal(t, tc.ref, m.RefNumber, "category %q", tc.raw)
			assert.Equal(t, tc.pct, m.DeductiblePercent, "category %q", tc.raw)
			assert.NotEmpty(t, m.LineName)
		}
	})

	t.Run("is total over arbitrary strings", func(t *testing.T) {
		corpus := []string{
			"", "   ", "Advertising", "meals", "MEALS & ENTERTAINMENT",
			"Llama grooming", "kazoo lessons", "other", "软件", "🎸 strings",
		}
		for _, raw := range corpus {
			m := mapper.Map(raw, nil)
			assert.NotEmpty(t, m.RefNumber, "category %q must map to some ref", raw)
			assert.NotEmpty(t, m.LineName)
		}
	})

	t.Run("unknown categories keep their label for itemization", func(t *testing.T) {
		m := mapper.Map("Llama grooming", nil)
		assert.Equal(t, RefOther, m.RefNumber)
		assert.Equal(t, "Llama grooming", m.OtherDescription)

		m = mapper.Map("  ", nil)
		assert.Equal(t, RefOther, m.RefNumber)
		assert.Equal(t, "Uncategorized", m.OtherDescription)
	})

	t.Run("software and education route to other with fixed labels", func(t *testing.T) {
		m := mapper.Map("Software", nil)
		assert.Equal(t, RefOther, m.RefNumber)
		assert.Equal(t, "Software & subscriptions", m.OtherDescription)

		m = mapper.Map("Training", nil)
		assert.Equal(t, RefOther, m.RefNumber)
		assert.Equal(t, "Education & training", m.OtherDescription)
	})

	t.Run("override percent wins over category default", func(t *testing.T) {
		pct := 0.8
		m := mapper.Map("Meals & Entertainment", &pct)
		assert.Equal(t, 0.8, m.DeductiblePercent)

		full := 1.0
		m = mapper.Map("Meals", &full)
		assert.Equal(t, 1.0, m.DeductiblePercent)
	})

	t.Run("legacy whole-number overrides are normalized", func(t *testing.T) {
		pct := 50.0
		m := mapper.Map("Meals", &pct)
		assert.Equal(t, 0.5, m.DeductiblePercent)
	})

	t.Run("is referentially transparent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			m := mapper.Map("Meals & Entertainment", nil)
			assert.Equal(t, RefMeals, m.RefNumber)
			assert.Equal(t, 0.5, m.DeductiblePercent)
		}
	})
}

func TestLineName(t *testing.T) {
	assert.Equal(t, "Other expenses", LineName(RefOther))
	assert.Equal(t, "Gross receipts or sales", LineName(RefGrossReceipts))
	assert.Equal(t, "99z", LineName("99z"))
}
