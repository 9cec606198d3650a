package taxexport

import "sort"

// MileageRateTable maps tax years to the IRS standard mileage rate in
// dollars per business mile.
type MileageRateTable map[int]float64

// DefaultMileageRates holds the published standard rates. New filing seasons
// append here; years beyond the table fall back to the latest known rate.
func DefaultMileageRates() MileageRateTable {
	return MileageRateTable{
		2018: 0.545,
		2019: 0.58,
		2020: 0.575,
		2021: 0.56,
		2022: 0.585,
		2023: 0.655,
		2024: 0.67,
		2025: 0.70,
	}
}

// RateForYear returns the standard mileage rate for a tax year. For years
// beyond the table it returns the most recent known rate so a mileage
// deduction is always computable; the caller flags the result as an estimate.
// Returns the rate and whether it was an exact table hit.
func (t MileageRateTable) RateForYear(year int) (float64, bool) {
	if rate, ok := t[year]; ok {
		return rate, true
	}

	years := make([]int, 0, len(t))
	for y := range t {
		years = append(years, y)
	}
	sort.Ints(years)
	if len(years) == 0 {
		return 0, false
	}

	// Years before the table's range use the earliest known rate; years
	// after use the latest.
	if year < years[0] {
		return t[years[0]], false
	}
	return t[years[len(years)-1]], false
}
