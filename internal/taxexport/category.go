package taxexport

import (
	"fmt"
	"strings"
)

// Category is the closed set of expense categories the mapper understands.
// Free-form user input is parsed into one of these; anything unrecognized
// becomes CategoryOther so that no expense is ever dropped from the export.
type Category string

const (
	CategoryAdvertising      Category = "advertising"
	CategoryCarTruck         Category = "car_truck"
	CategoryCommissionsFees  Category = "commissions_fees"
	CategoryContractLabor    Category = "contract_labor"
	CategoryInsurance        Category = "insurance"
	CategoryLegalProfessional Category = "legal_professional"
	CategoryOfficeExpense    Category = "office_expense"
	CategoryRentEquipment    Category = "rent_equipment"
	CategoryRepairs          Category = "repairs"
	CategorySupplies         Category = "supplies"
	CategoryTaxesLicenses    Category = "taxes_licenses"
	CategoryTravel           Category = "travel"
	CategoryMeals            Category = "meals"
	CategoryUtilities        Category = "utilities"
	CategoryEquipmentGear    Category = "equipment_gear"
	CategoryEducation        Category = "education"
	CategorySoftware         Category = "software"
	CategoryPhoneInternet    Category = "phone_internet"
	CategoryHomeOffice       Category = "home_office"
	CategoryOther            Category = "other"
)

// Schedule C line reference numbers. Kept as strings because several lines
// carry letter suffixes (24a/24b, 27a).
const (
	RefGrossReceipts     = "1"
	RefReturnsAllowances = "2"
	RefCOGS              = "4"
	RefOtherIncome       = "6"
	RefAdvertising       = "8"
	RefCarTruck          = "9"
	RefCommissionsFees   = "10"
	RefContractLabor     = "11"
	RefDepreciation      = "13"
	RefInsurance         = "15"
	RefLegalProfessional = "17"
	RefOfficeExpense     = "18"
	RefRentEquipment     = "20a"
	RefRepairs           = "21"
	RefSupplies          = "22"
	RefTaxesLicenses     = "23"
	RefTravel            = "24a"
	RefMeals             = "24b"
	RefUtilities         = "25"
	RefOther             = "27a"
)

// lineNames gives the human-readable Schedule C line name per ref number.
var lineNames = map[string]string{
	RefGrossReceipts:     "Gross receipts or sales",
	RefReturnsAllowances: "Returns and allowances",
	RefCOGS:              "Cost of goods sold",
	RefOtherIncome:       "Other income",
	RefAdvertising:       "Advertising",
	RefCarTruck:          "Car and truck expenses",
	RefCommissionsFees:   "Commissions and fees",
	RefContractLabor:     "Contract labor",
	RefDepreciation:      "Depreciation",
	RefInsurance:         "Insurance (other than health)",
	RefLegalProfessional: "Legal and professional services",
	RefOfficeExpense:     "Office expense",
	RefRentEquipment:     "Rent or lease: vehicles, machinery, equipment",
	RefRepairs:           "Repairs and maintenance",
	RefSupplies:          "Supplies",
	RefTaxesLicenses:     "Taxes and licenses",
	RefTravel:            "Travel",
	RefMeals:             "Deductible meals",
	RefUtilities:         "Utilities",
	RefOther:             "Other expenses",
}

// LineName returns the Schedule C line name for a ref number, or the ref
// itself when unknown.
func LineName(refNumber string) string {
	if name, ok := lineNames[refNumber]; ok {
		return name
	}
	return refNumber
}

// categoryAliases normalizes the free-form category strings the app has
// historically stored. Keys are lower-cased, trimmed input.
var categoryAliases = map[string]Category{
	"advertising":            CategoryAdvertising,
	"advertising & promotion": CategoryAdvertising,
	"marketing":              CategoryAdvertising,
	"car & truck":            CategoryCarTruck,
	"car/truck":              CategoryCarTruck,
	"vehicle":                CategoryCarTruck,
	"commissions & fees":     CategoryCommissionsFees,
	"commissions":            CategoryCommissionsFees,
	"platform fees":          CategoryCommissionsFees,
	"contract labor":         CategoryContractLabor,
	"subcontractors":         CategoryContractLabor,
	"insurance":              CategoryInsurance,
	"legal & professional":   CategoryLegalProfessional,
	"legal":                  CategoryLegalProfessional,
	"accounting":             CategoryLegalProfessional,
	"office expense":         CategoryOfficeExpense,
	"office supplies":        CategoryOfficeExpense,
	"equipment rental":       CategoryRentEquipment,
	"rent - equipment":       CategoryRentEquipment,
	"repairs":                CategoryRepairs,
	"repairs & maintenance":  CategoryRepairs,
	"supplies":               CategorySupplies,
	"taxes & licenses":       CategoryTaxesLicenses,
	"licenses":               CategoryTaxesLicenses,
	"travel":                 CategoryTravel,
	"lodging":                CategoryTravel,
	"hotels":                 CategoryTravel,
	"meals":                  CategoryMeals,
	"meals & entertainment":  CategoryMeals,
	"business meals":         CategoryMeals,
	"utilities":              CategoryUtilities,
	"equipment/gear":         CategoryEquipmentGear,
	"equipment":              CategoryEquipmentGear,
	"gear":                   CategoryEquipmentGear,
	"instruments":            CategoryEquipmentGear,
	"education":              CategoryEducation,
	"training":               CategoryEducation,
	"courses":                CategoryEducation,
	"software":               CategorySoftware,
	"subscriptions":          CategorySoftware,
	"software & subscriptions": CategorySoftware,
	"phone & internet":       CategoryPhoneInternet,
	"phone":                  CategoryPhoneInternet,
	"internet":               CategoryPhoneInternet,
	"home office":            CategoryHomeOffice,
	"other":                  CategoryOther,
}

// ParseCategory maps a free-form category string to its canonical Category.
// Unrecognized strings parse to CategoryOther; the literal input is preserved
// by the mapper as the other-expenses description.
func ParseCategory(raw string) Category {
	key := strings.ToLower(strings.TrimSpace(raw))
	if cat, ok := categoryAliases[key]; ok {
		return cat
	}
	return CategoryOther
}

// CategoryMapping is the result of resolving a category for the export.
type CategoryMapping struct {
	Category          Category
	RefNumber         string
	LineName          string
	DeductiblePercent float64 // 0..1
	// OtherDescription is set only for CategoryOther rows so the breakdown
	// can itemize them by their original label.
	OtherDescription string
}

// CategoryMapper resolves free-form expense categories to Schedule C lines
// and deductible fractions. It is a pure, total function over strings: every
// input maps to some ref number.
type CategoryMapper struct {
	mealsPercent float64
}

// NewCategoryMapper builds a mapper with the configured default meals
// deductible percent (0..1).
func NewCategoryMapper(mealsPercent float64) *CategoryMapper {
	return &CategoryMapper{mealsPercent: mealsPercent}
}

// Map resolves a category string plus an optional per-row override percent.
// The override, when supplied, takes precedence over the category default.
func (m *CategoryMapper) Map(raw string, overridePercent *float64) CategoryMapping {
	cat := ParseCategory(raw)

	result := CategoryMapping{
		Category:          cat,
		DeductiblePercent: 1.0,
	}

	switch cat {
	case CategoryAdvertising:
		result.RefNumber = RefAdvertising
	case CategoryCarTruck:
		result.RefNumber = RefCarTruck
	case CategoryCommissionsFees:
		result.RefNumber = RefCommissionsFees
	case CategoryContractLabor:
		result.RefNumber = RefContractLabor
	case CategoryInsurance:
		result.RefNumber = RefInsurance
	case CategoryLegalProfessional:
		result.RefNumber = RefLegalProfessional
	case CategoryOfficeExpense:
		result.RefNumber = RefOfficeExpense
	case CategoryRentEquipment:
		result.RefNumber = RefRentEquipment
	case CategoryRepairs:
		result.RefNumber = RefRepairs
	case CategorySupplies, CategoryEquipmentGear:
		result.RefNumber = RefSupplies
	case CategoryTaxesLicenses:
		result.RefNumber = RefTaxesLicenses
	case CategoryTravel:
		result.RefNumber = RefTravel
	case CategoryMeals:
		result.RefNumber = RefMeals
		result.DeductiblePercent = m.mealsPercent
	case CategoryUtilities, CategoryPhoneInternet:
		result.RefNumber = RefUtilities
	case CategoryEducation, CategorySoftware, CategoryHomeOffice, CategoryOther:
		result.RefNumber = RefOther
		result.OtherDescription = otherDescription(raw, cat)
	default:
		// Unreachable while Category stays closed; routed to Other so the
		// mapper remains total even if a new constant is added unmapped.
		result.RefNumber = RefOther
		result.OtherDescription = otherDescription(raw, CategoryOther)
	}

	if overridePercent != nil {
		result.DeductiblePercent = clampPercent(*overridePercent)
	}

	result.LineName = LineName(result.RefNumber)
	return result
}

// otherDescription derives the itemization label for rows routed to the
// Other Expenses line. The original user label is preserved so nothing is
// silently folded into an opaque bucket.
func otherDescription(raw string, cat Category) string {
	switch cat {
	case CategoryEducation:
		return "Education & training"
	case CategorySoftware:
		return "Software & subscriptions"
	case CategoryHomeOffice:
		return "Home office"
	}
	label := strings.TrimSpace(raw)
	if label == "" {
		label = "Uncategorized"
	}
	return label
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		// Stored overrides predate the 0..1 convention; treat 50 as 50%.
		if p <= 100 {
			return p / 100
		}
		return 1
	}
	return p
}

// FormatOtherBucketKey builds the mutually-exclusive breakdown key for an
// other-expenses entry: "<app label>: <original category>".
func FormatOtherBucketKey(appLabel, description string) string {
	return fmt.Sprintf("%s: %s", appLabel, description)
}
