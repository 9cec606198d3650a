package render

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/taxexport"
	"github.com/gigledger/taxexport/pkg/utils"
)

// txfCodes maps Schedule C line ref numbers to TXF record codes understood
// by desktop tax software. Lines without a code are emitted into the
// other-expenses record so nothing is dropped from the import file.
var txfCodes = map[string]string{
	taxexport.RefGrossReceipts:     "293",
	taxexport.RefReturnsAllowances: "296",
	taxexport.RefOtherIncome:       "303",
	taxexport.RefAdvertising:       "304",
	taxexport.RefCarTruck:          "305",
	taxexport.RefCommissionsFees:   "306",
	taxexport.RefContractLabor:     "307",
	taxexport.RefInsurance:         "309",
	taxexport.RefLegalProfessional: "312",
	taxexport.RefOfficeExpense:     "313",
	taxexport.RefRentEquipment:     "315",
	taxexport.RefRepairs:           "317",
	taxexport.RefSupplies:          "318",
	taxexport.RefTaxesLicenses:     "319",
	taxexport.RefTravel:            "320",
	taxexport.RefMeals:             "321",
	taxexport.RefUtilities:         "322",
	taxexport.RefOther:             "326",
}

// TXFRenderer emits the TXF v042 interchange file. TXF is the strict
// format: callers gate it on the validation pre-pass before offering it.
type TXFRenderer struct {
	logger *zap.Logger
}

// NewTXFRenderer creates a TXF renderer.
func NewTXFRenderer(logger *zap.Logger) *TXFRenderer {
	return &TXFRenderer{logger: logger}
}

// Render writes the TXF payload from the package's line items.
func (r *TXFRenderer) Render(pkg *taxexport.TaxExportPackage) ([]byte, error) {
	var buf bytes.Buffer

	// Header block: version, application, export date.
	fmt.Fprintf(&buf, "V042\r\n")
	fmt.Fprintf(&buf, "AGigLedger %s\r\n", pkg.Metadata.SchemaVersion)
	fmt.Fprintf(&buf, "D%s\r\n", pkg.Metadata.CreatedAt.Format("01/02/2006"))
	buf.WriteString("^\r\n")

	for _, item := range pkg.ScheduleCLineItems {
		code, ok := txfCodes[item.RefNumber]
		if !ok {
			r.logger.Warn("No TXF code for ref number, using other-expenses code",
				zap.String("ref_number", item.RefNumber))
			code = txfCodes[taxexport.RefOther]
		}

		// Summary record: type TD (detailed), N<code>, copy 1, line
		// description, dollar amount. Amounts are written as entered in tax
		// software: positive, with the line itself giving the sign context.
		buf.WriteString("TD\r\n")
		fmt.Fprintf(&buf, "N%s\r\n", code)
		buf.WriteString("C1\r\n")
		// Control characters in a description would corrupt the record stream.
		fmt.Fprintf(&buf, "L%s\r\n", utils.SanitizeString(item.Description))
		fmt.Fprintf(&buf, "$%.2f\r\n", item.AmountForEntry)
		buf.WriteString("^\r\n")
	}

	r.logger.Debug("TXF payload rendered",
		zap.Int("tax_year", pkg.Metadata.TaxYear),
		zap.Int("records", len(pkg.ScheduleCLineItems)))
	return buf.Bytes(), nil
}
