package taxexport

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers. These match the export API error contract.
const (
	CodeNotAuthorized  = "NOT_AUTHORIZED"
	CodeNonUSDCurrency = "NON_USD_CURRENCY"
	CodeDataLoadFailed = "DATA_LOAD_FAILED"
	CodeUnsupported    = "UNSUPPORTED"
)

var (
	// ErrNonUSDCurrency aborts the build: a package with mixed currencies
	// would misstate every total.
	ErrNonUSDCurrency = errors.New("non-USD currency in input rows")

	// ErrUnsupportedBasis aborts the build: only cash-basis accounting is
	// supported.
	ErrUnsupportedBasis = errors.New("unsupported accounting basis")

	// ErrNotAuthorized is returned when the requester does not own the rows.
	ErrNotAuthorized = errors.New("requester does not own the requested data")

	// ErrDataLoadFailed wraps upstream fetch failures.
	ErrDataLoadFailed = errors.New("failed to load rows for export")
)

// ExportError is the typed error returned across the export boundary. Code
// is one of the Code* constants; Err is the underlying sentinel.
type ExportError struct {
	Code    string
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError builds an ExportError for a known code.
func NewExportError(code string, err error, format string, args ...interface{}) *ExportError {
	return &ExportError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf extracts the export error code from err, or "" when err is not an
// ExportError.
func CodeOf(err error) string {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
