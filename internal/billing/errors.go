package billing

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/courierbill/internal/rates"
)

// ErrBusy is returned when every processing slot stays occupied for the
// limiter's wait time. Clients should retry shortly.
var ErrBusy = errors.New("server busy, too many workbooks in progress")

// InputError reports a problem with the uploaded workbook itself.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

func missingColumn(name string) *InputError {
	return &InputError{Msg: fmt.Sprintf("Missing column: %s", name)}
}

// Messages words a courier's row errors. Each text is a fmt format; empty
// fields take the wording of defaultMessages.
type Messages struct {
	Missing       string // column, row
	InvalidWeight string // row
	ZoneNotFound  string // zone
	NoSlab        string // zone, weight
	Incomplete    string // zone

	// Weight renders the rounded weight for NoSlab.
	Weight func(float64) string
}

var defaultMessages = Messages{
	Missing:       "%s missing at row %d",
	InvalidWeight: "Invalid weight at row %d",
	ZoneNotFound:  "Zone not found: %s",
	NoSlab:        "No slab found for %s weight %s",
	Incomplete:    "Incomplete rate setup for zone %s",
	Weight:        rates.FormatWeight,
}

func (m Messages) withDefaults() Messages {
	def := func(s *string, d string) {
		if *s == "" {
			*s = d
		}
	}
	def(&m.Missing, defaultMessages.Missing)
	def(&m.InvalidWeight, defaultMessages.InvalidWeight)
	def(&m.ZoneNotFound, defaultMessages.ZoneNotFound)
	def(&m.NoSlab, defaultMessages.NoSlab)
	def(&m.Incomplete, defaultMessages.Incomplete)
	if m.Weight == nil {
		m.Weight = defaultMessages.Weight
	}
	return m
}

func (m Messages) missingValue(column string, row int) *InputError {
	return &InputError{Msg: fmt.Sprintf(m.Missing, column, row)}
}

func (m Messages) invalidWeight(row int) *InputError {
	return &InputError{Msg: fmt.Sprintf(m.InvalidWeight, row)}
}

// calculation wraps a pricing failure, rewording rate errors.
func (m Messages) calculation(row int, err error) *CalculationError {
	ce := &CalculationError{Row: row, Err: err}
	var rerr *rates.Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case rates.ZoneNotFound:
			ce.Msg = fmt.Sprintf(m.ZoneNotFound, rerr.Zone)
		case rates.SlabNotFound:
			ce.Msg = fmt.Sprintf(m.NoSlab, rerr.Zone, m.Weight(rerr.Weight))
		case rates.IncompleteSetup:
			ce.Msg = fmt.Sprintf(m.Incomplete, rerr.Zone)
		}
	}
	return ce
}

// UnknownCourierError is returned for a key with no registered courier.
type UnknownCourierError struct {
	Key string
}

func (e *UnknownCourierError) Error() string {
	return fmt.Sprintf("Unknown courier: %s", e.Key)
}

// CalculationError wraps a failure to price one row. Its message is the
// courier's wording of the underlying error, or that error's own message.
type CalculationError struct {
	Row int
	Msg string
	Err error
}

func (e *CalculationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

func (e *CalculationError) Unwrap() error { return e.Err }
