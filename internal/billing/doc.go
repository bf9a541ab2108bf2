// Package billing computes courier charges for uploaded shipment workbooks.
//
// # Couriers
//
// Each courier is registered with [Register] and describes the columns it
// needs, the rate table it prices from, how weights are rounded, and how a
// row is mapped to a rate zone:
//
//	billing.Register(billing.Courier{
//	    Key:     "trackon_hyd",
//	    Columns: []string{"City", "Weight"},
//	    Rates:   rates.TableSpec{Name: "trackon_hyd_rates"},
//	    Pricing: rates.Pricing{Threshold: 1, Step: 0.5},
//	    Round:   rates.RoundHalfKg,
//	    Zone:    hydZone,
//	})
//
// # Processing
//
// [Service.Process] reads the first sheet of the workbook, validates the
// required columns and every row, prices each row, and returns a new
// workbook with two extra columns, Rounded_Weight and Calculated_Rate.
// The first invalid row aborts the run; no partial output is produced.
//
// # Errors
//
//   - [*InputError]: the workbook is unusable (missing column, empty cell,
//     bad weight). Safe to show to the uploader.
//   - [*UnknownCourierError]: no courier is registered under the key.
//   - [*CalculationError]: a row could not be priced (unknown zone, missing
//     slab, incomplete rate table).
//   - [ErrBusy]: no processing slot became free in time.
package billing
