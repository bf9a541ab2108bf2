// Package rates loads courier rate tables and prices rounded weights.
//
// A rate table is stored per courier and holds, for every zone, a set of
// fixed-price weight slabs plus an optional surcharge applied per step of
// weight above the last slab.
package rates

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// Layout identifies the column shape of a stored rate table.
type Layout int

const (
	// LayoutFlagged rows are (zone, slab_weight, rate, is_per_kg). A row
	// with is_per_kg set carries the surcharge instead of a slab price.
	LayoutFlagged Layout = iota

	// LayoutSurcharge rows are (rate_type, weight_slab, rate,
	// additional_per_kg). Every row is a slab; a non-null
	// additional_per_kg sets the zone surcharge.
	LayoutSurcharge
)

func (l Layout) String() string {
	switch l {
	case LayoutFlagged:
		return "flagged"
	case LayoutSurcharge:
		return "surcharge"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// TableSpec names a stored rate table and its layout.
type TableSpec struct {
	Name   string
	Layout Layout
}

// Zone holds the prices for one zone (or rate type).
type Zone struct {
	Slabs map[float64]float64

	// Extra is the surcharge per step above the threshold; nil when unset.
	Extra *float64
}

// Book maps zone names to their prices.
type Book map[string]*Zone

// Source loads rate tables.
type Source interface {
	Load(ctx context.Context, spec TableSpec) (Book, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, spec TableSpec) (Book, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context, spec TableSpec) (Book, error) {
	return f(ctx, spec)
}

// zone returns the entry for name, creating it.
func (b Book) zone(name string) *Zone {
	z, ok := b[name]
	if !ok {
		z = &Zone{Slabs: make(map[float64]float64)}
		b[name] = z
	}
	return z
}

// addRow folds one stored row into the book according to layout.
func (b Book) addRow(layout Layout, zone string, weight, rate float64, extra *float64, isExtra bool) {
	z := b.zone(zone)
	switch layout {
	case LayoutSurcharge:
		if extra != nil {
			v := *extra
			z.Extra = &v
		}
		z.Slabs[weight] = rate
	default:
		if isExtra {
			v := rate
			z.Extra = &v
			return
		}
		z.Slabs[weight] = rate
	}
}

// Pricing describes how a courier charges above its slab range.
type Pricing struct {
	// Threshold is the heaviest slab weight; heavier parcels pay the
	// threshold slab plus surcharges.
	Threshold float64

	// Step is the weight covered by one surcharge unit.
	Step float64
}

// Price returns the charge for a rounded weight in zone.
func (b Book) Price(zone string, rounded float64, p Pricing) (float64, error) {
	z, ok := b[zone]
	if !ok {
		return 0, &Error{Kind: ZoneNotFound, Zone: zone}
	}

	if rounded <= p.Threshold {
		rate, ok := z.Slabs[rounded]
		if !ok {
			return 0, &Error{Kind: SlabNotFound, Zone: zone, Weight: rounded}
		}
		return rate, nil
	}

	base, ok := z.Slabs[p.Threshold]
	if !ok || z.Extra == nil {
		return 0, &Error{Kind: IncompleteSetup, Zone: zone}
	}

	steps := (rounded - p.Threshold) / p.Step
	return base + steps*(*z.Extra), nil
}

// RoundHalfKg rounds up to the next half kilogram with a 0.25 kg minimum.
func RoundHalfKg(w float64) float64 {
	if w <= 0.25 {
		return 0.25
	}
	return math.Ceil(w*2) / 2
}

// RoundWholeKg rounds up to the next whole kilogram.
func RoundWholeKg(w float64) float64 {
	return math.Ceil(w)
}

// ErrorKind classifies a pricing failure.
type ErrorKind int

const (
	ZoneNotFound ErrorKind = iota
	SlabNotFound
	IncompleteSetup
)

// Error reports a missing or incomplete rate configuration.
type Error struct {
	Kind ErrorKind
	Zone string

	// Weight is the rounded weight that had no slab.
	Weight float64
}

func (e *Error) Error() string {
	switch e.Kind {
	case ZoneNotFound:
		return "Zone not found: " + e.Zone
	case SlabNotFound:
		return fmt.Sprintf("No slab found for %s weight %s", e.Zone, FormatWeight(e.Weight))
	default:
		return "Incomplete rate setup for zone " + e.Zone
	}
}

// FormatWeight renders a half-kilogram weight the way operators write it:
// 2.0, 0.5, 0.25.
func FormatWeight(w float64) string {
	if w == math.Trunc(w) {
		return strconv.FormatFloat(w, 'f', 1, 64)
	}
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// FormatWholeWeight renders a whole-kilogram weight without decimals: 3.
func FormatWholeWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
