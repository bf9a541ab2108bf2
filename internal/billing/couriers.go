package billing

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/courierbill/internal/rates"
)

var perKgOver5 = rates.Pricing{Threshold: 5, Step: 1}

func init() {
	Register(Courier{
		Key:     "franch",
		Label:   "Franch Express",
		Columns: []string{"City", "Weight"},
		Rates:   rates.TableSpec{Name: "franch_rates", Layout: rates.LayoutFlagged},
		Pricing: perKgOver5,
		Round:   rates.RoundHalfKg,
		Zone:    franchZone,
		Messages: Messages{
			Missing:       "%s is missing at row %d",
			InvalidWeight: "Invalid weight value at row %d",
		},
	})

	Register(Courier{
		Key:     "professional",
		Label:   "Professional Couriers (Karnataka)",
		Columns: []string{"City", "Weight"},
		Rates:   rates.TableSpec{Name: "professional_rates", Layout: rates.LayoutFlagged},
		Pricing: perKgOver5,
		Round:   rates.RoundHalfKg,
		Zone: func(r Record) (string, error) {
			if normalized(r["City"]) == "bangalore" {
				return "Bangalore Local", nil
			}
			return "Karnataka", nil
		},
	})

	Register(Courier{
		Key:     "professional_kolkata",
		Label:   "Professional Couriers (Kolkata)",
		Columns: []string{"City", "State", "Weight"},
		Rates:   rates.TableSpec{Name: "courier_professional_kolkata_rates", Layout: rates.LayoutSurcharge},
		Pricing: perKgOver5,
		Round:   rates.RoundHalfKg,
		Zone: func(r Record) (string, error) {
			switch {
			case normalized(r["City"]) == "kolkata":
				return "within_city", nil
			case normalized(r["State"]) == "west bengal", normalized(r["State"]) == "wb":
				return "within_state", nil
			default:
				return "within_zone", nil
			}
		},
		Messages: Messages{
			ZoneNotFound: "Rate type not found: %s",
			Incomplete:   "Incomplete rate setup for %s",
		},
	})

	Register(Courier{
		Key:     "trackon_west",
		Label:   "Trackon (West)",
		Columns: []string{"Zone", "Weight"},
		Rates:   rates.TableSpec{Name: "trackon_west_rates", Layout: rates.LayoutFlagged},
		Pricing: perKgOver5,
		Round:   rates.RoundWholeKg,
		Zone: func(r Record) (string, error) {
			if normalized(r["Zone"]) == "west" {
				return "WEST", nil
			}
			return "ROI", nil
		},
		Messages: Messages{Weight: rates.FormatWholeWeight},
	})

	Register(Courier{
		Key:     "trackon_hyd",
		Label:   "Trackon (Hyderabad)",
		Columns: []string{"City", "Weight"},
		Rates:   rates.TableSpec{Name: "trackon_hyd_rates", Layout: rates.LayoutFlagged},
		Pricing: rates.Pricing{Threshold: 1, Step: 0.5},
		Round:   rates.RoundHalfKg,
		Zone: func(r Record) (string, error) {
			if normalized(r["City"]) == "hyderabad" {
				return "HYD", nil
			}
			return "EX_HYD", nil
		},
	})
}

// franchZones maps accepted spellings to Franch zone names.
var franchZones = map[string]string{
	"tamilnadu":   "Tamilnadu",
	"tamil nadu":  "Tamilnadu",
	"pondicherry": "Pondicherry",
	"puducherry":  "Pondicherry",
	"kerala":      "Kerala",
}

func franchZone(r Record) (string, error) {
	zone, ok := franchZones[normalized(r["City"])]
	if !ok {
		return "", fmt.Errorf("Invalid zone name: '%s'", r["City"])
	}
	return zone, nil
}

func normalized(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
