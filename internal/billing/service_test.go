package billing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/JonMunkholm/courierbill/internal/sheet"
)

func ptr(v float64) *float64 { return &v }

// testRates serves small rate tables for every built-in courier.
var testRates = rates.SourceFunc(func(_ context.Context, spec rates.TableSpec) (rates.Book, error) {
	switch spec.Name {
	case "franch_rates":
		return rates.Book{
			"Tamilnadu": {Slabs: map[float64]float64{0.25: 10, 0.5: 12, 1.5: 25, 5: 60}, Extra: ptr(12)},
			"Kerala":    {Slabs: map[float64]float64{0.5: 14}},
		}, nil
	case "professional_rates":
		return rates.Book{
			"Bangalore Local": {Slabs: map[float64]float64{1: 30}},
			"Karnataka":       {Slabs: map[float64]float64{1: 40}},
		}, nil
	case "courier_professional_kolkata_rates":
		return rates.Book{
			"within_city":  {Slabs: map[float64]float64{0.5: 20, 5: 50}, Extra: ptr(8)},
			"within_state": {Slabs: map[float64]float64{0.5: 25}},
			"within_zone":  {Slabs: map[float64]float64{0.5: 35}},
		}, nil
	case "trackon_west_rates":
		return rates.Book{
			"WEST": {Slabs: map[float64]float64{2: 22, 5: 50}, Extra: ptr(10)},
			"ROI":  {Slabs: map[float64]float64{2: 32}},
		}, nil
	case "trackon_hyd_rates":
		return rates.Book{
			"HYD":    {Slabs: map[float64]float64{0.5: 15, 1: 20}, Extra: ptr(6)},
			"EX_HYD": {Slabs: map[float64]float64{1: 28}},
		}, nil
	}
	return nil, errors.New("unknown table " + spec.Name)
})

func workbook(t *testing.T, header []string, rows ...[]any) []byte {
	t.Helper()
	data, err := sheet.Encode(header, rows)
	if err != nil {
		t.Fatalf("sheet.Encode() error = %v", err)
	}
	return data
}

func process(t *testing.T, courier string, data []byte) (*Result, error) {
	t.Helper()
	svc := NewService(testRates, Options{MaxConcurrent: 1})
	return svc.Process(context.Background(), courier, "in.xlsx", bytes.NewReader(data))
}

func TestProcess_Franch(t *testing.T) {
	data := workbook(t, []string{"AWB", "City", "Weight"},
		[]any{"A1", "tamil nadu", 1.27},
		[]any{"", "", ""},
		[]any{"A2", " Tamilnadu ", 7.2},
	)

	res, err := process(t, "franch", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.FileName != "franch_billing_output.xlsx" {
		t.Errorf("FileName = %q, want %q", res.FileName, "franch_billing_output.xlsx")
	}
	if res.Rows != 2 {
		t.Errorf("Rows = %d, want 2 (blank row skipped)", res.Rows)
	}
	if res.JobID == "" {
		t.Error("JobID is empty")
	}

	out, err := sheet.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	wantHeader := []string{"AWB", "City", "Weight", RoundedWeightColumn, CalculatedRateColumn}
	if len(out.Header) != len(wantHeader) {
		t.Fatalf("Header = %v, want %v", out.Header, wantHeader)
	}
	for i := range wantHeader {
		if out.Header[i] != wantHeader[i] {
			t.Errorf("Header[%d] = %q, want %q", i, out.Header[i], wantHeader[i])
		}
	}

	want := [][2]string{{"1.5", "25"}, {"7.5", "90"}}
	for i, w := range want {
		if got := out.Rows[i][3]; got != w[0] {
			t.Errorf("row %d Rounded_Weight = %q, want %q", i, got, w[0])
		}
		if got := out.Rows[i][4]; got != w[1] {
			t.Errorf("row %d Calculated_Rate = %q, want %q", i, got, w[1])
		}
	}
}

func TestProcess_KeepsSourceCellTypes(t *testing.T) {
	data := workbook(t, []string{"AWB", "City", "Weight", "", "Pieces"},
		[]any{"123456789012345678", "Kerala", 0.4, "fragile", 3},
	)

	res, err := process(t, "franch", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	out, err := sheet.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := out.Rows[0][0]; got != "123456789012345678" {
		t.Errorf("AWB = %q, want %q", got, "123456789012345678")
	}
	if got := out.Value(0, 0); got != "123456789012345678" {
		t.Errorf("AWB written as %#v, want text", got)
	}
	if got := out.Header[3]; got != "Unnamed: 3" {
		t.Errorf("Header[3] = %q, want %q", got, "Unnamed: 3")
	}
	if got := out.Rows[0][3]; got != "fragile" {
		t.Errorf("unnamed column = %q, want %q", got, "fragile")
	}
	if got := out.Value(0, 4); got != float64(3) {
		t.Errorf("Pieces written as %#v, want number 3", got)
	}
	if got := out.Rows[0][out.Column(CalculatedRateColumn)]; got != "14" {
		t.Errorf("Calculated_Rate = %q, want %q", got, "14")
	}
}

func TestProcess_CourierZones(t *testing.T) {
	tests := []struct {
		courier string
		header  []string
		row     []any
		rate    string
	}{
		{"professional", []string{"City", "Weight"}, []any{"Bangalore", 0.8}, "30"},
		{"professional", []string{"City", "Weight"}, []any{"Mysore", 1}, "40"},
		{"professional_kolkata", []string{"City", "State", "Weight"}, []any{"Kolkata", "West Bengal", 0.3}, "20"},
		{"professional_kolkata", []string{"City", "State", "Weight"}, []any{"Howrah", "WB", 0.3}, "25"},
		{"professional_kolkata", []string{"City", "State", "Weight"}, []any{"Patna", "Bihar", 0.3}, "35"},
		{"professional_kolkata", []string{"City", "State", "Weight"}, []any{"Kolkata", "West Bengal", 6.1}, "62"},
		{"trackon_west", []string{"Zone", "Weight"}, []any{"West", 1.2}, "22"},
		{"trackon_west", []string{"Zone", "Weight"}, []any{"west", 6.5}, "70"},
		{"trackon_west", []string{"Zone", "Weight"}, []any{"North", 1.5}, "32"},
		{"trackon_hyd", []string{"City", "Weight"}, []any{"Hyderabad", 0.4}, "15"},
		{"trackon_hyd", []string{"City", "Weight"}, []any{"hyderabad", 2}, "32"},
		{"trackon_hyd", []string{"City", "Weight"}, []any{"Warangal", 1}, "28"},
	}

	for _, tt := range tests {
		t.Run(tt.courier, func(t *testing.T) {
			res, err := process(t, tt.courier, workbook(t, tt.header, tt.row))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			out, err := sheet.Decode(bytes.NewReader(res.Data))
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			col := out.Column(CalculatedRateColumn)
			if got := out.Rows[0][col]; got != tt.rate {
				t.Errorf("%v: Calculated_Rate = %q, want %q", tt.row, got, tt.rate)
			}
		})
	}
}

func TestProcess_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		courier string
		data    []byte
		want    string
	}{
		{
			name:    "missing column",
			courier: "franch",
			data:    workbook(t, []string{"City"}, []any{"Kerala"}),
			want:    "Missing column: Weight",
		},
		{
			name:    "missing state column",
			courier: "professional_kolkata",
			data:    workbook(t, []string{"City", "Weight"}, []any{"Kolkata", 1}),
			want:    "Missing column: State",
		},
		{
			name:    "missing city",
			courier: "franch",
			data:    workbook(t, []string{"City", "Weight"}, []any{"Kerala", 0.5}, []any{"", 1}),
			want:    "City is missing at row 3",
		},
		{
			name:    "missing weight",
			courier: "franch",
			data:    workbook(t, []string{"City", "Weight"}, []any{"Kerala", ""}),
			want:    "Weight is missing at row 2",
		},
		{
			name:    "invalid weight",
			courier: "franch",
			data:    workbook(t, []string{"City", "Weight"}, []any{"Kerala", "heavy"}),
			want:    "Invalid weight value at row 2",
		},
		{
			name:    "missing state",
			courier: "professional_kolkata",
			data:    workbook(t, []string{"City", "State", "Weight"}, []any{"Howrah", "", 1}),
			want:    "State missing at row 2",
		},
		{
			name:    "invalid weight elsewhere",
			courier: "trackon_hyd",
			data:    workbook(t, []string{"City", "Weight"}, []any{"Hyderabad", "1kg"}),
			want:    "Invalid weight at row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := process(t, tt.courier, tt.data)
			var inErr *InputError
			if !errors.As(err, &inErr) {
				t.Fatalf("Process() error = %v, want *InputError", err)
			}
			if inErr.Error() != tt.want {
				t.Errorf("error = %q, want %q", inErr.Error(), tt.want)
			}
		})
	}
}

func TestProcess_NotAWorkbook(t *testing.T) {
	_, err := process(t, "franch", []byte("City,Weight\nKerala,1\n"))
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("Process() error = %v, want *InputError", err)
	}
}

func TestProcess_CalculationErrors(t *testing.T) {
	tests := []struct {
		name    string
		courier string
		header  []string
		row     []any
		want    string
	}{
		{"unknown franch zone", "franch", []string{"City", "Weight"}, []any{"Goa", 1}, "Invalid zone name: 'Goa'"},
		{"missing slab", "franch", []string{"City", "Weight"}, []any{"Kerala", 2}, "No slab found for Kerala weight 2.0"},
		{"incomplete setup", "franch", []string{"City", "Weight"}, []any{"Kerala", 9}, "Incomplete rate setup for zone Kerala"},
		{"professional slab", "professional", []string{"City", "Weight"}, []any{"Mysore", 1.8}, "No slab found for Karnataka weight 2.0"},
		{"kolkata incomplete setup", "professional_kolkata", []string{"City", "State", "Weight"}, []any{"Howrah", "WB", 6}, "Incomplete rate setup for within_state"},
		{"whole kg slab", "trackon_west", []string{"Zone", "Weight"}, []any{"North", 2.4}, "No slab found for ROI weight 3"},
		{"hyd incomplete setup", "trackon_hyd", []string{"City", "Weight"}, []any{"Warangal", 3}, "Incomplete rate setup for zone EX_HYD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := process(t, tt.courier, workbook(t, tt.header, tt.row))
			var calcErr *CalculationError
			if !errors.As(err, &calcErr) {
				t.Fatalf("Process() error = %v, want *CalculationError", err)
			}
			if calcErr.Error() != tt.want {
				t.Errorf("error = %q, want %q", calcErr.Error(), tt.want)
			}
			if calcErr.Row != 2 {
				t.Errorf("Row = %d, want 2", calcErr.Row)
			}
		})
	}
}

func TestProcess_ZoneNotFoundWording(t *testing.T) {
	empty := rates.SourceFunc(func(context.Context, rates.TableSpec) (rates.Book, error) {
		return rates.Book{}, nil
	})
	svc := NewService(empty, Options{})

	tests := []struct {
		courier string
		header  []string
		row     []any
		want    string
	}{
		{"professional_kolkata", []string{"City", "State", "Weight"}, []any{"Patna", "Bihar", 1}, "Rate type not found: within_zone"},
		{"trackon_hyd", []string{"City", "Weight"}, []any{"Hyderabad", 1}, "Zone not found: HYD"},
	}
	for _, tt := range tests {
		t.Run(tt.courier, func(t *testing.T) {
			_, err := svc.Process(context.Background(), tt.courier, "in.xlsx",
				bytes.NewReader(workbook(t, tt.header, tt.row)))
			var calcErr *CalculationError
			if !errors.As(err, &calcErr) {
				t.Fatalf("Process() error = %v, want *CalculationError", err)
			}
			if calcErr.Error() != tt.want {
				t.Errorf("error = %q, want %q", calcErr.Error(), tt.want)
			}
			var rerr *rates.Error
			if !errors.As(err, &rerr) || rerr.Kind != rates.ZoneNotFound {
				t.Errorf("error does not unwrap to a zone rates.Error: %v", err)
			}
		})
	}
}

func TestProcess_UnknownCourier(t *testing.T) {
	_, err := process(t, "dhl", workbook(t, []string{"City", "Weight"}))
	var unknown *UnknownCourierError
	if !errors.As(err, &unknown) {
		t.Fatalf("Process() error = %v, want *UnknownCourierError", err)
	}
	if unknown.Error() != "Unknown courier: dhl" {
		t.Errorf("error = %q", unknown.Error())
	}
}

func TestProcess_RateSourceFailure(t *testing.T) {
	failing := rates.SourceFunc(func(context.Context, rates.TableSpec) (rates.Book, error) {
		return nil, errors.New("connection refused")
	})
	svc := NewService(failing, Options{})

	_, err := svc.Process(context.Background(), "franch", "in.xlsx",
		bytes.NewReader(workbook(t, []string{"City", "Weight"}, []any{"Kerala", 0.5})))
	if err == nil {
		t.Fatal("Process() expected error")
	}
	var inErr *InputError
	if errors.As(err, &inErr) {
		t.Errorf("rate failure reported as input error: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	keys := []string{"franch", "professional", "professional_kolkata", "trackon_hyd", "trackon_west"}
	couriers := Couriers()
	if len(couriers) != len(keys) {
		t.Fatalf("Couriers() = %d entries, want %d", len(couriers), len(keys))
	}
	for i, k := range keys {
		if couriers[i].Key != k {
			t.Errorf("Couriers()[%d] = %q, want %q", i, couriers[i].Key, k)
		}
		if couriers[i].WeightColumn != "Weight" {
			t.Errorf("%s WeightColumn = %q, want Weight", k, couriers[i].WeightColumn)
		}
		if m := couriers[i].Messages; m.Missing == "" || m.NoSlab == "" || m.Incomplete == "" || m.Weight == nil {
			t.Errorf("%s Messages not completed with defaults: %+v", k, m)
		}
	}

	if len(RateTables()) != len(keys) {
		t.Errorf("RateTables() = %d, want %d", len(RateTables()), len(keys))
	}

	defer func() {
		if recover() == nil {
			t.Error("Register(duplicate) did not panic")
		}
	}()
	Register(couriers[0])
}
