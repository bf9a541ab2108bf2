package billing

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/JonMunkholm/courierbill/internal/sheet"
	"github.com/google/uuid"
)

// Output column names appended to every processed workbook.
const (
	RoundedWeightColumn  = "Rounded_Weight"
	CalculatedRateColumn = "Calculated_Rate"
)

// DefaultTimeout bounds one processing run when Options.Timeout is unset.
const DefaultTimeout = 2 * time.Minute

// Options configures a Service.
type Options struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Service prices uploaded workbooks.
type Service struct {
	rates   rates.Source
	limiter *Limiter
	timeout time.Duration
}

// NewService creates a Service reading rate tables from src.
func NewService(src rates.Source, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{
		rates:   src,
		limiter: NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		timeout: opts.Timeout,
	}
}

// Result is a processed workbook.
type Result struct {
	JobID    string
	Courier  string
	FileName string
	Rows     int
	Data     []byte
}

// OutputName is the download name of a courier's processed workbook.
func OutputName(courier string) string {
	return courier + "_billing_output.xlsx"
}

// Process prices every row of the workbook in r for the given courier.
func (s *Service) Process(ctx context.Context, courierKey, fileName string, r io.Reader) (*Result, error) {
	courier, ok := Lookup(courierKey)
	if !ok {
		return nil, &UnknownCourierError{Key: courierKey}
	}

	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jobID := uuid.NewString()
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.WithFields(ctx, "courier", courier.Key, "file", fileName)
	start := time.Now()

	table, err := sheet.Decode(r)
	if err != nil {
		return nil, &InputError{Msg: "Invalid Excel file", Err: err}
	}

	cols := make(map[string]int, len(courier.Columns))
	for _, name := range courier.Columns {
		idx := table.Column(name)
		if idx < 0 {
			return nil, missingColumn(name)
		}
		cols[name] = idx
	}

	book, err := s.rates.Load(ctx, courier.Rates)
	if err != nil {
		return nil, fmt.Errorf("load %s rates: %w", courier.Key, err)
	}

	out := make([][]any, 0, len(table.Rows))
	for i, row := range table.Rows {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if table.IsBlankRow(i) {
			continue
		}

		rowNum := i + 2 // header is row 1
		rounded, rate, err := priceRow(courier, book, row, cols, rowNum)
		if err != nil {
			return nil, err
		}

		cells := make([]any, 0, len(row)+2)
		for col := range row {
			cells = append(cells, table.Value(i, col))
		}
		out = append(out, append(cells, rounded, rate))
	}

	header := append(append([]string(nil), table.Header...), RoundedWeightColumn, CalculatedRateColumn)
	data, err := sheet.Encode(header, out)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}

	log.Info("workbook priced",
		"rows", len(out),
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		JobID:    jobID,
		Courier:  courier.Key,
		FileName: OutputName(courier.Key),
		Rows:     len(out),
		Data:     data,
	}, nil
}

// priceRow validates one row and returns its rounded weight and charge.
func priceRow(c Courier, book rates.Book, row []string, cols map[string]int, rowNum int) (float64, float64, error) {
	rec := make(Record, len(cols))
	for _, name := range c.Columns {
		v := row[cols[name]]
		if strings.TrimSpace(v) == "" {
			return 0, 0, c.Messages.missingValue(name, rowNum)
		}
		rec[name] = v
	}

	weight, err := strconv.ParseFloat(strings.TrimSpace(rec[c.WeightColumn]), 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0, 0, c.Messages.invalidWeight(rowNum)
	}

	zone, err := c.Zone(rec)
	if err != nil {
		return 0, 0, c.Messages.calculation(rowNum, err)
	}

	rounded := c.Round(weight)
	rate, err := book.Price(zone, rounded, c.Pricing)
	if err != nil {
		return 0, 0, c.Messages.calculation(rowNum, err)
	}
	return rounded, rate, nil
}

// Active returns the number of workbooks currently being processed.
func (s *Service) Active() int {
	return s.limiter.Active()
}

// WaitForDrain blocks until in-flight workbooks finish or ctx ends.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
