package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"itmScreener/internal/domain"
)

var barHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteBarsToCSV writes bars with an RFC3339 timestamp header row.
func WriteBarsToCSV(bars []*domain.Bar, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(barHeader); err != nil {
		return err
	}

	for _, b := range bars {
		if err := writer.Write([]string{
			b.OpenTime.UTC().Format(time.RFC3339),
			b.CloseTime.UTC().Format(time.RFC3339),
			b.Symbol,
			b.Interval,
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadBarsFromCSV reads a file produced by WriteBarsToCSV and validates ordering.
func ReadBarsFromCSV(filename string) ([]*domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(barHeader)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s is empty", filename)
		}
		return nil, err
	}
	if header[0] != barHeader[0] {
		return nil, fmt.Errorf("%s: unexpected header %v", filename, header)
	}

	var bars []*domain.Bar
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		b, err := parseBarRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		bars = append(bars, b)
	}

	if err := domain.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return bars, nil
}

func parseBarRecord(rec []string) (*domain.Bar, error) {
	openTime, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return nil, fmt.Errorf("parsing open_time: %w", err)
	}
	closeTime, err := time.Parse(time.RFC3339, rec[1])
	if err != nil {
		return nil, fmt.Errorf("parsing close_time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := strconv.ParseFloat(rec[4+i], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", barHeader[4+i], err)
		}
		vals[i] = v
	}
	return &domain.Bar{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Symbol:    rec[2],
		Interval:  rec[3],
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
