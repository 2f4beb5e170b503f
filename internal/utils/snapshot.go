package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

// SnapshotRow is one ranked contract as written to the snapshot file.
type SnapshotRow struct {
	Contract     string  `json:"contract" parquet:"contract"`
	Strike       float64 `json:"strike" parquet:"strike"`
	LastPrice    float64 `json:"last_price" parquet:"last_price"`
	IV           float64 `json:"iv" parquet:"iv"`
	Volume       float64 `json:"volume" parquet:"volume"`
	OpenInterest float64 `json:"oi" parquet:"oi"`
	Liquidity    float64 `json:"liquidity" parquet:"liquidity"`
	PercentITM   float64 `json:"pct_itm" parquet:"pct_itm"`
}

var snapshotHeader = []string{"Contract", "Strike", "Last Price", "IV", "Volume", "OI", "Liquidity", "% ITM"}

// SnapshotRows converts ranked contracts, rounding the derived scores to 2 places.
func SnapshotRows(contracts []domain.RankedContract) []SnapshotRow {
	rows := make([]SnapshotRow, len(contracts))
	for i, c := range contracts {
		rows[i] = SnapshotRow{
			Contract:     c.Symbol,
			Strike:       c.Strike,
			LastPrice:    c.LastPrice,
			IV:           c.ImpliedVolatility,
			Volume:       c.Volume,
			OpenInterest: c.OpenInterest,
			Liquidity:    round2(c.Liquidity),
			PercentITM:   round2(c.PercentITM),
		}
	}
	return rows
}

// NewSnapshotWriter returns the writer for format (csv, json, parquet), or nil if unsupported.
func NewSnapshotWriter(format string) ports.SnapshotWriter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSnapshotWriter{}
	case "json":
		return JSONSnapshotWriter{}
	case "parquet":
		return ParquetSnapshotWriter{}
	default:
		return nil
	}
}

// CSVSnapshotWriter writes the ranked table with the console column names.
type CSVSnapshotWriter struct{}

func (CSVSnapshotWriter) Extension() string { return "csv" }

func (CSVSnapshotWriter) Write(contracts []domain.RankedContract, path string) error {
	return replaceFile(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(snapshotHeader); err != nil {
			return err
		}
		for _, r := range SnapshotRows(contracts) {
			if err := w.Write([]string{
				r.Contract,
				floatStr(r.Strike),
				floatStr(r.LastPrice),
				floatStr(r.IV),
				floatStr(r.Volume),
				floatStr(r.OpenInterest),
				floatStr(r.Liquidity),
				floatStr(r.PercentITM),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

// JSONSnapshotWriter writes the ranked table as an indented JSON array.
type JSONSnapshotWriter struct{}

func (JSONSnapshotWriter) Extension() string { return "json" }

func (JSONSnapshotWriter) Write(contracts []domain.RankedContract, path string) error {
	return replaceFile(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(SnapshotRows(contracts))
	})
}

// ParquetSnapshotWriter writes the ranked table as Parquet.
type ParquetSnapshotWriter struct{}

func (ParquetSnapshotWriter) Extension() string { return "parquet" }

func (ParquetSnapshotWriter) Write(contracts []domain.RankedContract, path string) error {
	tmp, err := tempPath(path)
	if err != nil {
		return err
	}
	if err := parquet.WriteFile(tmp, SnapshotRows(contracts)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write parquet snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// replaceFile writes to a sibling temp file and renames it over path,
// so readers never see a half-written snapshot.
func replaceFile(path string, write func(f *os.File) error) error {
	tmp, err := tempPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func tempPath(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "."+filepath.Base(path)+".tmp"), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
