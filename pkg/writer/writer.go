// Package writer exports simulated household days as four flat tables:
// household days, person days, tours and trips.
package writer

import (
	"context"
	"os"

	"github.com/daysim/daysim/internal/model"
	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Exporter receives finished household days. It is driven by a single
// goroutine and need not be safe for concurrent use.
type Exporter interface {
	// Export writes every table row of days.
	Export(ctx context.Context, days []*model.HouseholdDay) error

	// Close flushes buffered rows and finalizes the output files.
	Close() error

	// Files lists the produced files. Valid after Close.
	Files() []string

	// RowsWritten returns the rows written per table.
	RowsWritten() map[string]int64
}

// Config holds writer configuration.
type Config struct {
	// Dir receives the output files.
	Dir string

	// BatchSize is the number of rows per record batch.
	BatchSize int

	// Compression type for Parquet output.
	Compression CompressionType

	// RunID is written into file metadata and names.
	RunID string
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dir:         "output",
		BatchSize:   8192,
		Compression: CompressionSnappy,
	}
}

// FromOutput converts the output section of the run configuration.
func FromOutput(out config.OutputConfig, runID string) Config {
	cfg := DefaultConfig()
	cfg.Dir = out.Dir
	if out.BatchSize > 0 {
		cfg.BatchSize = out.BatchSize
	}
	cfg.Compression = ParseCompression(out.Compression)
	cfg.RunID = runID
	return cfg
}

// New creates the exporter for format ("parquet" or "duckdb").
func New(format string, cfg Config) (Exporter, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "create output directory").
			WithContext("dir", cfg.Dir)
	}
	switch format {
	case "parquet", "":
		return NewParquetExporter(cfg)
	case "duckdb":
		return NewDuckDBExporter(cfg)
	default:
		return nil, simerrors.Newf(simerrors.CodeConfigInvalid, "unknown output format %q", format)
	}
}
