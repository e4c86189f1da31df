package writer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/daysim/daysim/internal/model"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// ParquetExporter writes one Parquet file per table using Apache Arrow.
type ParquetExporter struct {
	cfg     Config
	writers []*parquetTable
	closed  bool
}

// parquetTable buffers rows of one table into an Arrow record builder and
// flushes a record batch every BatchSize rows.
type parquetTable struct {
	table    table
	path     string
	file     *os.File
	schema   *arrow.Schema
	writer   *pqarrow.FileWriter
	builder  *array.RecordBuilder
	rowCount int
	total    int64
}

func arrowSchema(t table, runID string) *arrow.Schema {
	fields := make([]arrow.Field, len(t.columns))
	for i, c := range t.columns {
		var typ arrow.DataType
		switch c.kind {
		case kindString:
			typ = arrow.BinaryTypes.String
		case kindBool:
			typ = arrow.FixedWidthTypes.Boolean
		default:
			typ = arrow.PrimitiveTypes.Int64
		}
		fields[i] = arrow.Field{Name: c.name, Type: typ, Nullable: false}
	}
	md := arrow.NewMetadata([]string{"daysim.table", "daysim.run_id"}, []string{t.name, runID})
	return arrow.NewSchema(fields, &md)
}

func codecFor(c CompressionType) compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionLZ4:
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}

// NewParquetExporter creates <table>.parquet files under cfg.Dir.
func NewParquetExporter(cfg Config) (*ParquetExporter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	allocator := memory.NewGoAllocator()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codecFor(cfg.Compression)),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024), // 1MB
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	e := &ParquetExporter{cfg: cfg}
	for _, t := range tables {
		path := filepath.Join(cfg.Dir, t.name+".parquet")
		f, err := os.Create(path)
		if err != nil {
			e.abort()
			return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "create parquet file").WithContext("path", path)
		}
		schema := arrowSchema(t, cfg.RunID)
		fw, err := pqarrow.NewFileWriter(schema, f, writerProps, arrowProps)
		if err != nil {
			f.Close()
			e.abort()
			return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "create parquet writer").WithContext("path", path)
		}
		builder := array.NewRecordBuilder(allocator, schema)
		builder.Reserve(cfg.BatchSize)
		e.writers = append(e.writers, &parquetTable{
			table:   t,
			path:    path,
			file:    f,
			schema:  schema,
			writer:  fw,
			builder: builder,
		})
	}
	return e, nil
}

// abort releases what a failed constructor already opened.
func (e *ParquetExporter) abort() {
	for _, w := range e.writers {
		w.builder.Release()
		w.writer.Close()
	}
}

// Export implements Exporter.
func (e *ParquetExporter) Export(ctx context.Context, days []*model.HouseholdDay) error {
	for _, d := range days {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		projected := rows(d)
		for _, w := range e.writers {
			for _, row := range projected[w.table.name] {
				w.append(row)
				if w.rowCount >= e.cfg.BatchSize {
					if err := w.flush(); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (w *parquetTable) append(row []any) {
	for i, c := range w.table.columns {
		switch c.kind {
		case kindString:
			w.builder.Field(i).(*array.StringBuilder).Append(row[i].(string))
		case kindBool:
			w.builder.Field(i).(*array.BooleanBuilder).Append(row[i].(bool))
		default:
			w.builder.Field(i).(*array.Int64Builder).Append(int64(row[i].(int)))
		}
	}
	w.rowCount++
}

// flush writes the current batch to Parquet.
func (w *parquetTable) flush() error {
	if w.rowCount == 0 {
		return nil
	}
	batch := w.builder.NewRecord()
	defer batch.Release()

	if err := w.writer.Write(batch); err != nil {
		return simerrors.Wrap(err, simerrors.CodeWriteFailed, "write record batch").
			WithContext("table", w.table.name)
	}
	w.total += int64(w.rowCount)
	w.rowCount = 0
	return nil
}

// Close implements Exporter.
func (e *ParquetExporter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs simerrors.MultiError
	for _, w := range e.writers {
		errs.Add(w.flush())
		// Closing the file writer also closes the underlying file.
		if err := w.writer.Close(); err != nil {
			errs.Add(simerrors.Wrap(err, simerrors.CodeWriteFailed, "close parquet writer").
				WithContext("table", w.table.name))
		}
		w.builder.Release()
	}
	return errs.Combined()
}

// Files implements Exporter.
func (e *ParquetExporter) Files() []string {
	files := make([]string, len(e.writers))
	for i, w := range e.writers {
		files[i] = w.path
	}
	return files
}

// RowsWritten implements Exporter.
func (e *ParquetExporter) RowsWritten() map[string]int64 {
	out := make(map[string]int64, len(e.writers))
	for _, w := range e.writers {
		out[w.table.name] = w.total
	}
	return out
}
