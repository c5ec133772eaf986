// Package export writes stored job postings to CSV or XLSX files.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/spigell/joe-enricher/internal/job"
)

// SheetName is the worksheet XLSX exports write to.
const SheetName = "Jobs"

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", errors.WithHint(
		errors.Newf("unsupported export format %q", filepath.Ext(path)),
		"use an output path ending in .csv or .xlsx",
	)
}

// Write exports records to path, creating or truncating the file.
func Write(path string, records []*job.Record) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(f, records)
	default:
		err = WriteCSV(f, records)
	}
	if err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteCSV writes a header row of column names followed by one row per record.
func WriteCSV(w io.Writer, records []*job.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return errors.Wrapf(err, "write csv row for job %s", rec.JobID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WriteXLSX writes the same table as WriteCSV into a single worksheet.
func WriteXLSX(w io.Writer, records []*job.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "name worksheet")
	}

	write := func(line int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(SheetName, cell, &cells)
	}

	if err := write(1, header()); err != nil {
		return errors.Wrap(err, "write xlsx header")
	}
	for i, rec := range records {
		if err := write(i+2, row(rec)); err != nil {
			return errors.Wrapf(err, "write xlsx row for job %s", rec.JobID)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write xlsx")
	}
	return nil
}

func header() []string {
	cols := job.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return names
}

func row(rec *job.Record) []string {
	cols := job.Columns()
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = cell(rec.Get(c))
	}
	return values
}

func cell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return ""
}
