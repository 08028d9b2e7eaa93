package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Export kinds understood by ExportFilename
const (
	ExportCSV    = "csv"
	ExportXLSX   = "xlsx"
	ExportReport = "pdf"
)

// ExportFilename returns the timestamped download name for an export kind
func ExportFilename(kind string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	if kind == ExportReport {
		return fmt.Sprintf("data_analysis_report_%s.pdf", stamp)
	}
	return fmt.Sprintf("data_export_%s.%s", stamp, kind)
}

// WriteCSV writes the frame as CSV without an index column
func WriteCSV(w io.Writer, f *dataset.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	for i := 0; i < f.Rows(); i++ {
		if err := cw.Write(f.Record(i)); err != nil {
			return errors.Wrapf(err, "failed to write CSV row %d", i+1)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "failed to flush CSV")
	}
	return nil
}

// WriteXLSX writes the frame to a "Data" worksheet followed by any extra sheets
func WriteXLSX(w io.Writer, f *dataset.Frame, extra ...Sheet) error {
	startTime := time.Now()
	xf := excelize.NewFile()
	defer xf.Close()

	if err := xf.SetSheetName("Sheet1", DataSheet); err != nil {
		return errors.Wrap(err, "failed to name data sheet")
	}
	headerStyle, err := xf.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	rows := make([][]interface{}, f.Rows())
	for i := range rows {
		row := make([]interface{}, f.Width())
		for j, col := range f.Columns {
			row[j] = cellValue(col, i)
		}
		rows[i] = row
	}
	if err := writeSheet(xf, DataSheet, f.Names(), rows, headerStyle); err != nil {
		return err
	}

	for _, sheet := range extra {
		if _, err := xf.NewSheet(sheet.Name); err != nil {
			return errors.Wrapf(err, "failed to add sheet %s", sheet.Name)
		}
		if err := writeSheet(xf, sheet.Name, sheet.Header, sheet.Rows, headerStyle); err != nil {
			return err
		}
	}

	if err := xf.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	log.Printf("[DataWriter] XLSX written in %.2fms (%d rows, %d sheets)",
		float64(time.Since(startTime).Nanoseconds())/1e6, f.Rows(), len(extra)+1)
	return nil
}

func writeSheet(xf *excelize.File, name string, header []string, rows [][]interface{}, headerStyle int) error {
	sw, err := xf.NewStreamWriter(name)
	if err != nil {
		return errors.Wrapf(err, "failed to open stream writer for %s", name)
	}

	headerRow := make([]interface{}, len(header))
	for j, h := range header {
		headerRow[j] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return errors.Wrapf(err, "failed to write %s header", name)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to resolve cell name")
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", name, i+1)
		}
	}
	return sw.Flush()
}

// cellValue returns the typed value stored in a worksheet cell
func cellValue(col *dataset.Column, i int) interface{} {
	v := col.Values[i]
	if v.Missing {
		return nil
	}
	switch col.Kind {
	case dataset.KindInt:
		return int64(v.Num)
	case dataset.KindFloat:
		return v.Num
	case dataset.KindBool:
		return v.Bool
	default:
		return col.Format(i)
	}
}
