package excel

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"time"

	"dataanalyst/internal/errors"

	"github.com/extrame/xls"
)

// xlsFormulaCell is what the BIFF reader returns for formula cells; the
// cached result is not decoded, so those cells are read as missing
const xlsFormulaCell = "FormulaCol"

// readXLSRows reads the first sheet of a legacy BIFF (.xls) workbook
func (r *DataReader) readXLSRows(src io.Reader) (rows [][]string, err error) {
	startTime := time.Now()
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Excel file")
	}

	// the BIFF parser panics on truncated records
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, errors.UnreadableFile(msgUnreadableWorkbook, fmt.Errorf("xls: %v", p))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, errors.UnreadableFile(msgUnreadableWorkbook, err)
	}
	if wb == nil {
		return nil, errors.UnreadableFile(msgUnreadableWorkbook, fmt.Errorf("xls: no Workbook stream"))
	}
	log.Printf("[DataReader] XLS file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.InvalidInput("Excel file has no worksheets")
	}

	readStart := time.Now()
	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			if v := row.Col(j); v != xlsFormulaCell {
				cells[j] = v
			}
		}
		rows = append(rows, cells)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet.Name, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// xlsRow returns row i, or nil when the sheet has no record for it
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
