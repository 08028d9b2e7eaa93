package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"dataanalyst/adapters/datareadiness/coercer"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"github.com/xuri/excelize/v2"
)

const msgUnreadableWorkbook = "Could not read the Excel workbook. Please check that it is a valid .xls or .xlsx file."

// ErrUnsupportedFileType is returned for uploads that are neither CSV nor Excel
var ErrUnsupportedFileType = errors.UnsupportedFile("Unsupported file type. Please upload CSV or Excel file.")

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filename string
	fileType FileType
}

// NewDataReader picks the reader for filename by its extension
func NewDataReader(filename string) (*DataReader, error) {
	fileType, ok := DetectFileType(filename)
	if !ok {
		return nil, ErrUnsupportedFileType
	}
	return &DataReader{filename: filename, fileType: fileType}, nil
}

// DetectFileType maps an extension to a FileType
func DetectFileType(filename string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, true
	case ".xlsx":
		return FileTypeExcel, true
	case ".xls":
		return FileTypeXLS, true
	}
	return "", false
}

// FileType returns the detected file type
func (r *DataReader) FileType() FileType {
	return r.fileType
}

// Read parses a CSV or Excel file by name
func Read(filename string, src io.Reader) (*dataset.Frame, error) {
	r, err := NewDataReader(filename)
	if err != nil {
		return nil, err
	}
	return r.Read(src)
}

// ReadFile opens and parses the file at path
func ReadFile(path string) (*dataset.Frame, error) {
	r, err := NewDataReader(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filepath.Base(path))
	}
	defer file.Close()
	return r.Read(file)
}

// Read parses src into a frame
func (r *DataReader) Read(src io.Reader) (*dataset.Frame, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filename)

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case FileTypeCSV:
		rows, err = r.readCSVRows(src)
	case FileTypeXLS:
		rows, err = r.readXLSRows(src)
	default:
		rows, err = r.readExcelRows(src)
	}
	if err != nil {
		return nil, err
	}
	return r.processRows(rows)
}

// readExcelRows reads the first sheet of a workbook
func (r *DataReader) readExcelRows(src io.Reader) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.UnreadableFile(msgUnreadableWorkbook, err)
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("Excel file has no worksheets")
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// readCSVRows reads UTF-8 CSV data, tolerating a byte order mark
func (r *DataReader) readCSVRows(src io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return nil, errors.InvalidInput("'utf-8' codec can't decode the file")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read CSV file: %w", err))
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// processRows turns a header row plus data rows into typed columns
func (r *DataReader) processRows(rows [][]string) (*dataset.Frame, error) {
	if r.fileType != FileTypeCSV {
		rows = dropBlankRows(rows)
	}
	if len(rows) == 0 {
		return nil, errors.InvalidInput("No columns to parse from file")
	}

	headers := uniqueHeaders(rows[0])
	width := len(headers)

	raw := make([][]string, width)
	for j := range raw {
		raw[j] = make([]string, 0, len(rows)-1)
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) > width {
			// excelize reports trailing empty cells that have formatting
			if r.fileType == FileTypeCSV || strings.TrimSpace(strings.Join(row[width:], "")) != "" {
				return nil, errors.InvalidInput(fmt.Sprintf(
					"Error tokenizing data. Expected %d fields in line %d, saw %d", width, i+1, len(row)))
			}
		}
		for j := 0; j < width; j++ {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			raw[j] = append(raw[j], cell)
		}
	}

	columns := make([]*dataset.Column, width)
	for j, name := range headers {
		columns[j] = coercer.BuildColumn(name, coercer.InferKind(raw[j]), raw[j])
	}

	frame, err := dataset.NewFrame(columns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to assemble data frame")
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(string(r.fileType)), frame.Width(), frame.Rows())
	return frame, nil
}

// uniqueHeaders trims header cells, names blank ones "Unnamed: i" and
// suffixes repeated names with .1, .2, ...
func uniqueHeaders(row []string) []string {
	headers := make([]string, len(row))
	seen := make(map[string]int, len(row))
	taken := make(map[string]bool, len(row))
	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for taken[candidate] {
			seen[name]++
			candidate = fmt.Sprintf("%s.%d", name, seen[name])
		}
		taken[candidate] = true
		headers[i] = candidate
	}
	return headers
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
