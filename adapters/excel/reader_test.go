package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "\xef\xbb\xbfregion,units,price,active\n" +
	"north,10,2.5,True\n" +
	"south,,3.75,False\n" +
	"east,7,NA,True\n"

func TestReadCSV(t *testing.T) {
	frame, err := Read("sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Rows())
	assert.Equal(t, []string{"region", "units", "price", "active"}, frame.Names())

	region, _ := frame.Column("region")
	assert.Equal(t, dataset.KindObject, region.Kind)

	units, _ := frame.Column("units")
	assert.Equal(t, dataset.KindFloat, units.Kind, "a gap turns integers into floats")
	assert.True(t, units.Values[1].Missing)

	price, _ := frame.Column("price")
	assert.Equal(t, []float64{2.5, 3.75}, price.Floats())

	active, _ := frame.Column("active")
	assert.Equal(t, dataset.KindBool, active.Kind)
}

func TestReadHeaders(t *testing.T) {
	frame, err := Read("dups.csv", strings.NewReader("a,a, ,a\n1,2,3,4\n5,6\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, frame.Names())
	last, _ := frame.Column("a.2")
	assert.True(t, last.Values[1].Missing, "short rows are padded")
}

func TestReadRejectsLongRows(t *testing.T) {
	_, err := Read("bad.csv", strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "Expected 2 fields in line 2, saw 3")
}

func TestReadUnsupportedType(t *testing.T) {
	_, err := Read("notes.txt", strings.NewReader("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFileType))
	assert.Equal(t, "Unsupported file type. Please upload CSV or Excel file.", errors.UserMessage(err, ""))
}

func TestReadEmptyFile(t *testing.T) {
	_, err := Read("empty.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, "No columns to parse from file", err.Error())

	frame, err := Read("header.csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Rows())
	assert.EqualError(t, errors.ValidateFrame(frame), "DataFrame is empty.")
}

func TestXLSXRoundTrip(t *testing.T) {
	source, err := Read("sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	stats := Sheet{Name: "Statistics", Header: []string{"", "units"}, Rows: [][]interface{}{{"count", 2.0}}}
	require.NoError(t, WriteXLSX(&buf, source, stats))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	frame, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, source.Names(), frame.Names())
	assert.Equal(t, 3, frame.Rows())

	price, _ := frame.Column("price")
	assert.Equal(t, dataset.KindFloat, price.Kind)
	assert.Equal(t, []float64{2.5, 3.75}, price.Floats())
}

func TestReadLegacyXLS(t *testing.T) {
	frame, err := ReadFile(filepath.Join("testdata", "codes.xls"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Code", "Name", "Description"}, frame.Names())
	assert.Equal(t, 11, frame.Rows())
	assert.Equal(t, []string{"code1", "name1", "description1"}, frame.Record(0))
	assert.Equal(t, []string{"code11", "name11", "description11"}, frame.Record(10))

	code, _ := frame.Column("Code")
	assert.Equal(t, dataset.KindObject, code.Kind)
}

func TestReadUnreadableWorkbook(t *testing.T) {
	ole2Header := append([]byte("\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1"), make([]byte, 504)...)

	tests := []struct {
		name string
		data []byte
	}{
		{"legacy.xls", ole2Header},
		{"legacy.xls", []byte("region,units\nnorth,1\n")},
		{"report.xlsx", ole2Header},
	}
	for _, tt := range tests {
		_, err := Read(tt.name, bytes.NewReader(tt.data))
		require.Error(t, err, tt.name)
		assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
		assert.Equal(t, "Error processing file: "+msgUnreadableWorkbook, errors.UserMessage(err, "Error processing file"))
	}
}

func TestDetectFileType(t *testing.T) {
	for name, want := range map[string]FileType{
		"a.csv":  FileTypeCSV,
		"b.XLSX": FileTypeExcel,
		"c.xls":  FileTypeXLS,
	} {
		got, ok := DetectFileType(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := DetectFileType("d.ods")
	assert.False(t, ok)
}

func TestWriteCSV(t *testing.T) {
	frame := dataset.MustFrame(
		dataset.NewColumn("name", dataset.KindObject, []dataset.Value{dataset.String("a,b"), dataset.Missing()}),
		dataset.NewColumn("score", dataset.KindFloat, []dataset.Value{dataset.Number(1), dataset.Number(0.25)}),
	)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, frame))
	assert.Equal(t, "name,score\n\"a,b\",1.0\n,0.25\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "data_export_20240506_070809.csv", ExportFilename(ExportCSV, now))
	assert.Equal(t, "data_export_20240506_070809.xlsx", ExportFilename(ExportXLSX, now))
	assert.Equal(t, "data_analysis_report_20240506_070809.pdf", ExportFilename(ExportReport, now))
}
