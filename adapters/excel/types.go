package excel

// FileType identifies a supported upload format
type FileType string

const (
	FileTypeCSV   FileType = "csv"
	FileTypeExcel FileType = "excel"
	FileTypeXLS   FileType = "xls"
)

// DataSheet is the worksheet name used for exported data
const DataSheet = "Data"

// Sheet is an extra worksheet appended to an XLSX export
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}
