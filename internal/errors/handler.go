package errors

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal"
)

// Category classifies an error for the user-facing message
type Category int

const (
	CategoryUnknown Category = iota
	CategoryFileNotFound
	CategoryPermission
	CategoryValue
	CategoryKey
	CategoryType
	CategoryIndex
	CategoryDependency
	CategoryMemory
	CategoryDivisionByZero
	CategoryAttribute
	CategoryValidation
)

var categoryMessages = map[Category]string{
	CategoryFileNotFound:   "The file could not be found. Please check that the file exists and try again.",
	CategoryPermission:     "Permission denied. Please check that you have the necessary permissions to access the file.",
	CategoryValue:          "Invalid value provided. Please check your input and try again.",
	CategoryKey:            "A required key was not found. This might be due to missing column names.",
	CategoryType:           "Type error occurred. This might be due to incompatible data types.",
	CategoryIndex:          "Index error occurred. This might be due to accessing non-existent data.",
	CategoryDependency:     "Failed to import a required module. Please check your installation.",
	CategoryMemory:         "Not enough memory to complete the operation. Try with a smaller dataset.",
	CategoryDivisionByZero: "Division by zero occurred during calculation.",
	CategoryAttribute:      "Attribute error occurred. This might be due to accessing non-existent attributes.",
}

// CodeDependency marks a missing driver or backend
const CodeDependency = "DEPENDENCY_ERROR"

// Classify inspects the error chain and returns its category
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return CategoryFileNotFound
	}
	if stderrors.Is(err, fs.ErrPermission) {
		return CategoryPermission
	}
	if stderrors.Is(err, bytes.ErrTooLarge) {
		return CategoryMemory
	}
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return CategoryMemory
	}
	if stderrors.Is(err, exec.ErrNotFound) {
		return CategoryDependency
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Code {
		case CodeValidationError, CodeUnsupportedFile:
			return CategoryValidation
		case CodeInvalidInput:
			return CategoryValue
		case CodeNotFound:
			return CategoryKey
		case CodeTypeError:
			return CategoryType
		case CodeDependency:
			return CategoryDependency
		}
	}

	var numErr *strconv.NumError
	if stderrors.As(err, &numErr) {
		return CategoryValue
	}

	var rtErr runtime.Error
	if stderrors.As(err, &rtErr) {
		msg := rtErr.Error()
		switch {
		case strings.Contains(msg, "divide by zero"):
			return CategoryDivisionByZero
		case strings.Contains(msg, "index out of range"), strings.Contains(msg, "slice bounds out of range"):
			return CategoryIndex
		case strings.Contains(msg, "nil pointer"):
			return CategoryAttribute
		case strings.Contains(msg, "interface conversion"):
			return CategoryType
		}
	}
	return CategoryUnknown
}

// UserMessage converts err into the message shown in the dashboard.
// Validation errors are already phrased for users and pass through as is.
func UserMessage(err error, context string) string {
	var msg string
	switch category := Classify(err); category {
	case CategoryValidation:
		var appErr *AppError
		stderrors.As(err, &appErr)
		msg = appErr.Message
	case CategoryUnknown:
		msg = "An error occurred: " + err.Error()
	default:
		msg = categoryMessages[category]
	}
	if context != "" {
		msg = context + ": " + msg
	}
	return msg
}

// Handler logs errors before turning them into user messages
type Handler struct {
	logger *internal.Logger
}

// NewHandler creates a handler logging through logger, or the default logger when nil
func NewHandler(logger *internal.Logger) *Handler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Handler{logger: logger}
}

// Handle logs err with its stack trace and returns the user-facing message
func (h *Handler) Handle(err error, context string) string {
	if err == nil {
		return ""
	}
	h.logger.Error("Error in %s: %s - %v", context, GetCode(err), err)
	h.logger.Debug("Stack trace: %+v", err)
	return UserMessage(err, context)
}

// HTTPStatus maps an error to the status code returned by the API
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidInput, CodeValidationError, CodeUnsupportedFile, CodeTypeError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	}
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// ValidateFile checks that path is an existing regular file. kind may be
// "csv", "excel" or empty to skip the extension check.
func ValidateFile(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ValidationError("File does not exist.")
	}
	if !info.Mode().IsRegular() {
		return ValidationError("Path is not a file.")
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch strings.ToLower(kind) {
	case "csv":
		if ext != ".csv" {
			return ValidationError("File is not a CSV file.")
		}
	case "excel":
		if ext != ".xlsx" && ext != ".xls" {
			return ValidationError("File is not an Excel file.")
		}
	}
	return nil
}

// ValidateFrame rejects frames without rows or columns
func ValidateFrame(f *dataset.Frame) error {
	if f == nil {
		return ValidationError("Input is not a valid DataFrame.")
	}
	// a frame without columns also has no rows, so emptiness is reported first
	if f.Rows() == 0 {
		return ValidationError("DataFrame is empty.")
	}
	if f.Width() == 0 {
		return ValidationError("DataFrame has no columns.")
	}
	return nil
}
