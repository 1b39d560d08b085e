package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Error codes carried in the error_code extension of a problem response
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidUpload       = "INVALID_UPLOAD"
	CodeNoSurveyData        = "NO_SURVEY_DATA"
	CodeSourceNotConfigured = "SOURCE_NOT_CONFIGURED"
	CodeUploadTooLarge      = "UPLOAD_TOO_LARGE"
	CodeExportFailed        = "EXPORT_FAILED"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// problemTypes maps an error code to its RFC 7807 type
var problemTypes = map[string]string{
	CodeInvalidRequest:      TypeValidation,
	CodeValidationFailed:    TypeValidation,
	CodeInvalidUpload:       TypeInvalidUpload,
	CodeNoSurveyData:        TypeNoSurveyData,
	CodeSourceNotConfigured: TypeConflict,
	CodeUploadTooLarge:      TypePayloadTooLarge,
	CodeExportFailed:        TypeExportFailed,
	CodeServiceUnavailable:  TypeServiceDown,
}

// APIError is an error the handlers answer with a fixed status and code
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ProblemType returns the RFC 7807 type for the error code
func (e *APIError) ProblemType() string {
	if t, ok := problemTypes[e.ErrorCode]; ok {
		return t
	}
	return TypeInternal
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates an APIError
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

var (
	ErrInvalidUpload       = New(http.StatusBadRequest, CodeInvalidUpload, "Uploaded file is not a readable CSV or XLSX table")
	ErrNoSurveyData        = New(http.StatusNotFound, CodeNoSurveyData, "No survey data loaded; upload a file or configure a source")
	ErrSourceNotConfigured = New(http.StatusConflict, CodeSourceNotConfigured, "No survey source is configured; upload a file instead")
	ErrUploadTooLarge      = New(http.StatusRequestEntityTooLarge, CodeUploadTooLarge, "Uploaded file exceeds the size limit")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
)

// ValidationError is one rejected query or form field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every rejected field of a request
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ErrValidation reports a single invalid field
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors reports several invalid fields at once
func NewValidationErrors(errs []ValidationError) *APIError {
	return New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed").
		WithDetails(ValidationErrors{Errors: errs})
}

// InvalidUploadWithError keeps the decoder message so the user can fix the file
func InvalidUploadWithError(err error) *APIError {
	return ErrInvalidUpload.WithDetails(err.Error())
}

// UploadTooLarge reports the configured limit
func UploadTooLarge(limit int64) *APIError {
	return New(http.StatusRequestEntityTooLarge, CodeUploadTooLarge,
		fmt.Sprintf("Uploaded file exceeds the %d byte limit", limit)).
		WithDetails(map[string]int64{"max_bytes": limit})
}

// ExportFailed wraps a writer error for the given format
func ExportFailed(format string, err error) *APIError {
	return New(http.StatusInternalServerError, CodeExportFailed,
		fmt.Sprintf("Failed to export %s report", format)).
		WithDetails(err.Error())
}

// FromValidator converts validator.ValidationErrors into a VALIDATION_FAILED
// APIError with one entry per field. Other errors become INVALID_REQUEST.
func FromValidator(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request").WithDetails(err.Error())
	}

	fields := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ValidationError{
			Field:   fieldName(fe),
			Message: validationMessage(fe),
		})
	}
	return NewValidationErrors(fields)
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return strings.ToLower(name[:1]) + name[1:]
	}
	return fe.StructField()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "month_bucket":
		return fmt.Sprintf("must be YYYY-MM or \"all\", got %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
