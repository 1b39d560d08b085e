package middleware

import (
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "ergopulse/internal/errors"
	"ergopulse/internal/survey"
	api "ergopulse/pkg/contracts/api/v1"
)

// Validator checks request contracts using struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the dashboard's custom tags and reports fields by
// their query or JSON name.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterValidation("month_bucket", isMonthBucket)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validate: v}
}

// Struct validates s and returns a VALIDATION_FAILED APIError listing every
// invalid field
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return apierrors.FromValidator(err)
	}
	return nil
}

// isMonthBucket accepts YYYY-MM or one of the "all" selector values
func isMonthBucket(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s == "" || api.IsSelectAll(s) || survey.ValidBucket(s)
}

// ContentTypeValidator ensures requests with a body have an allowed media type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			mediaType, _, err := mime.ParseMediaType(contentType)
			if contentType == "" || err != nil {
				render.Render(w, r, apierrors.NewProblemDetails(
					http.StatusBadRequest,
					apierrors.TypeValidation,
					"Bad Request",
					"Content-Type header is required",
					r.URL.Path,
				).WithExtension("allowed", contentTypes))
				return
			}

			for _, allowed := range contentTypes {
				if strings.EqualFold(mediaType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.Render(w, r, apierrors.NewProblemDetails(
				http.StatusUnsupportedMediaType,
				apierrors.TypeValidation,
				"Unsupported Media Type",
				"Unsupported content type "+mediaType,
				r.URL.Path,
			).WithExtension("allowed", contentTypes))
		})
	}
}
