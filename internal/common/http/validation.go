package http

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator/v10 tags over the request payload and returns
// a per-field message map suitable for a 422 response body.
func ValidateStruct(v any) (map[string]string, bool) {
	err := validate.Struct(v)
	if err == nil {
		return nil, true
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}, false
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return details, false
}

// DecodeAndValidate decodes the JSON body into v and validates it, writing
// the error response itself; callers bail out when it returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v any, failMessage string) bool {
	if err := DecodeJSON(r, v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if details, ok := ValidateStruct(v); !ok {
		WriteValidationError(w, failMessage, details)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
