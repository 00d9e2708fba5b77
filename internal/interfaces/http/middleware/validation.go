package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures gin's validator: JSON field names in errors and the
// domain tags role, ledger_status and party.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	RegisterValidations(v)
	return nil
}

// RegisterValidations installs the custom tags on v
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := identity.ParseRole(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("ledger_status", func(fl validator.FieldLevel) bool {
		_, err := ledger.ParseStatus(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("party", func(fl validator.FieldLevel) bool {
		_, err := ledger.ParseParty(fl.Field().String())
		return err == nil
	})
}

// ValidationDetails converts validator errors to response details. ok is false
// when err is not a validation error.
func ValidationDetails(err error) ([]dto.ValidationDetail, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return details, true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "role":
		return "Unknown profile; expected one of Vendedor, Supervisor, Gerente, Administrativo, Financeiro, Master"
	case "ledger_status":
		return "Unknown status; expected Pendente, Pago, Cancelado or Isento"
	case "party":
		return "Unknown party; expected Vendedor, Supervisor or Gerente"
	default:
		return "Invalid value"
	}
}
