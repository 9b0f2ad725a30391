package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/interfaces/http/dto"
)

// TagDecimalGT0 requires a decimal field to be strictly positive
const TagDecimalGT0 = "decimal_gt0"

var setupValidatorOnce sync.Once

// SetupValidator configures gin's validator: JSON field names in errors,
// decimal.Decimal validated through its string form, and the decimal_gt0 tag.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
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
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation(TagDecimalGT0, decimalGT0)
	})
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalGT0(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.String {
		d, err := decimal.NewFromString(field.String())
		return err == nil && d.IsPositive()
	}
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.IsPositive()
	}
	return false
}

// ValidationDetails converts binding errors into response details.
// It returns false when err is not a validation failure (e.g. malformed JSON).
func ValidationDetails(err error) ([]dto.ValidationDetail, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   fieldPath(e),
			Message: getValidationMessage(e),
			Tag:     e.Tag(),
		})
	}
	return details, true
}

// fieldPath drops the request struct name from the namespace, e.g. PlanRequest.batches[0].quantity
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case TagDecimalGT0:
		return "Must be a number greater than zero"
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
	case "gt":
		return "Must be greater than " + e.Param()
	case "latitude":
		return "Must be a valid latitude"
	case "longitude":
		return "Must be a valid longitude"
	default:
		return "Invalid value"
	}
}
