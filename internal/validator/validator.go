// Package validator provides the struct validation rules shared by the
// ledger's pre-flight checks and by Gin's binding engine in tests.
package validator

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"financas/internal/models"
)

// New returns a Validate instance with the custom rules registered and
// field names resolved from json tags, so validation messages match the
// wire contract.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	return v
}

// RegisterBinding registers the custom rules with Gin's binding engine.
func RegisterBinding() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
	}
}

// Message renders a single field error as a short human-readable
// message suitable for attaching to the offending input.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "transaction_type":
		return "must be INCOME or EXPENSE"
	}
	return "is invalid"
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.TransactionType(fl.Field().String()).Valid()
}
