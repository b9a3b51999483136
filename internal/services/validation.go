package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

// productMessages maps "<json field>.<tag>" to the message returned to
// clients.
var productMessages = map[string]string{
	"name.required":        "Product name is required",
	"name.max":             "Product name cannot exceed 100 characters",
	"description.required": "Product description is required",
	"description.max":      "Product description cannot exceed 1000 characters",
	"price.required":       "Product price is required",
	"price.gte":            "Price must be a positive number",
	"category.required":    "Product category is required",
	"category.category":    "Please select a valid category",
	"stock.gte":            "Stock cannot be negative",
	"url.required":         "Image url is required",
}

var userMessages = map[string]string{
	"name.required":     "Name is required",
	"name.min":          "Name must be at least 2 characters",
	"name.max":          "Name cannot exceed 100 characters",
	"email.required":    "Email is required",
	"email.email":       "Please provide a valid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct runs v over s and folds every failure into a single
// ValidationError.
func validateStruct(v *validator.Validate, s interface{}, messages map[string]string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return apperror.NewValidationError(out...)
}
