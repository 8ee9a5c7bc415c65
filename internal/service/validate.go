package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/school-dashboard/internal/apperror"
)

// newValidator reports field names by their JSON tag so ValidationFailed
// carries "userID_display" rather than "DisplayID".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into an
// *apperror.AppError. A non-empty override replaces the generated message.
func validationError(err error, override string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fe := verrs[0]
	if override != "" {
		return apperror.ValidationFailed(fe.Field(), override)
	}

	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(fe.Field(), fmt.Sprintf("%s is required", fe.Field()))
	case "max":
		return apperror.ValidationFailed(fe.Field(),
			fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param()))
	case "startswith":
		return apperror.ValidationFailed(fe.Field(),
			fmt.Sprintf("%s must start with %q", fe.Field(), fe.Param()))
	default:
		return apperror.ValidationFailed(fe.Field(), fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
