// Package validation wraps go-playground/validator with the project's custom
// rules and turns its errors into field-level messages.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
	"dogfordate/pkg/model"

	"github.com/go-playground/validator/v10"
)

var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// AppError converts the field errors into a VALIDATION_ERROR response.
func (v ValidationErrors) AppError() *apperrors.AppError {
	return apperrors.Validation(v.Error(), map[string]any{"errors": []ValidationError(v)})
}

// Field builds a single-field failure for checks that struct tags cannot express.
func Field(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

type Validator struct {
	validate *validator.Validate
}

func New(log *logger.Logger) *Validator {
	v := validator.New()

	rules := map[string]validator.Func{
		"listing_size":   oneOfFunc(model.Sizes),
		"activity_level": oneOfFunc(model.ActivityLevels),
		"personality":    oneOfFunc(model.Personalities),
		"clock":          validateClock,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return &Validator{validate: v}
}

func oneOfFunc(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// Struct runs the tag rules on s. Failures come back as ValidationErrors.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return translate(validationErrs)
	}
	return err
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "lte":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "unique":
			message = fmt.Sprintf("%s must not contain duplicates", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "listing_size":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(model.Sizes, ", "))
		case "activity_level":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(model.ActivityLevels, ", "))
		case "personality":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(model.Personalities, ", "))
		case "clock":
			message = fmt.Sprintf("%s must be a 24h time (HH:MM)", err.Field())
		}

		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return out
}
