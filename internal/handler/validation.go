package handler

import (
	"github.com/go-playground/validator/v10"
)

// formatValidationErrors flattens validator errors into field/tag
// pairs for the error response details.
func formatValidationErrors(err error) []map[string]string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	details := make([]map[string]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, map[string]string{
			"field": e.Field(),
			"tag":   e.Tag(),
		})
	}
	return details
}
