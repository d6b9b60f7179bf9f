package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// validationDetails lists the failed binding rules, or nil for malformed JSON.
func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
