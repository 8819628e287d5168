package serverutils

import (
	"fmt"
	"strings"

	"ai-chatwidget-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct-tag validation and folds failures into a single
// validation error suitable for the HTTP envelope.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := errorsAs(err, &fieldErrs); ok {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return apperror.Wrap(apperror.KindValidation, "invalid fields: "+strings.Join(parts, ", "), err)
		}
		return apperror.Wrap(apperror.KindValidation, "invalid request", err)
	}
	return nil
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}
