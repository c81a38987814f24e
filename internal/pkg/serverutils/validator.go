package serverutils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks struct tags and maps the first violation to a 400.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return NewAPIError(fiber.StatusBadRequest,
			fmt.Sprintf("field %s failed validation on %s", first.Field(), first.Tag()))
	}
	return NewAPIError(fiber.StatusBadRequest, "invalid request body")
}
