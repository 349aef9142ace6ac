package handler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("session_id", validateSessionID)
	return v
}

func validateSessionID(fl validator.FieldLevel) bool {
	return sessionIDPattern.MatchString(fl.Field().String())
}

// bindJSON decodes the request body into req and runs its validate tags.
func bindJSON(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	return validateStruct(req)
}

func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrValidationFailed.WithError(err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return domain.ErrValidationFailed.WithError(errors.New(strings.Join(fields, "; ")))
}
