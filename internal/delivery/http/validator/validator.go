// Package validator adapts go-playground/validator to Echo's Validator interface.
package validator

import (
	"net/http"

	playground "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type requestValidator struct {
	validate *playground.Validate
}

// New creates the validator installed on the Echo server.
func New() echo.Validator {
	return &requestValidator{
		validate: playground.New(playground.WithRequiredStructEnabled()),
	}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
