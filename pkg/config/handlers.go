package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// CirculationSettings is the subset of the configuration that clients need to
// build borrow and request forms.
type CirculationSettings struct {
	TimeZone        string `json:"time_zone"`
	DefaultLoanDays int    `json:"default_loan_days"`
}

type handler struct {
	config *Config
}

func (h *handler) retrieve(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, CirculationSettings{
		TimeZone:        h.config.TimeZone,
		DefaultLoanDays: h.config.DefaultLoanDays,
	}))
}
