package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Status answers the liveness ping on the API root. Load balancers and
// the platform's deploy checks look for the literal "Running" body.
func Status(c echo.Context) error {
	return c.String(http.StatusOK, "Running")
}

// Health is the conventional health-check endpoint used by monitoring
// systems. It returns a plain text "ok" with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
