package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/opsplatform/core/pkg/apierr"
)

func mapError(err error) *echo.HTTPError {
	if apierr.IsValidation(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if apierr.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if apierr.IsConflict(err) || apierr.IsAlreadyExists(err) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if apierr.IsUnauthorized(err) {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if apierr.IsForbidden(err) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	if apierr.IsExternal(err) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	slog.Error("unexpected use-case error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
