package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rcolon/faretrack/internal/fx"
	"github.com/rcolon/faretrack/internal/history"
	"github.com/rcolon/faretrack/internal/models"
)

// RouteHistory serves the raw observation log for a route and
// departure date, ascending by search time.
func (h *SearchHandler) RouteHistory(c echo.Context) error {
	origin, destination, departureDate, limit, errResp := trendQuery(c)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, *errResp)
	}

	observations, err := h.store.RouteHistory(c.Request().Context(), origin, destination, departureDate, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "history_error",
			Message: "Failed to load route history: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
	if observations == nil {
		observations = []history.Observation{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"origin":         origin,
		"destination":    destination,
		"departure_date": departureDate.Format("2006-01-02"),
		"observations":   observations,
	})
}

// MarketTrend serves the dual-mode USD trend. FX failures degrade to an
// explicit unavailable error; a fabricated series is never returned.
func (h *SearchHandler) MarketTrend(c echo.Context) error {
	origin, destination, departureDate, limit, errResp := trendQuery(c)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, *errResp)
	}

	mode, points, err := h.store.MarketTrendUSD(c.Request().Context(), origin, destination, departureDate, h.fx, limit)
	if err != nil {
		var resErr *fx.ResolutionError
		if errors.As(err, &resErr) {
			return c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error:   "fx_unavailable",
				Message: err.Error(),
				Code:    http.StatusBadGateway,
			})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "trend_error",
			Message: "Failed to compute market trend: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"origin":         origin,
		"destination":    destination,
		"departure_date": departureDate.Format("2006-01-02"),
		"mode":           mode,
		"points":         points,
	})
}

func trendQuery(c echo.Context) (origin, destination string, departureDate time.Time, limit int, errResp *models.ErrorResponse) {
	origin = strings.ToUpper(c.Param("origin"))
	destination = strings.ToUpper(c.Param("destination"))
	if origin == "" || destination == "" {
		return "", "", time.Time{}, 0, &models.ErrorResponse{
			Error:   "validation_error",
			Message: "origin and destination are required",
			Code:    http.StatusBadRequest,
		}
	}

	dep, err := time.Parse("2006-01-02", c.QueryParam("departure_date"))
	if err != nil {
		return "", "", time.Time{}, 0, &models.ErrorResponse{
			Error:   "validation_error",
			Message: "departure_date must be YYYY-MM-DD",
			Code:    http.StatusBadRequest,
		}
	}

	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	return origin, destination, dep, limit, nil
}
