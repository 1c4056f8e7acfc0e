package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rcolon/faretrack/internal/aggregator"
	"github.com/rcolon/faretrack/internal/cache"
	"github.com/rcolon/faretrack/internal/dedup"
	"github.com/rcolon/faretrack/internal/fx"
	"github.com/rcolon/faretrack/internal/history"
	"github.com/rcolon/faretrack/internal/metrics"
	"github.com/rcolon/faretrack/internal/models"
	"github.com/rcolon/faretrack/internal/scoring"
)

type SearchHandler struct {
	aggregator *aggregator.Aggregator
	cache      cache.Cache
	store      *history.Store
	fx         *fx.Service
	topN       int
}

func NewSearchHandler(agg *aggregator.Aggregator, c cache.Cache, store *history.Store, fxSvc *fx.Service, topN int) *SearchHandler {
	if topN <= 0 {
		topN = history.DefaultTopN
	}
	return &SearchHandler{
		aggregator: agg,
		cache:      c,
		store:      store,
		fx:         fxSvc,
		topN:       topN,
	}
}

func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	params, err := req.ToParams()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	metrics.SearchesTotal.Inc()

	if cached, found := h.cache.Get(ctx, params); found {
		return c.JSON(http.StatusOK, h.buildResponse(params, cached, aggregatorStats{}, startTime, true))
	}

	result, err := h.aggregator.Search(ctx, params)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "search_error",
			Message: "Failed to search flights: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}

	deduped := dedup.Dedup(result.Offers)
	_ = h.cache.Set(ctx, params, deduped)

	// Persistence is best-effort: a failure here must never fail or
	// block the search flow.
	go h.appendHistory(deduped, params)

	stats := aggregatorStats{
		queried:   result.ProvidersQueried,
		succeeded: result.ProvidersSucceeded,
		failed:    result.ProvidersFailed,
		failedBy:  result.FailedProviders,
	}
	return c.JSON(http.StatusOK, h.buildResponse(params, deduped, stats, startTime, false))
}

func (h *SearchHandler) appendHistory(offers []*models.Offer, params models.SearchParams) {
	if h.store == nil || len(offers) == 0 {
		return
	}

	sc := history.SearchContext{
		SearchTS:      time.Now().UTC(),
		Origin:        params.Origin,
		Destination:   params.Destination,
		TripStructure: params.TripStructure,
		DepartureDate: params.DepartureDate,
		ReturnDate:    params.ReturnDate,
		Passengers:    params.Passengers,
		MaxStopsLabel: params.MaxStops,
		FlexibleDates: params.FlexibleDates,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := h.store.AppendOffers(ctx, offers, sc, h.topN)
	if err != nil {
		log.Printf("history append failed: %v", err)
		return
	}
	metrics.HistoryRowsWritten.Add(float64(n))
}

type aggregatorStats struct {
	queried   int
	succeeded int
	failed    int
	failedBy  []string
}

func (h *SearchHandler) buildResponse(params models.SearchParams, offers []*models.Offer, stats aggregatorStats, startTime time.Time, cacheHit bool) models.SearchResponse {
	scored := scoring.ScoreOffers(offers, params)
	recommended := scoring.PickRecommended(scored)
	best := scoring.PickBestByPrice(offers)

	resp := models.SearchResponse{
		SearchCriteria: buildSearchCriteria(params),
		Metadata: models.SearchMetadata{
			TotalResults:       len(scored),
			ProvidersQueried:   stats.queried,
			ProvidersSucceeded: stats.succeeded,
			ProvidersFailed:    stats.failed,
			FailedProviders:    stats.failedBy,
			SearchTimeMs:       time.Since(startTime).Milliseconds(),
			CacheHit:           cacheHit,
		},
		Recommended: recommended,
		BestByPrice: best,
		Offers:      scored,
	}
	if recommended != nil {
		resp.RecommendedLabel = scoring.FormatOfferLabel(recommended.Offer)
	}
	return resp
}

func buildSearchCriteria(params models.SearchParams) models.SearchCriteria {
	var ret *string
	if params.ReturnDate != nil {
		s := params.ReturnDate.Format("2006-01-02")
		ret = &s
	}
	return models.SearchCriteria{
		Origin:           params.Origin,
		Destination:      params.Destination,
		TripStructure:    params.TripStructure,
		DepartureDate:    params.DepartureDate.Format("2006-01-02"),
		ReturnDate:       ret,
		OptimizationMode: params.OptimizationMode,
		Passengers:       params.Passengers,
		MaxStops:         params.MaxStops,
		Airlines:         params.Airlines,
		FlexibleDates:    params.FlexibleDates,
		UseRealData:      params.UseRealData,
	}
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
