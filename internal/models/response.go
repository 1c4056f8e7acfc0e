package models

type SearchMetadata struct {
	TotalResults       int      `json:"total_results"`
	ProvidersQueried   int      `json:"providers_queried"`
	ProvidersSucceeded int      `json:"providers_succeeded"`
	ProvidersFailed    int      `json:"providers_failed"`
	FailedProviders    []string `json:"failed_providers,omitempty"`
	SearchTimeMs       int64    `json:"search_time_ms"`
	CacheHit           bool     `json:"cache_hit"`
}

type SearchCriteria struct {
	Origin           string   `json:"origin"`
	Destination      string   `json:"destination"`
	TripStructure    string   `json:"trip_structure"`
	DepartureDate    string   `json:"departure_date"`
	ReturnDate       *string  `json:"return_date,omitempty"`
	OptimizationMode string   `json:"optimization_mode"`
	Passengers       int      `json:"passengers"`
	MaxStops         string   `json:"max_stops"`
	Airlines         []string `json:"airlines,omitempty"`
	FlexibleDates    bool     `json:"flexible_dates"`
	UseRealData      bool     `json:"use_real_data"`
}

type SearchResponse struct {
	SearchCriteria   SearchCriteria `json:"search_criteria"`
	Metadata         SearchMetadata `json:"metadata"`
	Recommended      *ScoredOffer   `json:"recommended,omitempty"`
	RecommendedLabel string         `json:"recommended_label,omitempty"`
	BestByPrice      *Offer         `json:"best_by_price,omitempty"`
	Offers           []ScoredOffer  `json:"offers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
