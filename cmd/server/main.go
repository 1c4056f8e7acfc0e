package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcolon/faretrack/internal/aggregator"
	"github.com/rcolon/faretrack/internal/cache"
	"github.com/rcolon/faretrack/internal/fx"
	"github.com/rcolon/faretrack/internal/handler"
	"github.com/rcolon/faretrack/internal/history"
	"github.com/rcolon/faretrack/internal/providers"
	"github.com/rcolon/faretrack/internal/ratelimit"
	"github.com/rcolon/faretrack/internal/storage"
)

type Config struct {
	Port         string
	CacheEnabled bool
	RedisHost    string
	RedisPort    string
	RedisTTL     time.Duration

	DBPath  string
	CSVPath string

	TwelveDataAPIKey string
	FxTimeout        time.Duration
	FxLookbackDays   int

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusEnv          string

	HistoryTopN int
}

func main() {
	cfg := loadConfig()
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database at %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	store := history.NewStore(db)
	if err := store.EnsureSchema(); err != nil {
		log.Fatalf("Failed to initialize history schema: %v", err)
	}

	var fxService *fx.Service
	if cfg.TwelveDataAPIKey != "" {
		series, err := fx.NewTwelveDataClient(cfg.TwelveDataAPIKey, cfg.FxTimeout)
		if err != nil {
			log.Fatalf("Failed to initialize FX client: %v", err)
		}
		fxService = fx.NewService(db, series, "twelvedata", cfg.FxLookbackDays)
	} else {
		// Without an upstream, USD stays 1.0 and every other
		// currency resolves to an unavailable error.
		fxService = fx.NewService(db, fx.UnavailableSeries{}, "none", cfg.FxLookbackDays)
		log.Println("TWELVEDATA_API_KEY not set; non-USD trend conversion disabled")
	}
	if err := fxService.EnsureSchema(); err != nil {
		log.Fatalf("Failed to initialize FX schema: %v", err)
	}

	providerList, liveNames := initializeProviders(cfg)
	log.Printf("Initialized %d flight providers", len(providerList))

	rateLimiter := ratelimit.NewProviderLimiterWithDefaults()
	rateLimiter.SetProviderLimit("amadeus", 10, 20)

	aggConfig := aggregator.Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
		},
		RateLimiter: rateLimiter,
	}
	agg := aggregator.NewAggregator(providerList, liveNames, aggConfig)

	var searchCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host: cfg.RedisHost,
			Port: cfg.RedisPort,
			TTL:  cfg.RedisTTL,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		searchCache = redisCache
		log.Printf("Redis cache enabled (host: %s:%s, TTL: %v)", cfg.RedisHost, cfg.RedisPort, cfg.RedisTTL)
	} else {
		searchCache = cache.NewNoOpCache()
		log.Println("Cache disabled")
	}

	searchHandler := handler.NewSearchHandler(agg, searchCache, store, fxService, cfg.HistoryTopN)

	api := e.Group("/api/v1")
	api.POST("/flights/search", searchHandler.Search)
	api.GET("/history/:origin/:destination", searchHandler.RouteHistory)
	api.GET("/trend/:origin/:destination", searchHandler.MarketTrend)
	e.GET("/health", handler.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Printf("Starting fare tracker server on port %s", cfg.Port)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadConfig() Config {
	return Config{
		Port:         getEnv("PORT", "8080"),
		CacheEnabled: getEnvBool("CACHE_ENABLED", false),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisTTL:     getEnvDuration("REDIS_TTL", 5*time.Minute),

		DBPath:  getEnv("DB_PATH", "data/price_history.sqlite"),
		CSVPath: getEnv("CSV_PATH", "data/sample_flights.csv"),

		TwelveDataAPIKey: getEnv("TWELVEDATA_API_KEY", ""),
		FxTimeout:        getEnvDuration("FX_TIMEOUT", 20*time.Second),
		FxLookbackDays:   getEnvInt("FX_LOOKBACK_DAYS", 10),

		AmadeusClientID:     getEnv("AMADEUS_CLIENT_ID", ""),
		AmadeusClientSecret: getEnv("AMADEUS_CLIENT_SECRET", ""),
		AmadeusEnv:          getEnv("AMADEUS_ENV", "test"),

		HistoryTopN: getEnvInt("HISTORY_TOP_N", history.DefaultTopN),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func initializeProviders(cfg Config) ([]providers.Provider, []string) {
	providerList := []providers.Provider{
		providers.NewMockProvider(),
		providers.NewCSVProvider(cfg.CSVPath),
	}

	var liveNames []string
	if cfg.AmadeusClientID != "" && cfg.AmadeusClientSecret != "" {
		client, err := providers.NewAmadeusClient(cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.AmadeusEnv, 20*time.Second)
		if err != nil {
			log.Printf("Live provider disabled: %v", err)
		} else {
			live := providers.NewAmadeusProvider(client, 25)
			providerList = append(providerList, live)
			liveNames = append(liveNames, live.Name())
		}
	} else {
		log.Println("Amadeus credentials not set; live provider disabled")
	}

	return providerList, liveNames
}
