package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rcolon/faretrack/internal/models"
)

type Cache interface {
	Get(ctx context.Context, params models.SearchParams) ([]*models.Offer, bool)
	Set(ctx context.Context, params models.SearchParams, offers []*models.Offer) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host: "localhost",
		Port: "6379",
		TTL:  5 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, params models.SearchParams) ([]*models.Offer, bool) {
	data, err := c.client.Get(ctx, generateKey(params)).Bytes()
	if err != nil {
		return nil, false
	}

	var offers []*models.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, false
	}

	return offers, true
}

func (c *RedisCache) Set(ctx context.Context, params models.SearchParams, offers []*models.Offer) error {
	data, err := json.Marshal(offers)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, generateKey(params), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, params models.SearchParams) ([]*models.Offer, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, params models.SearchParams, offers []*models.Offer) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func generateKey(params models.SearchParams) string {
	keyData := struct {
		Origin        string
		Destination   string
		TripStructure string
		DepartureDate string
		ReturnDate    string
		Passengers    int
		MaxStops      string
		FlexibleDates bool
		UseRealData   bool
	}{
		Origin:        params.Origin,
		Destination:   params.Destination,
		TripStructure: params.TripStructure,
		DepartureDate: params.DepartureDate.Format("2006-01-02"),
		Passengers:    params.Passengers,
		MaxStops:      params.MaxStops,
		FlexibleDates: params.FlexibleDates,
		UseRealData:   params.UseRealData,
	}

	if params.ReturnDate != nil {
		keyData.ReturnDate = params.ReturnDate.Format("2006-01-02")
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "fare:" + hex.EncodeToString(hash[:])
}
