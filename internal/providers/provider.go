package providers

import (
	"context"

	"github.com/rcolon/faretrack/internal/models"
)

// Provider is a flight-offer source. Every variant returns canonical
// offers; raw payload shapes never leave this package.
type Provider interface {
	Name() string
	Search(ctx context.Context, params models.SearchParams) ([]*models.Offer, error)
}

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}
