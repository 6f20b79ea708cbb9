package weather

import (
	"context"
	"errors"
)

var (
	// ErrConfiguration is returned when the feature cannot run with the given settings,
	// typically a missing API key.
	ErrConfiguration = errors.New("weather: invalid configuration")
	// ErrUnauthorized is returned by providers that reject the credential.
	ErrUnauthorized = errors.New("weather: credential rejected by provider")
)

// FetchRequest is what a provider needs to produce a Response.
type FetchRequest struct {
	APIKey   string
	Position Position
}

// Provider abstracts the remote forecast service.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) (Response, error)
}

// Publisher delivers batches to the host (bus, store, ...).
type Publisher interface {
	Publish(ctx context.Context, batch Batch) error
}

// StatusReporter is the health side channel towards the host.
type StatusReporter interface {
	SetStatus(msg string)
	SetError(msg string)
}
