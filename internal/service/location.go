package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intake/internal/cache"
	"intake/internal/model"
)

// LocationLookup searches places by free text
type LocationLookup interface {
	SearchLocations(ctx context.Context, query string) ([]model.Location, error)
}

// LocationClient queries the backend's location autocomplete
type LocationClient struct {
	backend *BackendClient
	cache   *cache.Cache
	ttl     time.Duration
	limit   int
}

// NewLocationClient creates a location lookup. c may be nil.
func NewLocationClient(backend *BackendClient, c *cache.Cache, ttl time.Duration, limit int) *LocationClient {
	if limit <= 0 {
		limit = 10
	}
	return &LocationClient{backend: backend, cache: c, ttl: ttl, limit: limit}
}

type autocompleteItem struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
}

// SearchLocations implements LocationLookup. Queries shorter than two
// characters return no results without a network call.
func (l *LocationClient) SearchLocations(ctx context.Context, query string) ([]model.Location, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []model.Location{}, nil
	}

	key := cache.Key("location", query)
	var cached []model.Location
	if l.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var items []autocompleteItem
	params := url.Values{"search": {query}, "limit": {strconv.Itoa(l.limit)}}
	if err := l.backend.Get(ctx, "/locations/autocomplete", params, &items); err != nil {
		return nil, err
	}

	locations := make([]model.Location, 0, len(items))
	for _, item := range items {
		locations = append(locations, model.Location{ID: item.ID, Name: item.FullName})
	}
	l.cache.SetJSON(ctx, key, locations, l.ttl)
	return locations, nil
}

var _ LocationLookup = (*LocationClient)(nil)
