package service

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"intake/internal/cache"
	"intake/internal/logging"
	"intake/internal/model"
)

// CatalogService loads the dropdown data a form needs
type CatalogService struct {
	backend *BackendClient
	cache   *cache.Cache
	ttl     time.Duration
}

// NewCatalogService creates a catalog loader. c may be nil.
func NewCatalogService(backend *BackendClient, c *cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{backend: backend, cache: c, ttl: ttl}
}

// Load fetches property types, tags and users for a form kind and merges them
// with the fixed vocabularies. It never fails: when any fetch fails the fixed
// fallback is returned with Error set.
func (s *CatalogService) Load(ctx context.Context, kind model.FormKind) model.DropdownOptions {
	key := cache.Key("catalog", kind.Identity())
	var cached model.DropdownOptions
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached
	}

	var (
		propertyTypes []model.PropertyType
		tags          []model.TagGroup
		users         []model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		propertyTypes, err = s.fetchPropertyTypes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.fetchTags(gctx, kind)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.fetchUsers(gctx)
		return err
	})

	opts := model.DefaultDropdownOptions()
	if err := g.Wait(); err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("kind", string(kind)).Msg("❌ Failed to fetch dropdown data, serving fallback")
		opts.Users = model.FallbackUsers()
		opts.Error = err.Error()
		return opts
	}

	opts.PropertyTypes = nonNil(propertyTypes)
	opts.Tags = nonNil(tags)
	opts.Users = nonNil(users)
	s.cache.SetJSON(ctx, key, opts, s.ttl)
	return opts
}

// Invalidate drops the cached catalogs of a kind
func (s *CatalogService) Invalidate(ctx context.Context, kind model.FormKind) error {
	return s.cache.Delete(ctx, cache.Key("catalog", kind.Identity()))
}

// fetchPropertyTypes accepts both a bare list and the {data: [...]} envelope
func (s *CatalogService) fetchPropertyTypes(ctx context.Context) ([]model.PropertyType, error) {
	var raw json.RawMessage
	if err := s.backend.GetRaw(ctx, "/property-types", nil, &raw); err != nil {
		return nil, err
	}
	var list []model.PropertyType
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, &list); err == nil {
		return list, nil
	}
	var paged struct {
		Data []model.PropertyType `json:"data"`
	}
	if err := json.Unmarshal(env.Data, &paged); err != nil {
		return nil, err
	}
	return paged.Data, nil
}

func (s *CatalogService) fetchTags(ctx context.Context, kind model.FormKind) ([]model.TagGroup, error) {
	var groups []model.TagGroup
	err := s.backend.Get(ctx, "/tags", url.Values{"identity": {kind.Identity()}}, &groups)
	return groups, err
}

func (s *CatalogService) fetchUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.backend.Get(ctx, "/migrate/messages/users/fetch", nil, &users)
	return users, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
