package services

import (
	"sort"
	"time"

	"casino-aggregator-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// GoldAPIIntegration scopes the catalog cache keys for the gold_api provider
// family.
const GoldAPIIntegration = "goldapi"

// CatalogService maintains the merged game catalog: it crawls the provider's
// provider_list/game_list endpoints, commits the raw result to the cache and
// derives playable variants from it on every read.
type CatalogService struct {
	redis       *RedisService
	client      *ProviderClient
	logger      *logrus.Logger
	integration string

	// pace separates per-provider game_list calls; the provider rate-limits
	// aggressively, so this stays at one second in production.
	pace time.Duration
}

func NewCatalogService(redis *RedisService, client *ProviderClient, logger *logrus.Logger, pace time.Duration) *CatalogService {
	if pace <= 0 {
		pace = time.Second
	}
	return &CatalogService{
		redis:       redis,
		client:      client,
		logger:      logger,
		integration: GoldAPIIntegration,
		pace:        pace,
	}
}

// Providers returns the catalog partitioned by provider, refreshing the cache
// when it's empty. It never fails the caller: a refresh already in flight, a
// provider outage or a cache error all degrade to an empty result.
func (s *CatalogService) Providers() []models.ProviderGroup {
	loading, err := s.redis.HasCatalogLoading(s.integration)
	if err != nil {
		s.logger.WithError(err).Error("catalog loading-flag check failed")
		return nil
	}
	if loading {
		return nil
	}

	if groups, ok := s.cachedGroups(); ok {
		return groups
	}

	if err := s.refresh(); err != nil {
		s.logger.WithError(err).Error("catalog refresh failed")
		return nil
	}

	groups, _ := s.cachedGroups()
	return groups
}

// Variants flattens the catalog into the playable entry list.
func (s *CatalogService) Variants() []models.GameVariant {
	var variants []models.GameVariant
	for _, group := range s.Providers() {
		variants = append(variants, group.Variants()...)
	}
	return variants
}

// FindGameByCode looks a game up in the raw cached catalog, bypassing dedup
// and blacklist. Callback responses are decorated from here, and a callback
// can reference any raw entry the provider ever listed.
func (s *CatalogService) FindGameByCode(gameCode string) (models.GameVariant, bool) {
	games, ok, err := s.redis.GetCatalog(s.integration)
	if err != nil {
		s.logger.WithError(err).Error("catalog lookup failed")
		return models.GameVariant{}, false
	}
	if !ok {
		return models.GameVariant{}, false
	}

	for _, game := range games {
		if game.GameCode == gameCode {
			return models.NewGameVariant(game), true
		}
	}
	return models.GameVariant{}, false
}

func (s *CatalogService) cachedGroups() ([]models.ProviderGroup, bool) {
	games, ok, err := s.redis.GetCatalog(s.integration)
	if err != nil {
		s.logger.WithError(err).Error("catalog read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var groups []models.ProviderGroup
	for _, group := range models.GroupByProvider(games) {
		if len(group.Variants()) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, true
}

// refresh crawls the provider and commits the merged catalog. The loading
// flag is always cleared on the way out, success or not.
func (s *CatalogService) refresh() error {
	if err := s.redis.SetCatalogLoading(s.integration); err != nil {
		return err
	}

	games, err := s.crawl()
	if err != nil {
		s.clearLoading()
		return err
	}

	sort.SliceStable(games, func(i, j int) bool {
		if games[i].Provider.Code != games[j].Provider.Code {
			return games[i].Provider.Code < games[j].Provider.Code
		}
		return games[i].GameName < games[j].GameName
	})

	if err := s.redis.PutCatalog(s.integration, games, TTLCatalog); err != nil {
		s.clearLoading()
		return err
	}
	s.clearLoading()

	if err := s.redis.ForgetGameListAggregate(); err != nil {
		s.logger.WithError(err).Warn("failed to bust aggregate game list")
	}

	s.logger.WithField("games", len(games)).Info("catalog refresh completed")
	return nil
}

func (s *CatalogService) crawl() ([]models.ProviderGame, error) {
	resp, err := s.client.ProviderList()
	if err != nil {
		return nil, err
	}

	merged := []models.ProviderGame{}

	// A missing or falsy status is treated as an empty catalog, not an
	// outage: the provider answers this way during maintenance windows.
	if !resp.StatusTrue() {
		return merged, nil
	}

	providers, err := resp.Providers()
	if err != nil {
		return nil, err
	}

	for _, provider := range providers {
		listResp, err := s.client.GameList(provider.Code)
		if err != nil {
			return nil, err
		}

		games, err := listResp.Games()
		if err != nil {
			return nil, err
		}

		for _, game := range games {
			if !game.Status {
				continue
			}
			game.Provider = provider
			merged = append(merged, game)
		}

		time.Sleep(s.pace) // anti rate-limit
	}

	return merged, nil
}

func (s *CatalogService) clearLoading() {
	if err := s.redis.ClearCatalogLoading(s.integration); err != nil {
		s.logger.WithError(err).Error("failed to clear catalog loading flag")
	}
}
