package services_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"casino-aggregator-backend/internal/config"
	"casino-aggregator-backend/internal/models"
	"casino-aggregator-backend/internal/services"
)

func newTestRedis(t *testing.T) *services.RedisService {
	t.Helper()

	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return redisService
}

func newCatalogFixture(t *testing.T, handler http.HandlerFunc) (*services.CatalogService, *services.RedisService, func()) {
	t.Helper()

	redisService := newTestRedis(t)
	server := httptest.NewServer(handler)

	client := services.NewProviderClient(testConfig(server.URL), testLogger())
	catalog := services.NewCatalogService(redisService, client, testLogger(), time.Millisecond)

	cleanup := func() {
		redisService.DeleteCatalog(services.GoldAPIIntegration)
		redisService.Close()
		server.Close()
	}
	return catalog, redisService, cleanup
}

func catalogProviderFake(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case "/provider_list":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 1,
			"providers": []map[string]string{
				{"code": "bgaming", "name": "BGaming", "type": "slot"},
				{"code": "atmosfera", "name": "Atmosfera", "type": "live"},
			},
		})
	case "/game_list":
		games := map[string][]map[string]interface{}{
			"bgaming": {
				{"game_code": "bg2", "game_name": "Zeppelin", "status": true, "game_type": "slot"},
				{"game_code": "bg1", "game_name": "Aloha", "status": true, "game_type": "slot"},
				{"game_code": "bg3", "game_name": "Aloha", "status": true, "game_type": "slot"},
				{"game_code": "", "game_name": "Broken", "status": true, "game_type": "slot"},
				{"game_code": "bg4", "game_name": "Retired", "status": false, "game_type": "slot"},
			},
			"atmosfera": {
				{"game_code": "at1", "game_name": "Roulette", "status": true, "game_type": "live"},
			},
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 1,
			"games":  games[body["provider_code"].(string)],
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestCatalogRefreshAndReadPath(t *testing.T) {
	catalog, redisService, cleanup := newCatalogFixture(t, catalogProviderFake)
	defer cleanup()

	redisService.DeleteCatalog(services.GoldAPIIntegration)

	groups := catalog.Providers()
	if len(groups) != 2 {
		t.Fatalf("Expected 2 provider groups, got %d", len(groups))
	}

	// Raw cache is sorted by (provider.code, game_name), so atmosfera leads.
	if groups[0].Code != "atmosfera" || groups[1].Code != "bgaming" {
		t.Errorf("Unexpected group order: %s, %s", groups[0].Code, groups[1].Code)
	}

	variants := groups[1].Variants()
	if len(variants) != 2 {
		t.Fatalf("Expected 2 bgaming variants, got %d", len(variants))
	}
	if variants[0].Name() != "Aloha" || variants[1].Name() != "Zeppelin" {
		t.Errorf("Variants not sorted by name: %s, %s", variants[0].Name(), variants[1].Name())
	}
	// bg1 sorts before bg3 within the Aloha pair, so it wins the dedup.
	if variants[0].GameCode() != "bg1" {
		t.Errorf("Expected bg1 to survive the dedup, got %s", variants[0].GameCode())
	}

	if variant, ok := catalog.FindGameByCode("bg3"); !ok || variant.Name() != "Aloha" {
		t.Error("FindGameByCode should see raw entries the dedup dropped")
	}
	if _, ok := catalog.FindGameByCode("bg4"); ok {
		t.Error("Disabled games should not be in the raw cache")
	}

	// Second read comes from the cache without touching the provider and
	// yields the identical (provider, game) ordering.
	again := catalog.Providers()
	if !reflect.DeepEqual(flattenGroups(groups), flattenGroups(again)) {
		t.Errorf("Re-read order differs:\nfirst:  %v\nsecond: %v", flattenGroups(groups), flattenGroups(again))
	}
}

func flattenGroups(groups []models.ProviderGroup) []string {
	var out []string
	for _, group := range groups {
		for _, game := range group.Games {
			out = append(out, group.Code+"/"+game.GameName)
		}
	}
	return out
}

func TestCatalogLoadingFlagBacksOff(t *testing.T) {
	catalog, redisService, cleanup := newCatalogFixture(t, catalogProviderFake)
	defer cleanup()

	redisService.DeleteCatalog(services.GoldAPIIntegration)

	if err := redisService.SetCatalogLoading(services.GoldAPIIntegration); err != nil {
		t.Fatalf("Failed to set loading flag: %v", err)
	}

	if groups := catalog.Providers(); groups != nil {
		t.Errorf("Providers should return empty while a refresh is in flight, got %d groups", len(groups))
	}
}

func TestCatalogProviderOutageYieldsEmpty(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()
	defer redisService.DeleteCatalog(services.GoldAPIIntegration)

	redisService.DeleteCatalog(services.GoldAPIIntegration)

	client := services.NewProviderClient(testConfig("http://127.0.0.1:1"), testLogger())
	catalog := services.NewCatalogService(redisService, client, testLogger(), time.Millisecond)

	if groups := catalog.Providers(); groups != nil {
		t.Errorf("Expected empty result on provider outage, got %d groups", len(groups))
	}

	// A failed crawl commits nothing and clears the flag for the next reader.
	if _, ok, _ := redisService.GetCatalog(services.GoldAPIIntegration); ok {
		t.Error("Failed refresh must not commit a catalog")
	}
	loading, err := redisService.HasCatalogLoading(services.GoldAPIIntegration)
	if err != nil {
		t.Fatalf("Failed to check loading flag: %v", err)
	}
	if loading {
		t.Error("Loading flag must be cleared after a failed refresh")
	}
}

func TestCatalogMaintenanceCommitsEmpty(t *testing.T) {
	catalog, redisService, cleanup := newCatalogFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"msg":"MAINTENANCE"}`))
	})
	defer cleanup()

	redisService.DeleteCatalog(services.GoldAPIIntegration)

	if groups := catalog.Providers(); groups != nil {
		t.Errorf("Expected no groups during maintenance, got %d", len(groups))
	}

	// A falsy provider_list commits an empty catalog rather than failing.
	games, ok, err := redisService.GetCatalog(services.GoldAPIIntegration)
	if err != nil {
		t.Fatalf("Failed to read catalog: %v", err)
	}
	if !ok || len(games) != 0 {
		t.Errorf("Expected an empty committed catalog, ok=%v len=%d", ok, len(games))
	}
}
