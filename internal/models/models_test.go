package models_test

import (
	"testing"

	"casino-aggregator-backend/internal/models"
)

func TestProviderGroupVariants(t *testing.T) {
	games := []models.ProviderGame{
		{GameCode: "g1", GameName: "Zeus", Status: true, Provider: models.Provider{Code: "pr", Name: "Pragmatic"}},
		{GameCode: "g2", GameName: "Zeus", Status: true, Provider: models.Provider{Code: "pr", Name: "Pragmatic"}},
		{GameCode: "", GameName: "Broken", Status: true, Provider: models.Provider{Code: "pr", Name: "Pragmatic"}},
		{GameCode: "g3", GameName: "Olympus", Status: true, Provider: models.Provider{Code: "pr", Name: "Pragmatic"}},
	}

	group := models.ProviderGroup{Code: "pr", Games: games}
	variants := group.Variants()

	if len(variants) != 2 {
		t.Fatalf("Expected 2 variants, got %d", len(variants))
	}

	// First occurrence of a duplicated name wins.
	if variants[0].GameCode() != "g1" {
		t.Errorf("Expected g1 to win the Zeus dedup, got %s", variants[0].GameCode())
	}
	if variants[1].Name() != "Olympus" {
		t.Errorf("Expected Olympus second, got %s", variants[1].Name())
	}
}

func TestGroupByProviderOrder(t *testing.T) {
	games := []models.ProviderGame{
		{GameCode: "g1", GameName: "A", Provider: models.Provider{Code: "beta"}},
		{GameCode: "g2", GameName: "B", Provider: models.Provider{Code: "alpha"}},
		{GameCode: "g3", GameName: "C", Provider: models.Provider{Code: "beta"}},
	}

	groups := models.GroupByProvider(games)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].Code != "beta" || groups[1].Code != "alpha" {
		t.Errorf("Groups should keep first-appearance order, got %s, %s", groups[0].Code, groups[1].Code)
	}
	if len(groups[0].Games) != 2 {
		t.Errorf("Expected 2 games under beta, got %d", len(groups[0].Games))
	}
}

func TestGameVariantMetadata(t *testing.T) {
	variant := models.NewGameVariant(models.ProviderGame{
		GameCode: "g9",
		GameName: "Roulette Live",
		Banner:   "https://cdn/banner.png",
		GameType: "live",
		Provider: models.Provider{Code: "evo", Name: "Evolution", Type: "slot"},
	})

	if variant.ID() != models.MetadataIDPrefix+"g9" {
		t.Errorf("Unexpected variant id %s", variant.ID())
	}
	if variant.Icon() != "slots" {
		t.Errorf("Unexpected icon %s", variant.Icon())
	}

	categories := variant.Categories()
	if len(categories) != 2 || categories[0] != models.CategoryLive || categories[1] != models.CategorySlots {
		t.Errorf("Unexpected categories %v", categories)
	}
}

func TestRoundPayout(t *testing.T) {
	round := &models.Round{Wager: 1000, Profit: 2500}
	if round.Payout() != 2.5 {
		t.Errorf("Expected payout 2.5, got %f", round.Payout())
	}

	zeroWager := &models.Round{Wager: 0, Profit: 500}
	if zeroWager.Payout() != 0 {
		t.Errorf("Zero wager should yield payout 0, got %f", zeroWager.Payout())
	}

	loss := &models.Round{Wager: 1000, Profit: 0}
	if loss.Payout() != 0 {
		t.Errorf("Zero profit should yield payout 0, got %f", loss.Payout())
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := models.NormalizePhone("+1 (555) 012-3456"); got != "15550123456" {
		t.Errorf("Expected 15550123456, got %s", got)
	}
	if got := models.NormalizePhone("no digits"); got != "" {
		t.Errorf("Expected empty string, got %s", got)
	}
}

func TestParseCallbackEnvelope(t *testing.T) {
	body := []byte(`{
		"game_type": "slot",
		"user_code": "player@example.com",
		"agent_balance": 9000.5,
		"user_balance": 12.34,
		"slot": {
			"game_code": "g1",
			"round_id": "r-77",
			"bet": 1.5,
			"win": 3,
			"txn_id": "t-100",
			"txn_type": "debit_credit",
			"provider_code": "pr"
		}
	}`)

	envelope, err := models.ParseCallbackEnvelope(body)
	if err != nil {
		t.Fatalf("Failed to parse envelope: %v", err)
	}

	if envelope.UserCode != "player@example.com" {
		t.Errorf("Unexpected user_code %s", envelope.UserCode)
	}

	data, err := envelope.GameData()
	if err != nil {
		t.Fatalf("Failed to extract game data: %v", err)
	}

	if data.GameCode != "g1" || data.TxnID != "t-100" || data.Bet != 1.5 || data.Win != 3 {
		t.Errorf("Unexpected game data %+v", data)
	}
	if data.Type != "slot" {
		t.Errorf("Type should be backfilled from game_type, got %s", data.Type)
	}
}

func TestParseCallbackEnvelopeRejectsBadBodies(t *testing.T) {
	if _, err := models.ParseCallbackEnvelope([]byte(`{"user_code":"x"}`)); err == nil {
		t.Error("Envelope without game_type should fail")
	}
	if _, err := models.ParseCallbackEnvelope([]byte(`{"game_type":"slot","user_code":"x"}`)); err == nil {
		t.Error("Envelope without nested payload should fail")
	}
	if _, err := models.ParseCallbackEnvelope([]byte(`not json`)); err == nil {
		t.Error("Invalid JSON should fail")
	}
}
