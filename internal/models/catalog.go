package models

// Provider is one upstream game operator as returned by the provider_list call.
type Provider struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ProviderGame is one raw game record from a game_list call, merged with its
// owning provider. The raw catalog cache stores these unfiltered; dedup and
// blacklisting happen at read time when variants are derived.
type ProviderGame struct {
	GameCode string   `json:"game_code"`
	GameName string   `json:"game_name"`
	Status   bool     `json:"status"`
	Banner   string   `json:"banner"`
	RoundID  string   `json:"round_id"`
	GameType string   `json:"game_type"`
	Provider Provider `json:"provider"`
}

const (
	CategoryLive  = "live"
	CategorySlots = "slot"
)

// MetadataIDPrefix namespaces external game ids so they can't collide with
// locally hosted games.
const MetadataIDPrefix = "external:gold:"

// codeBlacklist holds game codes that must never surface in the catalog.
// Currently only malformed records with an empty code.
var codeBlacklist = map[string]struct{}{
	"": {},
}

// GameVariant is one playable catalog entry. It implements the Metadata
// capability set for the gold_api provider family.
type GameVariant struct {
	game ProviderGame
}

func NewGameVariant(game ProviderGame) GameVariant {
	return GameVariant{game: game}
}

func (v GameVariant) ID() string           { return MetadataIDPrefix + v.game.GameCode }
func (v GameVariant) GameCode() string     { return v.game.GameCode }
func (v GameVariant) Name() string         { return v.game.GameName }
func (v GameVariant) Icon() string         { return "slots" }
func (v GameVariant) Image() string        { return v.game.Banner }
func (v GameVariant) RoundID() string      { return v.game.RoundID }
func (v GameVariant) ProviderCode() string { return v.game.Provider.Code }
func (v GameVariant) ProviderName() string { return v.game.Provider.Name }

// Categories derives catalog tags from the game type and the provider type.
func (v GameVariant) Categories() []string {
	var categories []string

	if v.game.GameType == "live" {
		categories = append(categories, CategoryLive)
	}
	if v.game.GameType == "slot" {
		categories = append(categories, CategorySlots)
	}

	if v.game.Provider.Type == "live" {
		categories = append(categories, CategoryLive)
	}
	if v.game.Provider.Type == "slot" {
		categories = append(categories, CategorySlots)
	}

	return categories
}

// ProviderGroup is the set of raw games sharing one provider code, in cache order.
type ProviderGroup struct {
	Code  string
	Games []ProviderGame
}

// Variants derives the playable entries for this group: first occurrence per
// distinct game name wins, blacklisted game codes are skipped.
func (g ProviderGroup) Variants() []GameVariant {
	var variants []GameVariant
	seen := make(map[string]struct{}, len(g.Games))

	for _, game := range g.Games {
		if _, blocked := codeBlacklist[game.GameCode]; blocked {
			continue
		}
		if _, dup := seen[game.GameName]; dup {
			continue
		}
		seen[game.GameName] = struct{}{}
		variants = append(variants, NewGameVariant(game))
	}

	return variants
}

// GroupByProvider partitions raw catalog entries by provider code, preserving
// the order of first appearance. Groups that would yield no variants are kept
// here; the caller drops them after derivation.
func GroupByProvider(games []ProviderGame) []ProviderGroup {
	var order []string
	byCode := make(map[string][]ProviderGame)

	for _, game := range games {
		code := game.Provider.Code
		if _, ok := byCode[code]; !ok {
			order = append(order, code)
		}
		byCode[code] = append(byCode[code], game)
	}

	groups := make([]ProviderGroup, 0, len(order))
	for _, code := range order {
		groups = append(groups, ProviderGroup{Code: code, Games: byCode[code]})
	}
	return groups
}
