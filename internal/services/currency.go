package services

import (
	"fmt"

	"casino-aggregator-backend/internal/config"
)

// Currency converts between the provider's external units and internal token
// units, and formats balances the way the provider expects them echoed back.
type Currency struct {
	ID        string
	TokenRate float64
}

// ConvertExternalToToken turns a provider-side amount into token units.
func (c Currency) ConvertExternalToToken(amount float64) float64 {
	return amount * c.TokenRate
}

// ConvertTokenToExternal turns a token amount back into provider units.
func (c Currency) ConvertTokenToExternal(amount float64) float64 {
	return amount / c.TokenRate
}

// FormatDisplay renders an external amount as the fiat-style string used in
// callback responses and launch requests.
func (c Currency) FormatDisplay(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// CurrencyRegistry resolves a user's selected currency id, falling back to
// the configured default for unknown ids.
type CurrencyRegistry struct {
	currencies map[string]Currency
	fallback   Currency
}

func NewCurrencyRegistry(cfg *config.Config) *CurrencyRegistry {
	def := Currency{ID: cfg.DefaultCurrency, TokenRate: cfg.TokenRate}
	return &CurrencyRegistry{
		currencies: map[string]Currency{def.ID: def},
		fallback:   def,
	}
}

func (r *CurrencyRegistry) Register(currency Currency) {
	r.currencies[currency.ID] = currency
}

func (r *CurrencyRegistry) Find(id string) Currency {
	if currency, ok := r.currencies[id]; ok {
		return currency
	}
	return r.fallback
}

func (r *CurrencyRegistry) Default() Currency {
	return r.fallback
}
