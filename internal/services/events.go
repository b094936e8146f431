package services

// BalanceChangeEvent notifies listeners that a user's balance moved.
type BalanceChangeEvent struct {
	UserID    int64   `json:"user_id"`
	Currency  string  `json:"currency"`
	Direction string  `json:"direction"` // "add" or "subtract"
	Amount    float64 `json:"amount"`
	Balance   float64 `json:"balance"`
	Demo      bool    `json:"demo"`
}

// LiveFeedEvent is a public feed entry for a settled provider round.
type LiveFeedEvent struct {
	UserID       int64   `json:"user_id"`
	GameID       string  `json:"game_id"`
	GameName     string  `json:"game_name"`
	ProviderName string  `json:"provider_name"`
	RoundID      string  `json:"round_id"`
	Wager        float64 `json:"wager"`
	Profit       float64 `json:"profit"`
	Multiplier   float64 `json:"multiplier"`
}

// EventSink receives settlement side-channel events. Emission is strictly
// best-effort: the settlement engine logs failures and carries on, so an
// implementation must never depend on being called exactly once.
type EventSink interface {
	EmitBalanceChange(event BalanceChangeEvent) error
	EmitLiveFeed(event LiveFeedEvent) error
}

// NoopEventSink drops everything; used in tests and when no hub is wired.
type NoopEventSink struct{}

func (NoopEventSink) EmitBalanceChange(BalanceChangeEvent) error { return nil }
func (NoopEventSink) EmitLiveFeed(LiveFeedEvent) error           { return nil }
