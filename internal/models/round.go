package models

const (
	RoundStatusInProgress = "in-progress"
	RoundStatusWin        = "win"
	RoundStatusLose       = "lose"
)

// Round tracks one provider play session, keyed by the provider-issued round
// id. It is created at most once per round id and accumulates profit across
// the callbacks belonging to that round.
type Round struct {
	ID      string `json:"id" redis:"id"`
	RoundID string `json:"round_id" redis:"round_id"`
	UserID  int64  `json:"user_id" redis:"user_id"`
	GameID  string `json:"game_id" redis:"game_id"`

	Status     string  `json:"status" redis:"status"`
	Wager      float64 `json:"wager" redis:"wager"`
	Profit     float64 `json:"profit" redis:"profit"`
	Multiplier float64 `json:"multiplier" redis:"multiplier"`
	Currency   string  `json:"currency" redis:"currency"`
	Demo       bool    `json:"demo" redis:"demo"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

// Payout returns profit/wager, the multiplier stored on finalization.
// A non-positive wager yields 0.
func (r *Round) Payout() float64 {
	if r.Profit > 0 && r.Wager > 0 {
		return r.Profit / r.Wager
	}
	return 0
}
