package models

// Wallet holds one user's balance in internal token units for a single
// currency. Totals are running counters, not derived fields.
type Wallet struct {
	UserID   int64  `json:"user_id" redis:"user_id"`
	Currency string `json:"currency" redis:"currency"`

	Balance      float64 `json:"balance" redis:"balance"`
	TotalWagered float64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon     float64 `json:"total_won" redis:"total_won"`
}
