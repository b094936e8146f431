package models

type TransactionType string

const (
	TransactionTypeBet      TransactionType = "bet"
	TransactionTypeWin      TransactionType = "win"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

// Transaction is one ledger mutation. ServiceID carries the provider-issued
// transaction id; at most one record may exist per (ServiceID, ServiceType)
// pair, which is the duplicate-settlement guard.
type Transaction struct {
	ID            string          `json:"id" redis:"id"`
	UserID        int64           `json:"user_id" redis:"user_id"`
	Type          TransactionType `json:"type" redis:"type"`
	Amount        float64         `json:"amount" redis:"amount"`
	BalanceBefore float64         `json:"balance_before" redis:"balance_before"`
	BalanceAfter  float64         `json:"balance_after" redis:"balance_after"`
	Currency      string          `json:"currency" redis:"currency"`

	ServiceID   string `json:"service_id,omitempty" redis:"service_id"`
	ServiceType string `json:"service_type,omitempty" redis:"service_type"`

	GameName     string `json:"game_name,omitempty" redis:"game_name"`
	ProviderName string `json:"provider_name,omitempty" redis:"provider_name"`
	Description  string `json:"description" redis:"description"`
	CreatedAt    int64  `json:"created_at" redis:"created_at"`
}
