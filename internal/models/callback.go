package models

import (
	"encoding/json"
	"fmt"
)

// TxnType values the provider sends in game callbacks.
const (
	TxnTypeDebit       = "debit"
	TxnTypeCredit      = "credit"
	TxnTypeDebitCredit = "debit_credit"
)

// GameCallback is the per-game payload nested inside the callback envelope
// under the game_type key.
type GameCallback struct {
	GameCode     string  `json:"game_code"`
	RoundID      string  `json:"round_id"`
	Bet          float64 `json:"bet"`
	Win          float64 `json:"win"`
	TxnID        string  `json:"txn_id"`
	TxnType      string  `json:"txn_type"`
	ProviderCode string  `json:"provider_code"`
	Type         string  `json:"type"`
}

// CallbackEnvelope is the outer game_callback body. The game data sits under a
// dynamic key named by GameType, so the raw body is kept for a second pass.
type CallbackEnvelope struct {
	GameType     string  `json:"game_type"`
	UserCode     string  `json:"user_code"`
	AgentBalance float64 `json:"agent_balance"`
	UserBalance  float64 `json:"user_balance"`

	raw map[string]json.RawMessage
}

// ParseCallbackEnvelope decodes the envelope and locates the nested game payload.
func ParseCallbackEnvelope(body []byte) (*CallbackEnvelope, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid callback body: %w", err)
	}
	if envelope.GameType == "" {
		return nil, fmt.Errorf("callback missing game_type")
	}
	if err := json.Unmarshal(body, &envelope.raw); err != nil {
		return nil, fmt.Errorf("invalid callback body: %w", err)
	}
	if _, ok := envelope.raw[envelope.GameType]; !ok {
		return nil, fmt.Errorf("callback missing %q payload", envelope.GameType)
	}
	return &envelope, nil
}

// GameData extracts the nested payload keyed by game_type. The payload's type
// field is backfilled from the envelope, mirroring what the provider omits.
func (e *CallbackEnvelope) GameData() (GameCallback, error) {
	var data GameCallback
	if err := json.Unmarshal(e.raw[e.GameType], &data); err != nil {
		return GameCallback{}, fmt.Errorf("invalid %q payload: %w", e.GameType, err)
	}
	if data.Type == "" {
		data.Type = e.GameType
	}
	return data, nil
}

// Settlement rejection reasons, returned verbatim to the provider.
const (
	MsgInvalidUser       = "INVALID_USER"
	MsgInsufficientFunds = "INSUFFICIENT_USER_FUNDS"
	MsgDuplicatedRequest = "DUPLICATED_REQUEST"
	MsgInternalError     = "INTERNAL_ERROR"
)

// SettlementResult is the provider-shaped settle outcome. Status is 1 on
// success and 0 on any rejection; the transport response is always HTTP 200.
type SettlementResult struct {
	Status        int    `json:"status"`
	UserBalance   string `json:"user_balance,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Msg           string `json:"msg,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// LaunchSession is the opaque descriptor handed to the frontend after a
// successful game_launch. Third-party sessions carry no local state.
type LaunchSession struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Link string `json:"link"`
}
