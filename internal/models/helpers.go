package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRoundRecordID() string {
	return fmt.Sprintf("round_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// NormalizePhone strips everything but digits, matching how provider user
// codes are compared against stored phone numbers.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func NewRound(roundID string, userID int64, gameID, currency string, wager float64) *Round {
	now := time.Now().Unix()
	return &Round{
		ID:         GenerateRoundRecordID(),
		RoundID:    roundID,
		UserID:     userID,
		GameID:     gameID,
		Status:     RoundStatusInProgress,
		Wager:      wager,
		Profit:     0,
		Multiplier: 0,
		Currency:   currency,
		Demo:       false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
