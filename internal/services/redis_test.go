package services_test

import (
	"testing"
	"time"

	"casino-aggregator-backend/internal/models"
	"casino-aggregator-backend/internal/services"
)

func TestWalletOperations(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()

	userID := int64(990001)
	defer redisService.DeleteWallet(userID, "usd")

	redisService.DeleteWallet(userID, "usd")

	wallet, err := redisService.GetWallet(userID, "usd")
	if err != nil {
		t.Fatalf("Failed to get wallet: %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("Fresh wallet should start at 0, got %f", wallet.Balance)
	}

	wallet.Balance = 5000
	if err := redisService.SaveWallet(wallet); err != nil {
		t.Fatalf("Failed to save wallet: %v", err)
	}

	balance, err := redisService.DebitWallet(userID, "usd", 1500)
	if err != nil {
		t.Fatalf("Failed to debit: %v", err)
	}
	if balance != 3500 {
		t.Errorf("Expected balance 3500 after debit, got %f", balance)
	}

	if _, err := redisService.DebitWallet(userID, "usd", 99999); err != services.ErrInsufficientBalance {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	balance, err = redisService.CreditWallet(userID, "usd", 500)
	if err != nil {
		t.Fatalf("Failed to credit: %v", err)
	}
	if balance != 4000 {
		t.Errorf("Expected balance 4000 after credit, got %f", balance)
	}

	wallet, _ = redisService.GetWallet(userID, "usd")
	if wallet.TotalWagered != 1500 || wallet.TotalWon != 500 {
		t.Errorf("Counters off: wagered %f won %f", wallet.TotalWagered, wallet.TotalWon)
	}
}

func TestTransactionClaims(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()

	serviceID := uniqueID("svc")
	defer redisService.ReleaseTransactionClaim(serviceID, "bet")

	if err := redisService.ClaimTransaction(serviceID, "bet"); err != nil {
		t.Fatalf("First claim should succeed: %v", err)
	}
	if err := redisService.ClaimTransaction(serviceID, "bet"); err != services.ErrDuplicateTransaction {
		t.Errorf("Second claim should be a duplicate, got %v", err)
	}

	// A different kind under the same id is a separate claim.
	if err := redisService.ClaimTransaction(serviceID, "win"); err != nil {
		t.Errorf("Win claim should be independent of bet: %v", err)
	}
	redisService.ReleaseTransactionClaim(serviceID, "win")

	exists, err := redisService.TransactionExists(serviceID, "bet")
	if err != nil || !exists {
		t.Errorf("Claimed pair should exist: %v %v", exists, err)
	}

	if err := redisService.ReleaseTransactionClaim(serviceID, "bet"); err != nil {
		t.Fatalf("Failed to release claim: %v", err)
	}
	if err := redisService.ClaimTransaction(serviceID, "bet"); err != nil {
		t.Errorf("Released claim should be reusable: %v", err)
	}
}

func TestUserIdentifierLookup(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()

	userID, err := redisService.NextUserID()
	if err != nil {
		t.Fatalf("Failed to allocate user id: %v", err)
	}

	user := &models.User{
		ID:       userID,
		Email:    "lookup@example.com",
		Username: "lookup_user",
		Phone:    "+1 (555) 987-6543",
	}
	defer redisService.DeleteUser(user)

	if err := redisService.SaveUser(user); err != nil {
		t.Fatalf("Failed to save user: %v", err)
	}

	for _, identifier := range []string{"lookup@example.com", "lookup_user", "+1 (555) 987-6543", "15559876543"} {
		found, err := redisService.FindUserByIdentifier(identifier)
		if err != nil {
			t.Errorf("Lookup by %q failed: %v", identifier, err)
			continue
		}
		if found.ID != userID {
			t.Errorf("Lookup by %q returned user %d", identifier, found.ID)
		}
	}

	if _, err := redisService.FindUserByIdentifier("ghost@example.com"); err != services.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRoundLifecycle(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()

	roundID := uniqueID("round")
	defer redisService.DeleteRound(roundID)

	missing, err := redisService.GetRound(roundID)
	if err != nil {
		t.Fatalf("GetRound failed: %v", err)
	}
	if missing != nil {
		t.Fatal("Unknown round should come back nil")
	}

	round := models.NewRound(roundID, 990002, "g1", "usd", 1000)
	if err := redisService.SaveRound(round); err != nil {
		t.Fatalf("Failed to save round: %v", err)
	}

	loaded, err := redisService.GetRound(roundID)
	if err != nil || loaded == nil {
		t.Fatalf("Failed to load round: %v", err)
	}
	if loaded.Status != models.RoundStatusInProgress || loaded.Wager != 1000 {
		t.Errorf("Unexpected round %+v", loaded)
	}
}

func TestRateLimit(t *testing.T) {
	redisService := newTestRedis(t)
	defer redisService.Close()

	userID := int64(990003)
	defer redisService.ClearRateLimit(userID, "launch")

	redisService.ClearRateLimit(userID, "launch")

	for i := 0; i < 3; i++ {
		allowed, err := redisService.CheckRateLimit(userID, "launch", 3, time.Minute)
		if err != nil {
			t.Fatalf("Rate limit check failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := redisService.CheckRateLimit(userID, "launch", 3, time.Minute)
	if err != nil {
		t.Fatalf("Rate limit check failed: %v", err)
	}
	if allowed {
		t.Error("Fourth request should be limited")
	}
}
