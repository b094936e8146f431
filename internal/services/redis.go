package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"casino-aggregator-backend/internal/config"
	"casino-aggregator-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrUserNotFound         = errors.New("user not found")
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// ---- catalog cache ----

// HasCatalogLoading reports whether a catalog refresh is in flight for the
// given integration key. Advisory only: readers back off, they don't block.
func (s *RedisService) HasCatalogLoading(integration string) (bool, error) {
	n, err := s.client.Exists(s.ctx, fmt.Sprintf(KeyCatalogLoading, integration)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisService) SetCatalogLoading(integration string) error {
	return s.client.Set(s.ctx, fmt.Sprintf(KeyCatalogLoading, integration), "true", 0).Err()
}

func (s *RedisService) ClearCatalogLoading(integration string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyCatalogLoading, integration)).Err()
}

func (s *RedisService) GetCatalog(integration string) ([]models.ProviderGame, bool, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyCatalog, integration)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var games []models.ProviderGame
	if err := json.Unmarshal([]byte(data), &games); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal catalog: %v", err)
	}
	return games, true, nil
}

func (s *RedisService) PutCatalog(integration string, games []models.ProviderGame, ttl time.Duration) error {
	data, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %v", err)
	}
	return s.client.Set(s.ctx, fmt.Sprintf(KeyCatalog, integration), data, ttl).Err()
}

// ForgetGameListAggregate busts the merged "all games" view that downstream
// code caches separately from the raw per-integration catalog.
func (s *RedisService) ForgetGameListAggregate() error {
	return s.client.Del(s.ctx, KeyGameListAgg).Err()
}

func (s *RedisService) DeleteCatalog(integration string) error {
	return s.client.Del(s.ctx,
		fmt.Sprintf(KeyCatalog, integration),
		fmt.Sprintf(KeyCatalogLoading, integration),
	).Err()
}

// ---- users ----

// NextUserID allocates a monotonically increasing user id.
func (s *RedisService) NextUserID() (int64, error) {
	return s.client.Incr(s.ctx, KeyUserIDSeq).Result()
}

func (s *RedisService) SaveUser(user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(s.ctx, fmt.Sprintf(KeyUserInfo, user.ID), data, 0)
	if user.Email != "" {
		pipe.Set(s.ctx, fmt.Sprintf(KeyUserByEmail, user.Email), user.ID, 0)
	}
	if user.Username != "" {
		pipe.Set(s.ctx, fmt.Sprintf(KeyUserByName, user.Username), user.ID, 0)
	}
	if phone := models.NormalizePhone(user.Phone); phone != "" {
		pipe.Set(s.ctx, fmt.Sprintf(KeyUserByPhone, phone), user.ID, 0)
	}
	_, err = pipe.Exec(s.ctx)
	return err
}

func (s *RedisService) GetUser(userID int64) (*models.User, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyUserInfo, userID)).Result()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}

// FindUserByIdentifier resolves a provider user_code against the email,
// username and digits-only phone indexes, in that order.
func (s *RedisService) FindUserByIdentifier(identifier string) (*models.User, error) {
	keys := []string{
		fmt.Sprintf(KeyUserByEmail, identifier),
		fmt.Sprintf(KeyUserByName, identifier),
	}
	if phone := models.NormalizePhone(identifier); phone != "" {
		keys = append(keys, fmt.Sprintf(KeyUserByPhone, phone))
	}

	for _, key := range keys {
		id, err := s.client.Get(s.ctx, key).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.GetUser(id)
	}
	return nil, ErrUserNotFound
}

func (s *RedisService) DeleteUser(user *models.User) error {
	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, fmt.Sprintf(KeyUserInfo, user.ID))
	pipe.Del(s.ctx, fmt.Sprintf(KeyUserByEmail, user.Email))
	pipe.Del(s.ctx, fmt.Sprintf(KeyUserByName, user.Username))
	pipe.Del(s.ctx, fmt.Sprintf(KeyUserByPhone, models.NormalizePhone(user.Phone)))
	_, err := pipe.Exec(s.ctx)
	return err
}

// ---- wallets ----

func (s *RedisService) GetWallet(userID int64, currency string) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID, currency)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		wallet := &models.Wallet{
			UserID:   userID,
			Currency: currency,
		}
		if err := s.SaveWallet(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}
	return &wallet, nil
}

func (s *RedisService) SaveWallet(wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.UserID, wallet.Currency)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}
	return s.client.Set(s.ctx, key, data, 0).Err()
}

func (s *RedisService) DeleteWallet(userID int64, currency string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyWallet, userID, currency)).Err()
}

var debitWalletScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.total_wagered = wallet.total_wagered + amount

	redis.call("SET", key, cjson.encode(wallet))

	return tostring(wallet.balance)
`)

// DebitWallet atomically subtracts amount from the wallet, failing when the
// balance would go negative. Returns the balance after the mutation.
func (s *RedisService) DebitWallet(userID int64, currency string, amount float64) (float64, error) {
	key := fmt.Sprintf(KeyWallet, userID, currency)
	res, err := debitWalletScript.Run(s.ctx, s.client, []string{key}, amount).Result()
	if err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}
	return parseScriptBalance(res)
}

var creditWalletScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.balance = wallet.balance + amount
	wallet.total_won = wallet.total_won + amount

	redis.call("SET", key, cjson.encode(wallet))

	return tostring(wallet.balance)
`)

// CreditWallet atomically adds amount to the wallet. Returns the balance
// after the mutation.
func (s *RedisService) CreditWallet(userID int64, currency string, amount float64) (float64, error) {
	key := fmt.Sprintf(KeyWallet, userID, currency)
	res, err := creditWalletScript.Run(s.ctx, s.client, []string{key}, amount).Result()
	if err != nil {
		return 0, err
	}
	return parseScriptBalance(res)
}

func parseScriptBalance(res interface{}) (float64, error) {
	str, ok := res.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected script result %T", res)
	}
	var balance float64
	if _, err := fmt.Sscanf(str, "%g", &balance); err != nil {
		return 0, fmt.Errorf("failed to parse balance %q: %v", str, err)
	}
	return balance, nil
}

// ---- transactions ----

// ClaimTransaction claims the (service_id, service_type) pair with SETNX.
// A lost claim means another callback already settled this transaction; the
// claim happens before any balance mutation so concurrent duplicates cannot
// both get through. Claims never expire: the dedup guarantee must outlive
// the transaction records' retention window.
func (s *RedisService) ClaimTransaction(serviceID, serviceType string) error {
	claimKey := fmt.Sprintf(KeyTxnByService, serviceID, serviceType)
	claimed, err := s.client.SetNX(s.ctx, claimKey, "1", 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim transaction: %v", err)
	}
	if !claimed {
		return ErrDuplicateTransaction
	}
	return nil
}

// ReleaseTransactionClaim gives a claim back after a failed mutation so a
// legitimate retry isn't rejected as a duplicate.
func (s *RedisService) ReleaseTransactionClaim(serviceID, serviceType string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyTxnByService, serviceID, serviceType)).Err()
}

// SaveTransaction records a ledger mutation. The duplicate claim is taken
// separately via ClaimTransaction.
func (s *RedisService) SaveTransaction(tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	txKey := fmt.Sprintf(KeyTransaction, tx.ID)
	if err := s.client.Set(s.ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTxns, tx.UserID)
	if err := s.client.ZAdd(s.ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to user transactions: %v", err)
	}

	// Keep only last 100 transactions per user
	s.client.ZRemRangeByRank(s.ctx, userTxKey, 0, -101)

	return nil
}

func (s *RedisService) TransactionExists(serviceID, serviceType string) (bool, error) {
	key := fmt.Sprintf(KeyTxnByService, serviceID, serviceType)
	n, err := s.client.Exists(s.ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisService) GetUserTransactions(userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyUserTxns, userID)
	txIDs, err := s.client.ZRevRange(s.ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %v", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

// ---- rounds ----

func (s *RedisService) GetRound(roundID string) (*models.Round, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyRound, roundID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %v", err)
	}

	var round models.Round
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %v", err)
	}
	return &round, nil
}

func (s *RedisService) SaveRound(round *models.Round) error {
	round.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %v", err)
	}
	return s.client.Set(s.ctx, fmt.Sprintf(KeyRound, round.RoundID), data, TTLRound).Err()
}

func (s *RedisService) DeleteRound(roundID string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyRound, roundID)).Err()
}

// ---- provider user provisioning ----

func (s *RedisService) IsProviderUserProvisioned(userID int64) (bool, error) {
	n, err := s.client.Exists(s.ctx, fmt.Sprintf(KeyProviderUser, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisService) MarkProviderUserProvisioned(userID int64) error {
	return s.client.Set(s.ctx, fmt.Sprintf(KeyProviderUser, userID), "true", 0).Err()
}

// ---- rate limiting ----

func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(userID int64, action string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}
