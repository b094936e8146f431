package services

import (
	"errors"
	"fmt"
	"time"

	"casino-aggregator-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Launch failure messages, keyed off the provider's HTTP status.
const (
	msgLaunchForbidden = "The authenticated user is not allowed to access the specified API endpoint."
	msgLaunchAuth      = "Authentication failed."
	msgLaunchGeneric   = "Error during game initialization"
)

// SettlementEngine settles provider game callbacks against user wallets and
// drives the game_launch and user_balance flows. Settle never returns an
// error: every outcome, including internal failures, is folded into a
// provider-shaped SettlementResult so the transport layer can always answer
// HTTP 200.
type SettlementEngine struct {
	redis      *RedisService
	client     *ProviderClient
	catalog    *CatalogService
	currencies *CurrencyRegistry
	events     EventSink
	analytics  AnalyticsPublisher
	logger     *logrus.Logger
}

func NewSettlementEngine(
	redis *RedisService,
	client *ProviderClient,
	catalog *CatalogService,
	currencies *CurrencyRegistry,
	events EventSink,
	analytics AnalyticsPublisher,
	logger *logrus.Logger,
) *SettlementEngine {
	return &SettlementEngine{
		redis:      redis,
		client:     client,
		catalog:    catalog,
		currencies: currencies,
		events:     events,
		analytics:  analytics,
		logger:     logger,
	}
}

// Settle runs one game callback through validation, duplicate detection,
// debit, optional credit and round finalization.
func (e *SettlementEngine) Settle(envelope *models.CallbackEnvelope) (result models.SettlementResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("settlement panicked")
			result = models.SettlementResult{
				Status:       0,
				Msg:          models.MsgInternalError,
				ErrorMessage: fmt.Sprintf("%v", r),
			}
		}
	}()

	data, err := envelope.GameData()
	if err != nil {
		return e.internalError(err)
	}

	user, err := e.redis.FindUserByIdentifier(envelope.UserCode)
	if errors.Is(err, ErrUserNotFound) {
		return models.SettlementResult{Status: 0, Msg: models.MsgInvalidUser}
	}
	if err != nil {
		return e.internalError(err)
	}

	currency := e.currencies.Find(user.SelectedCurrency)
	betTokens := currency.ConvertExternalToToken(data.Bet)
	winTokens := currency.ConvertExternalToToken(data.Win)

	wallet, err := e.redis.GetWallet(user.ID, currency.ID)
	if err != nil {
		return e.internalError(err)
	}

	if betTokens > wallet.Balance {
		return models.SettlementResult{Status: 0, Msg: models.MsgInsufficientFunds}
	}

	// Pre-check mirrors the provider contract: a debit callback is checked
	// against the bet ledger, a credit callback against the win ledger, and
	// debit_credit carries a fresh txn id so it is not pre-checked. The
	// write-time claims below close the remaining race window.
	switch data.TxnType {
	case models.TxnTypeDebit:
		if dup, err := e.redis.TransactionExists(data.TxnID, string(models.TransactionTypeBet)); err != nil {
			return e.internalError(err)
		} else if dup {
			return models.SettlementResult{Status: 0, Msg: models.MsgDuplicatedRequest}
		}
	case models.TxnTypeCredit:
		if dup, err := e.redis.TransactionExists(data.TxnID, string(models.TransactionTypeWin)); err != nil {
			return e.internalError(err)
		} else if dup {
			return models.SettlementResult{Status: 0, Msg: models.MsgDuplicatedRequest}
		}
	}

	gameName := data.GameCode
	providerName := data.ProviderCode
	if variant, ok := e.catalog.FindGameByCode(data.GameCode); ok {
		gameName = variant.Name()
		providerName = variant.ProviderName()
	}

	round, err := e.redis.GetRound(data.RoundID)
	if err != nil {
		return e.internalError(err)
	}
	if round == nil {
		round = models.NewRound(data.RoundID, user.ID, data.GameCode, currency.ID, betTokens)
		if err := e.redis.SaveRound(round); err != nil {
			return e.internalError(err)
		}
	}
	// A rejected replay must not overwrite a finalized round, so the
	// in-progress flip is only persisted together with finalization.
	round.Status = models.RoundStatusInProgress

	balance, rejected, err := e.debit(user, currency, round, data, betTokens, gameName, providerName)
	if rejected != "" {
		return models.SettlementResult{Status: 0, Msg: rejected}
	}
	if err != nil {
		return e.internalError(err)
	}

	if winTokens > 0 {
		balance, rejected, err = e.credit(user, currency, round, data, winTokens, gameName, providerName)
		if rejected != "" {
			return models.SettlementResult{Status: 0, Msg: rejected}
		}
		if err != nil {
			return e.internalError(err)
		}
	} else if data.TxnType == models.TxnTypeCredit || data.TxnType == models.TxnTypeDebitCredit {
		// A zero win still closes the round; the feed reports the loss.
		e.emitLiveFeed(user.ID, round, data, gameName, providerName)
	}

	round.Multiplier = round.Payout()
	if round.Multiplier > 0 {
		round.Status = models.RoundStatusWin
	} else {
		round.Status = models.RoundStatusLose
	}
	if err := e.redis.SaveRound(round); err != nil {
		return e.internalError(err)
	}

	return models.SettlementResult{
		Status:        1,
		UserBalance:   currency.FormatDisplay(currency.ConvertTokenToExternal(balance)),
		TransactionID: data.TxnID,
	}
}

// debit claims the (txn_id, bet) pair, subtracts the wager and records the
// ledger entry. A lost claim or a concurrent balance underrun comes back as a
// rejection message instead of an error.
func (e *SettlementEngine) debit(
	user *models.User,
	currency Currency,
	round *models.Round,
	data models.GameCallback,
	amount float64,
	gameName, providerName string,
) (float64, string, error) {
	if err := e.redis.ClaimTransaction(data.TxnID, string(models.TransactionTypeBet)); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return 0, models.MsgDuplicatedRequest, nil
		}
		return 0, "", err
	}

	balance, err := e.redis.DebitWallet(user.ID, currency.ID, amount)
	if err != nil {
		if relErr := e.redis.ReleaseTransactionClaim(data.TxnID, string(models.TransactionTypeBet)); relErr != nil {
			e.logger.WithError(relErr).Error("failed to release bet claim")
		}
		if errors.Is(err, ErrInsufficientBalance) {
			return 0, models.MsgInsufficientFunds, nil
		}
		return 0, "", err
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        user.ID,
		Type:          models.TransactionTypeBet,
		Amount:        amount,
		BalanceBefore: balance + amount,
		BalanceAfter:  balance,
		Currency:      currency.ID,
		ServiceID:     data.TxnID,
		ServiceType:   string(models.TransactionTypeBet),
		GameName:      gameName,
		ProviderName:  providerName,
		Description:   fmt.Sprintf("Bet on %s (%s), round %s", gameName, providerName, round.RoundID),
		CreatedAt:     time.Now().Unix(),
	}
	if err := e.redis.SaveTransaction(tx); err != nil {
		return 0, "", err
	}

	e.emitBalanceChange(user.ID, currency.ID, "subtract", amount, balance, round.Demo)
	return balance, "", nil
}

// credit mirrors debit for the win leg and accumulates the round profit.
func (e *SettlementEngine) credit(
	user *models.User,
	currency Currency,
	round *models.Round,
	data models.GameCallback,
	amount float64,
	gameName, providerName string,
) (float64, string, error) {
	if err := e.redis.ClaimTransaction(data.TxnID, string(models.TransactionTypeWin)); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return 0, models.MsgDuplicatedRequest, nil
		}
		return 0, "", err
	}

	balance, err := e.redis.CreditWallet(user.ID, currency.ID, amount)
	if err != nil {
		if relErr := e.redis.ReleaseTransactionClaim(data.TxnID, string(models.TransactionTypeWin)); relErr != nil {
			e.logger.WithError(relErr).Error("failed to release win claim")
		}
		return 0, "", err
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        user.ID,
		Type:          models.TransactionTypeWin,
		Amount:        amount,
		BalanceBefore: balance - amount,
		BalanceAfter:  balance,
		Currency:      currency.ID,
		ServiceID:     data.TxnID,
		ServiceType:   string(models.TransactionTypeWin),
		GameName:      gameName,
		ProviderName:  providerName,
		Description:   fmt.Sprintf("Win on %s (%s), round %s", gameName, providerName, round.RoundID),
		CreatedAt:     time.Now().Unix(),
	}
	if err := e.redis.SaveTransaction(tx); err != nil {
		return 0, "", err
	}

	round.Profit += amount

	e.emitBalanceChange(user.ID, currency.ID, "add", amount, balance, round.Demo)
	e.emitLiveFeed(user.ID, round, data, gameName, providerName)
	return balance, "", nil
}

// UserBalance resolves a provider user_code and returns the balance in
// external units, formatted for the callback response.
func (e *SettlementEngine) UserBalance(userCode string) (string, error) {
	user, err := e.redis.FindUserByIdentifier(userCode)
	if err != nil {
		return "", err
	}

	currency := e.currencies.Find(user.SelectedCurrency)
	wallet, err := e.redis.GetWallet(user.ID, currency.ID)
	if err != nil {
		return "", err
	}
	return currency.FormatDisplay(currency.ConvertTokenToExternal(wallet.Balance)), nil
}

// Launch asks the provider for a game session url. The user is lazily
// provisioned on the agent wallet the first time they launch anything.
func (e *SettlementEngine) Launch(userID int64, providerCode, gameCode string) (*models.LaunchSession, error) {
	user, err := e.redis.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if err := e.ensureProvisioned(user); err != nil {
		return nil, err
	}

	currency := e.currencies.Find(user.SelectedCurrency)
	wallet, err := e.redis.GetWallet(user.ID, currency.ID)
	if err != nil {
		return nil, err
	}
	balance := currency.FormatDisplay(currency.ConvertTokenToExternal(wallet.Balance))

	resp, err := e.client.GameLaunch(user.Username, balance, providerCode, gameCode)
	if err != nil {
		e.logger.WithError(err).Error("game_launch request failed")
		return nil, errors.New(msgLaunchGeneric)
	}

	launchURL := resp.LaunchURL()
	if launchURL == "" {
		// The provider reports auth failures in the body status, usually
		// under an HTTP 200; the transport code is only a fallback.
		code, ok := resp.BodyStatus()
		if !ok {
			code = resp.HTTPStatus
		}
		switch code {
		case 403:
			return nil, errors.New(msgLaunchForbidden)
		case 401:
			return nil, errors.New(msgLaunchAuth)
		default:
			e.logger.WithFields(logrus.Fields{
				"status": code,
				"msg":    resp.Msg(),
				"game":   gameCode,
			}).Error("game_launch rejected")
			return nil, errors.New(msgLaunchGeneric)
		}
	}

	return &models.LaunchSession{
		ID:   "-1",
		Type: "third-party",
		Link: launchURL,
	}, nil
}

func (e *SettlementEngine) ensureProvisioned(user *models.User) error {
	provisioned, err := e.redis.IsProviderUserProvisioned(user.ID)
	if err != nil {
		return err
	}
	if provisioned {
		return nil
	}

	if err := e.client.CreateUser(user.Username); err != nil {
		// "already exists" style rejections are fine, the code is usable.
		e.logger.WithError(err).WithField("user", user.Username).Warn("user_create rejected")
	}
	return e.redis.MarkProviderUserProvisioned(user.ID)
}

// Deposit moves tokens from the local wallet onto the provider's agent
// wallet. The local debit is compensated when the provider rejects.
func (e *SettlementEngine) Deposit(userID int64, external float64) (float64, error) {
	user, err := e.redis.GetUser(userID)
	if err != nil {
		return 0, err
	}

	currency := e.currencies.Find(user.SelectedCurrency)
	tokens := currency.ConvertExternalToToken(external)

	balance, err := e.redis.DebitWallet(user.ID, currency.ID, tokens)
	if err != nil {
		return 0, err
	}

	if err := e.client.Deposit(user.Username, external); err != nil {
		if _, credErr := e.redis.CreditWallet(user.ID, currency.ID, tokens); credErr != nil {
			e.logger.WithError(credErr).Error("failed to compensate rejected deposit")
		}
		return 0, err
	}

	e.recordTransfer(user.ID, currency.ID, models.TransactionTypeDeposit, tokens, balance)
	return balance, nil
}

// Withdraw pulls tokens back from the provider's agent wallet.
func (e *SettlementEngine) Withdraw(userID int64, external float64) (float64, error) {
	user, err := e.redis.GetUser(userID)
	if err != nil {
		return 0, err
	}

	currency := e.currencies.Find(user.SelectedCurrency)
	tokens := currency.ConvertExternalToToken(external)

	if err := e.client.Withdraw(user.Username, external); err != nil {
		return 0, err
	}

	balance, err := e.redis.CreditWallet(user.ID, currency.ID, tokens)
	if err != nil {
		return 0, err
	}

	e.recordTransfer(user.ID, currency.ID, models.TransactionTypeWithdraw, tokens, balance)
	return balance, nil
}

func (e *SettlementEngine) recordTransfer(userID int64, currencyID string, kind models.TransactionType, amount, balance float64) {
	before := balance + amount
	if kind == models.TransactionTypeWithdraw {
		before = balance - amount
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        userID,
		Type:          kind,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  balance,
		Currency:      currencyID,
		Description:   fmt.Sprintf("Agent wallet %s", kind),
		CreatedAt:     time.Now().Unix(),
	}
	if err := e.redis.SaveTransaction(tx); err != nil {
		e.logger.WithError(err).Error("failed to record transfer")
	}
}

func (e *SettlementEngine) emitBalanceChange(userID int64, currencyID, direction string, amount, balance float64, demo bool) {
	err := e.events.EmitBalanceChange(BalanceChangeEvent{
		UserID:    userID,
		Currency:  currencyID,
		Direction: direction,
		Amount:    amount,
		Balance:   balance,
		Demo:      demo,
	})
	if err != nil {
		e.logger.WithError(err).Warn("balance event dropped")
	}
}

func (e *SettlementEngine) emitLiveFeed(userID int64, round *models.Round, data models.GameCallback, gameName, providerName string) {
	event := LiveFeedEvent{
		UserID:       userID,
		GameID:       data.GameCode,
		GameName:     gameName,
		ProviderName: providerName,
		RoundID:      round.RoundID,
		Wager:        round.Wager,
		Profit:       round.Profit,
		Multiplier:   round.Payout(),
	}

	if err := e.events.EmitLiveFeed(event); err != nil {
		e.logger.WithError(err).Warn("live feed event dropped")
	}
	if err := e.analytics.Publish("round.settled", event); err != nil {
		e.logger.WithError(err).Warn("analytics event dropped")
	}
}

func (e *SettlementEngine) internalError(err error) models.SettlementResult {
	e.logger.WithError(err).Error("settlement failed")
	return models.SettlementResult{
		Status:       0,
		Msg:          models.MsgInternalError,
		ErrorMessage: err.Error(),
	}
}
