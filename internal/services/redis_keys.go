package services

import "time"

const (
	KeyCatalogLoading = "%s:loadingGameList"
	KeyCatalog        = "%s:providerGameList"
	KeyGameListAgg    = "game:list"

	KeyUserIDSeq    = "user:id:seq"
	KeyUserInfo     = "user:%d:info"
	KeyUserByEmail  = "user:email:%s"
	KeyUserByName   = "user:name:%s"
	KeyUserByPhone  = "user:phone:%s"
	KeyWallet       = "wallet:%d:%s"
	KeyRound        = "round:%s"
	KeyTransaction  = "transaction:%s"
	KeyTxnByService = "transaction:service:%s:%s"
	KeyUserTxns     = "user:%d:transactions"
	KeyProviderUser = "goldapi:user:%d:provisioned"
	KeyRateLimit    = "ratelimit:%d:%s"

	// Raw catalogs are re-derived on every read; seven days bounds staleness
	// against a dead provider, not freshness.
	TTLCatalog = 7 * 24 * time.Hour
	// Record retention only; dedup claims are kept forever.
	TTLTransaction = 30 * 24 * time.Hour
	TTLRound       = 30 * 24 * time.Hour

	DefaultRateLimitLaunch = 30 // launches per minute per user
)
