package models

import "errors"

// Failure kinds surfaced by the engine. Callers match with errors.Is; every
// mutating operation fails with exactly one of these or succeeds completely.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")

	ErrInvalidLiquidity = errors.New("invalid liquidity")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidOutcome   = errors.New("invalid outcome")

	ErrMarketNotFound = errors.New("market not found")
	ErrTokenNotFound  = errors.New("token not found")

	ErrMarketNotOpen     = errors.New("market not open")
	ErrMarketNotExpired  = errors.New("market not expired")
	ErrMarketNotResolved = errors.New("market not resolved")
	ErrAlreadyResolved   = errors.New("market already resolved")

	ErrNoWinningShares     = errors.New("no winning shares")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientFunds   = errors.New("insufficient collateral")

	// ErrInvariantViolation signals internal inconsistency (a payout that
	// would exceed collected collateral). It aborts the transaction and is
	// never expected in normal operation.
	ErrInvariantViolation = errors.New("conservation invariant violated")
)
