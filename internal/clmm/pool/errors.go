package pool

import "errors"

var (
	ErrPoolIdMismatch            = errors.New("position or receipt belongs to another pool")
	ErrInsufficientInputAmount   = errors.New("insufficient input amount")
	ErrAlreadyInitialized        = errors.New("pool already initialized")
	ErrAlreadyLocked             = errors.New("pool is locked")
	ErrPriceLimitAlreadyExceeded = errors.New("price limit already exceeded")
	ErrPriceLimitOutOfBounds     = errors.New("price limit out of bounds")
	ErrInsufficientLiquidity     = errors.New("insufficient liquidity")
	ErrInvalidProtocolFeeRate    = errors.New("invalid protocol fee rate")
	ErrTickNotInitialized        = errors.New("tick not initialized")

	ErrNotInitialized      = errors.New("pool not initialized")
	ErrInvalidTickRange    = errors.New("invalid tick range")
	ErrInvalidFeeRate      = errors.New("invalid swap fee rate")
	ErrIdenticalCoins      = errors.New("identical coin types")
	ErrCoinMismatch        = errors.New("balance coin does not match pool")
	ErrZeroAmount          = errors.New("zero amount")
	ErrPositionNotEmpty    = errors.New("position not empty")
	ErrReceiptConsumed     = errors.New("receipt already consumed")
	ErrCoinsOwedOverflow   = errors.New("coins owed overflow")
	ErrNoPositionLiquidity = errors.New("position has no liquidity")
	ErrInsufficientReserve = errors.New("insufficient pool reserve")
)
