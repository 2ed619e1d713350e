package models

import "errors"

// Failure reasons surfaced to callers. Every one of them aborts the call and
// rolls back the unit of work it happened in.
var (
	ErrUnauthorized         = errors.New("only the owner can call this function")
	ErrInvalidAmount        = errors.New("incorrect amount sent for the requested tickets")
	ErrInactiveRound        = errors.New("lottery is not active")
	ErrInvalidQuantity      = errors.New("ticket quantity must be between 1 and 25")
	ErrInvalidConfiguration = errors.New("minimum participants must be greater than 0")
	ErrPayoutFailed         = errors.New("prize transfer failed")

	ErrLotteryNotFound   = errors.New("lottery not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPaymentRejected   = errors.New("account does not accept payments")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrInvalidSignature  = errors.New("invalid signature")
)
