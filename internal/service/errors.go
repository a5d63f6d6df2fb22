package service

import "errors"

var (
	ErrNotFound = errors.New("not_found")

	// ErrValidation covers malformed input: bad wallet address syntax or a
	// non-positive amount. Raised before any external call.
	ErrValidation = errors.New("validation_failed")

	// ErrInsufficientBalance means the requested amount exceeds the user's
	// available (earned minus claimed) tokens.
	ErrInsufficientBalance = errors.New("insufficient_balance")

	// ErrClaimInFlight means another claim holds the user's ledger-side
	// claim lock.
	ErrClaimInFlight = errors.New("claim_in_flight")

	// ErrWalletRejected means the transaction never reached the chain or
	// reverted; no completion is recorded.
	ErrWalletRejected = errors.New("wallet_rejected")

	// ErrLedgerWrite means the mint confirmed on-chain but the completion
	// write failed. The claim stays pending for the reconciler.
	ErrLedgerWrite = errors.New("ledger_write_failed")

	// ErrNoItemsDetected means the classifier found nothing recyclable in
	// the submitted image.
	ErrNoItemsDetected = errors.New("no_items_detected")
)
