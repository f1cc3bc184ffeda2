package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry types
const (
	LedgerTypeEscrowFunding = "escrow-funding"
	LedgerTypePayout        = "payout"
	LedgerTypeRefund        = "refund"
)

// Ledger entry statuses
const (
	LedgerStatusInitiated = "initiated"
	LedgerStatusPending   = "pending"
	LedgerStatusInEscrow  = "in_escrow"
	LedgerStatusReleased  = "released"
	LedgerStatusRefunded  = "refunded"
	LedgerStatusFailed    = "failed"
)

// LedgerEntry is one immutable monetary movement tied to a contract.
// Funding entries start `initiated` and reach `in_escrow` only through
// payment verification; payout and refund entries are created directly in
// their terminal status since the funds already sit in platform escrow.
type LedgerEntry struct {
	ID               uuid.UUID  `json:"id"`
	ContractID       uuid.UUID  `json:"contract_id"`
	PayerID          uuid.UUID  `json:"payer_id"`
	PayeeID          uuid.UUID  `json:"payee_id"`
	Type             string     `json:"type"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	GatewayOrderID   *string    `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty"`
	GatewaySignature *string    `json:"-"`
	Status           string     `json:"status"`
	Notes            *string    `json:"notes,omitempty"`
	FundedAt         *time.Time `json:"funded_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
