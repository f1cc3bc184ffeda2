package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ledgerColumns = `
	id, contract_id, payer_id, payee_id, type, amount, currency,
	gateway_order_id, gateway_payment_id, gateway_signature,
	status, notes, funded_at, released_at, refunded_at, created_at`

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) Create(ctx context.Context, e *models.LedgerEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO ledger_entries (contract_id, payer_id, payee_id, type, amount, currency,
		                            gateway_order_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, e.ContractID, e.PayerID, e.PayeeID, e.Type, e.Amount, e.Currency,
		e.GatewayOrderID, e.Status, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
}

func scanLedgerEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.ContractID, &e.PayerID, &e.PayeeID, &e.Type, &e.Amount, &e.Currency,
		&e.GatewayOrderID, &e.GatewayPaymentID, &e.GatewaySignature,
		&e.Status, &e.Notes, &e.FundedAt, &e.ReleasedAt, &e.RefundedAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("transaction not found")
		}
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepo) GetByContractAndOrder(ctx context.Context, contractID uuid.UUID, orderID string) (*models.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE contract_id = $1 AND gateway_order_id = $2
		ORDER BY created_at DESC LIMIT 1
	`, contractID, orderID)
	return scanLedgerEntry(row)
}

func (r *LedgerRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE contract_id = $1 ORDER BY created_at ASC
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

// ConfirmEscrow settles a verified payment callback: the funding entry moves
// to in_escrow, the contract's escrow snapshot and status are updated, and
// an unbound client is attached to the payer, all in one transaction.
// A redelivered callback for an entry already in escrow with the same
// payment id is reported as a replay and changes nothing.
func (r *LedgerRepo) ConfirmEscrow(ctx context.Context, contractID uuid.UUID, orderID, paymentID, signature string) (*models.LedgerEntry, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	row := tx.QueryRow(ctx, `
		UPDATE ledger_entries SET gateway_payment_id = $1, gateway_signature = $2,
		       status = $3, funded_at = $4
		WHERE contract_id = $5 AND gateway_order_id = $6 AND type = $7 AND status = $8
		RETURNING `+ledgerColumns+`
	`, paymentID, signature, models.LedgerStatusInEscrow, now,
		contractID, orderID, models.LedgerTypeEscrowFunding, models.LedgerStatusInitiated)

	entry, err := scanLedgerEntry(row)
	if err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			return nil, false, err
		}
		// No initiated entry matched: either the callback is a replay of an
		// already-settled payment, or it references an unknown order.
		existing, lookupErr := r.GetByContractAndOrder(ctx, contractID, orderID)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing.Status == models.LedgerStatusInEscrow &&
			existing.GatewayPaymentID != nil && *existing.GatewayPaymentID == paymentID {
			return existing, true, nil
		}
		return nil, false, errs.InvalidState("transaction for order %s is in state %q and cannot be funded", orderID, existing.Status)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $1,
		       client_id = COALESCE(client_id, $2),
		       escrow_order_id = $3, escrow_payment_id = $4,
		       escrow_amount_funded = $5, escrow_currency = $6, escrow_funded_at = $7,
		       version = version + 1, updated_at = now()
		WHERE id = $8 AND status = $9
	`, models.ContractStatusFunded, entry.PayerID,
		orderID, paymentID, entry.Amount, entry.Currency, now,
		contractID, models.ContractStatusSent)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		return nil, false, errs.InvalidState("contract is no longer in state %q", models.ContractStatusSent)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// Release creates the payout entry and moves the contract to released in
// one transaction. This is the only path that pays the freelancer.
func (r *LedgerRepo) Release(ctx context.Context, c *models.Contract) (*models.LedgerEntry, error) {
	if c.ClientID == nil {
		return nil, errs.InvalidState("contract has no bound client")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	entry := &models.LedgerEntry{
		ContractID: c.ID,
		PayerID:    *c.ClientID,
		PayeeID:    c.FreelancerID,
		Type:       models.LedgerTypePayout,
		Amount:     c.Escrow.AmountFunded,
		Currency:   c.Escrow.Currency,
		Status:     models.LedgerStatusReleased,
		ReleasedAt: &now,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (contract_id, payer_id, payee_id, type, amount, currency, status, released_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, entry.ContractID, entry.PayerID, entry.PayeeID, entry.Type, entry.Amount, entry.Currency,
		entry.Status, entry.ReleasedAt).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $1, escrow_released_at = $2,
		       version = version + 1, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.ContractStatusReleased, now, c.ID, c.Status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.InvalidState("contract is no longer in state %q", c.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// Refund creates the refund entry and moves the contract to refunded in
// one transaction, serialized on the status the caller observed.
func (r *LedgerRepo) Refund(ctx context.Context, c *models.Contract, notes string) (*models.LedgerEntry, error) {
	if c.ClientID == nil {
		return nil, errs.InvalidState("contract has no bound client")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	entry := &models.LedgerEntry{
		ContractID: c.ID,
		PayerID:    c.FreelancerID,
		PayeeID:    *c.ClientID,
		Type:       models.LedgerTypeRefund,
		Amount:     c.Escrow.AmountFunded,
		Currency:   c.Escrow.Currency,
		Status:     models.LedgerStatusRefunded,
		RefundedAt: &now,
	}
	if notes != "" {
		entry.Notes = &notes
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (contract_id, payer_id, payee_id, type, amount, currency, status, notes, refunded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, entry.ContractID, entry.PayerID, entry.PayeeID, entry.Type, entry.Amount, entry.Currency,
		entry.Status, entry.Notes, entry.RefundedAt).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $1, escrow_refunded_at = $2,
		       version = version + 1, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.ContractStatusRefunded, now, c.ID, c.Status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.InvalidState("contract is no longer in state %q", c.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}
