package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contractColumns = `
	id, freelancer_id, client_id, client_email, agency_name, project_description,
	tasks, start_date, deadline, total_amount, currency, contract_file_url,
	status, version, signatures,
	escrow_order_id, escrow_payment_id, escrow_amount_funded, escrow_currency,
	escrow_funded_at, escrow_released_at, escrow_refunded_at,
	work_links, work_attachments, created_at, updated_at`

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func (r *ContractRepo) Create(ctx context.Context, c *models.Contract) error {
	tasks, _ := json.Marshal(c.Tasks)
	sigs, _ := json.Marshal(c.Signatures)
	return r.pool.QueryRow(ctx, `
		INSERT INTO contracts (freelancer_id, client_id, client_email, agency_name, project_description,
		                       tasks, start_date, deadline, total_amount, currency, status, signatures)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, version, created_at, updated_at
	`, c.FreelancerID, c.ClientID, c.ClientEmail, c.AgencyName, c.ProjectDescription,
		tasks, c.StartDate, c.Deadline, c.TotalAmount, c.Currency, c.Status, sigs,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
}

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	var tasks, sigs, links, attachments []byte
	err := row.Scan(&c.ID, &c.FreelancerID, &c.ClientID, &c.ClientEmail, &c.AgencyName, &c.ProjectDescription,
		&tasks, &c.StartDate, &c.Deadline, &c.TotalAmount, &c.Currency, &c.ContractFileURL,
		&c.Status, &c.Version, &sigs,
		&c.Escrow.GatewayOrderID, &c.Escrow.GatewayPaymentID, &c.Escrow.AmountFunded, &c.Escrow.Currency,
		&c.Escrow.FundedAt, &c.Escrow.ReleasedAt, &c.Escrow.RefundedAt,
		&links, &attachments, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("contract not found")
		}
		return nil, err
	}
	_ = json.Unmarshal(tasks, &c.Tasks)
	_ = json.Unmarshal(sigs, &c.Signatures)
	_ = json.Unmarshal(links, &c.WorkProof.Links)
	_ = json.Unmarshal(attachments, &c.WorkProof.Attachments)
	return &c, nil
}

func (r *ContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	return scanContract(row)
}

type ContractFilter struct {
	FreelancerID *uuid.UUID
	ClientID     *uuid.UUID
	ClientEmail  *string
	Status       *string
	Limit        int
	Offset       int
}

func (r *ContractRepo) List(ctx context.Context, f ContractFilter) ([]models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.FreelancerID != nil {
		where = append(where, fmt.Sprintf("freelancer_id = $%d", argIdx))
		args = append(args, *f.FreelancerID)
		argIdx++
	}
	if f.ClientID != nil {
		if f.ClientEmail != nil {
			where = append(where, fmt.Sprintf("(client_id = $%d OR client_email = lower($%d))", argIdx, argIdx+1))
			args = append(args, *f.ClientID, *f.ClientEmail)
			argIdx += 2
		} else {
			where = append(where, fmt.Sprintf("client_id = $%d", argIdx))
			args = append(args, *f.ClientID)
			argIdx++
		}
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, nil
}

// TransitionStatus moves a contract from one status to another. The WHERE
// clause on the current status serializes concurrent transitions: of two
// racing calls only one matches a row, the other gets a stale-state error.
func (r *ContractRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.InvalidState("contract is no longer in state %q", from)
	}
	return nil
}

// SubmitWork replaces the attachment set, stores the accumulated links and
// moves the contract to work-submitted in a single guarded update.
func (r *ContractRepo) SubmitWork(ctx context.Context, id uuid.UUID, from string, proof models.WorkProof) error {
	links, _ := json.Marshal(proof.Links)
	attachments, _ := json.Marshal(proof.Attachments)
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET work_links = $1, work_attachments = $2,
		       status = $3, version = version + 1, updated_at = now()
		WHERE id = $4 AND status = $5
	`, links, attachments, models.ContractStatusWorkSubmitted, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.InvalidState("contract is no longer in state %q", from)
	}
	return nil
}

func (r *ContractRepo) SetContractFile(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contracts SET contract_file_url = $1, updated_at = now() WHERE id = $2
	`, url, id)
	return err
}

func (r *ContractRepo) SetClientSignature(ctx context.Context, id uuid.UUID, sig models.SignatureRecord) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contracts SET
			signatures = jsonb_set(jsonb_set(signatures, '{client}', $1::jsonb), '{pending_party}', '""'::jsonb),
			updated_at = now()
		WHERE id = $2
	`, mustJSON(sig), id)
	return err
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
