package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	var payout []byte
	if u.PayoutDetails != nil {
		payout, _ = json.Marshal(u.PayoutDetails)
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, role, company_name, payout_details, signature_url, signature_hash)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, last_active_at
	`, u.Email, u.Username, u.PasswordHash, u.Role, u.CompanyName, payout, u.SignatureURL, u.SignatureHash,
	).Scan(&u.ID, &u.CreatedAt, &u.LastActiveAt)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var payout []byte
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.CompanyName, &payout, &u.SignatureURL, &u.SignatureHash, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("user not found")
		}
		return nil, err
	}
	if len(payout) > 0 {
		_ = json.Unmarshal(payout, &u.PayoutDetails)
	}
	return &u, nil
}

const userColumns = `
	id, email, username, password_hash, role, company_name, payout_details,
	signature_url, signature_hash, created_at, last_active_at`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (r *UserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = now() WHERE id = $1`, id)
	return err
}
