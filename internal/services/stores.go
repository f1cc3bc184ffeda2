package services

import (
	"context"

	"github.com/contract-vault/backend/internal/models"
	"github.com/contract-vault/backend/internal/repositories"
	"github.com/google/uuid"
)

// Storage contracts consumed by the services. The pgx repositories satisfy
// them; tests substitute in-memory fakes.

type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, f repositories.ContractFilter) ([]models.Contract, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error
	SubmitWork(ctx context.Context, id uuid.UUID, from string, proof models.WorkProof) error
	SetContractFile(ctx context.Context, id uuid.UUID, url string) error
	SetClientSignature(ctx context.Context, id uuid.UUID, sig models.SignatureRecord) error
}

type LedgerStore interface {
	Create(ctx context.Context, e *models.LedgerEntry) error
	GetByContractAndOrder(ctx context.Context, contractID uuid.UUID, orderID string) (*models.LedgerEntry, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.LedgerEntry, error)
	ConfirmEscrow(ctx context.Context, contractID uuid.UUID, orderID, paymentID, signature string) (*models.LedgerEntry, bool, error)
	Release(ctx context.Context, c *models.Contract) (*models.LedgerEntry, error)
	Refund(ctx context.Context, c *models.Contract, notes string) (*models.LedgerEntry, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}
