package services

import (
	"context"
	"fmt"
	"time"

	"github.com/contract-vault/backend/internal/config"
	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/events"
	"github.com/contract-vault/backend/internal/models"
	"github.com/contract-vault/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContractService struct {
	contracts ContractStore
	ledger    LedgerStore
	users     UserStore
	audit     AuditLogger
	docgen    DocumentGenerator
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewContractService(
	contracts ContractStore,
	ledger LedgerStore,
	users UserStore,
	audit AuditLogger,
	docgen DocumentGenerator,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *ContractService {
	return &ContractService{
		contracts: contracts,
		ledger:    ledger,
		users:     users,
		audit:     audit,
		docgen:    docgen,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// transition runs the guard, commits the status change and records the
// audit trail. Denials never mutate state.
func (s *ContractService) transition(ctx context.Context, c *models.Contract, action models.Action, actor models.Actor) error {
	next, err := models.CanTransition(c, action, actor, time.Now())
	if err != nil {
		return err
	}

	oldStatus := c.Status
	if err := s.contracts.TransitionStatus(ctx, c.ID, oldStatus, next); err != nil {
		return err
	}
	c.Status = next

	s.logTransition(ctx, c.ID, actor, oldStatus, next)
	return nil
}

func (s *ContractService) logTransition(ctx context.Context, contractID uuid.UUID, actor models.Actor, oldStatus, newStatus string) {
	actorType := "user"
	if actor.Role == models.RoleGateway || actor.Role == models.RoleSystem {
		actorType = actor.Role
	}
	var actorID *uuid.UUID
	if actor.ID != uuid.Nil {
		actorID = &actor.ID
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("contract_status_%s_to_%s", oldStatus, newStatus),
		EntityType:  "contract",
		EntityID:    &contractID,
		Meta:        map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})
}

type CreateContractInput struct {
	ClientEmail        string
	AgencyName         *string
	ProjectDescription string
	Tasks              []string
	Deadline           *time.Time
	TotalAmount        float64
	Currency           string
}

// CreateContract creates a draft on behalf of the freelancer, asks the
// document collaborator for the contract file and delivers the contract
// to the client (draft -> sent).
func (s *ContractService) CreateContract(ctx context.Context, actor models.Actor, input CreateContractInput) (*models.Contract, error) {
	if actor.Role != models.RoleFreelancer {
		return nil, errs.Forbidden("only freelancers can create contracts")
	}
	if input.ClientEmail == "" {
		return nil, errs.Validation("client_email is required")
	}
	if input.TotalAmount <= 0 {
		return nil, errs.Validation("total_amount must be positive")
	}

	freelancer, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	// The client may not have an account yet; the contract is routed by
	// email until the first verified payment binds an account.
	var clientID *uuid.UUID
	if client, err := s.users.GetByEmail(ctx, input.ClientEmail); err == nil {
		clientID = &client.ID
	} else if errs.KindOf(err) != errs.KindNotFound {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	now := time.Now()
	c := &models.Contract{
		FreelancerID:       freelancer.ID,
		ClientID:           clientID,
		ClientEmail:        input.ClientEmail,
		AgencyName:         input.AgencyName,
		ProjectDescription: input.ProjectDescription,
		Tasks:              input.Tasks,
		Deadline:           input.Deadline,
		TotalAmount:        input.TotalAmount,
		Currency:           currency,
		Status:             models.ContractStatusDraft,
		Signatures: models.Signatures{
			Freelancer: models.SignatureRecord{
				SignedBy: &freelancer.ID,
				Date:     &now,
			},
			PendingParty: models.RoleClient,
		},
	}
	if freelancer.SignatureURL != nil {
		c.Signatures.Freelancer.SignatureImageURL = *freelancer.SignatureURL
	}
	if freelancer.SignatureHash != nil {
		c.Signatures.Freelancer.SignatureHash = *freelancer.SignatureHash
	}

	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}

	// Document generation failure does not block delivery; the URL stays
	// empty and can be regenerated on funding.
	url, err := s.docgen.CreateDocument(ctx, s.documentRequest(c, freelancer, nil))
	if err != nil {
		s.log.Warn("contract document generation failed", zap.String("contract_id", c.ID.String()), zap.Error(err))
	} else if url != "" {
		if err := s.contracts.SetContractFile(ctx, c.ID, url); err != nil {
			return nil, err
		}
		c.ContractFileURL = &url
	}

	if err := s.transition(ctx, c, models.ActionSend, actor); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventContractSent,
		Payload: map[string]any{
			"contract_id":  c.ID.String(),
			"client_email": c.ClientEmail,
			"amount":       c.TotalAmount,
			"currency":     c.Currency,
		},
	})

	return c, nil
}

func (s *ContractService) documentRequest(c *models.Contract, freelancer *models.User, client *models.User) DocumentRequest {
	req := DocumentRequest{
		ContractID:         c.ID.String(),
		CurrentDate:        time.Now().Format("2006-01-02"),
		ClientEmail:        c.ClientEmail,
		ProjectDescription: c.ProjectDescription,
		Task:               c.Tasks,
		TotalAmount:        c.TotalAmount,
		Currency:           c.Currency,
	}
	if c.AgencyName != nil {
		req.AgencyName = *c.AgencyName
	}
	if c.Deadline != nil {
		req.Deadline = c.Deadline.Format("2006-01-02")
	}
	if c.StartDate != nil {
		req.StartDate = c.StartDate.Format("2006-01-02")
	}
	if freelancer != nil {
		req.FreelancerName = freelancer.Username
		req.FreelancerEmail = freelancer.Email
	}
	if client != nil {
		req.ClientName = client.Username
	}
	return req
}

// DeclineContract lets the client refuse a delivered contract.
func (s *ContractService) DeclineContract(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, c, models.ActionDecline, actor); err != nil {
		return nil, err
	}
	return c, nil
}

type AttachmentInput struct {
	URL        string
	FileType   string
	StorageID  string
	UploadedAt time.Time
}

type SubmitWorkInput struct {
	Links       []string
	Attachments []AttachmentInput
}

// SubmitWork records delivered proof. Links accumulate across submissions;
// the attachment set is replaced wholesale each time.
func (s *ContractService) SubmitWork(ctx context.Context, contractID uuid.UUID, actor models.Actor, input SubmitWorkInput) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	next, err := models.CanTransition(c, models.ActionSubmitWork, actor, time.Now())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	proof := models.WorkProof{Links: mergeLinks(c.WorkProof.Links, input.Links)}
	for _, a := range input.Attachments {
		uploadedAt := a.UploadedAt
		if uploadedAt.IsZero() {
			uploadedAt = now
		}
		proof.Attachments = append(proof.Attachments, models.Attachment{
			URL:         a.URL,
			FileType:    a.FileType,
			StorageID:   a.StorageID,
			UploadedAt:  uploadedAt,
			SubmittedAt: now,
		})
	}

	oldStatus := c.Status
	if err := s.contracts.SubmitWork(ctx, c.ID, oldStatus, proof); err != nil {
		return nil, err
	}
	c.Status = next
	c.WorkProof = proof

	s.logTransition(ctx, c.ID, actor, oldStatus, next)

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventWorkSubmitted,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"links":       len(proof.Links),
			"attachments": len(proof.Attachments),
		},
	})

	return c, nil
}

func mergeLinks(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, l := range existing {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		merged = append(merged, l)
	}
	for _, l := range incoming {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		merged = append(merged, l)
	}
	return merged
}

// ApproveAndRelease is the only path that moves escrowed funds to the
// freelancer. It is irreversible.
func (s *ContractService) ApproveAndRelease(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*models.Contract, *models.LedgerEntry, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}

	next, err := models.CanTransition(c, models.ActionApprove, actor, time.Now())
	if err != nil {
		return nil, nil, err
	}

	oldStatus := c.Status
	entry, err := s.ledger.Release(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	c.Status = next
	c.Escrow.ReleasedAt = entry.ReleasedAt

	s.logTransition(ctx, c.ID, actor, oldStatus, next)

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventContractReleased,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"amount":      entry.Amount,
			"currency":    entry.Currency,
		},
	})

	return c, entry, nil
}

func (s *ContractService) GetContract(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if actor.ID != c.FreelancerID && !c.IsClient(actor) {
		return nil, errs.Forbidden("you are not a party to this contract")
	}
	return c, nil
}

func (s *ContractService) ListContracts(ctx context.Context, f repositories.ContractFilter) ([]models.Contract, error) {
	return s.contracts.List(ctx, f)
}

func (s *ContractService) GetContractEvents(ctx context.Context, contractID uuid.UUID) ([]models.AuditLog, error) {
	return s.audit.GetByEntity(ctx, "contract", contractID, 100, 0)
}

func (s *ContractService) GetLedger(ctx context.Context, contractID uuid.UUID) ([]models.LedgerEntry, error) {
	return s.ledger.ListByContract(ctx, contractID)
}
