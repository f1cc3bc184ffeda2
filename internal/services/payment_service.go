package services

import (
	"context"
	"fmt"
	"time"

	"github.com/contract-vault/backend/internal/config"
	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/events"
	"github.com/contract-vault/backend/internal/models"
	"github.com/contract-vault/backend/internal/payments"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService struct {
	contracts ContractStore
	ledger    LedgerStore
	users     UserStore
	audit     AuditLogger
	gateway   PaymentGateway
	docgen    DocumentGenerator
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewPaymentService(
	contracts ContractStore,
	ledger LedgerStore,
	users UserStore,
	audit AuditLogger,
	gateway PaymentGateway,
	docgen DocumentGenerator,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		contracts: contracts,
		ledger:    ledger,
		users:     users,
		audit:     audit,
		gateway:   gateway,
		docgen:    docgen,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// FundingInfo is what the client-side checkout needs to open the gateway
// widget. Amount is in minor units.
type FundingInfo struct {
	OrderID       string    `json:"order_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	KeyID         string    `json:"key_id"`
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
}

// FundEscrow opens a gateway order for the full contract amount and records
// the initiated funding entry. The contract status does not change here;
// only the verified callback moves it to funded.
func (s *PaymentService) FundEscrow(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*FundingInfo, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsClient(actor) {
		return nil, errs.Forbidden("only the client can fund this contract")
	}
	if c.Status != models.ContractStatusSent {
		return nil, errs.InvalidState("contract cannot be funded in state %q", c.Status)
	}

	order, err := s.gateway.CreateOrder(ctx, payments.MinorUnits(c.TotalAmount), c.Currency, c.ID.String())
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ContractID:     c.ID,
		PayerID:        actor.ID,
		PayeeID:        c.FreelancerID,
		Type:           models.LedgerTypeEscrowFunding,
		Amount:         c.TotalAmount,
		Currency:       c.Currency,
		GatewayOrderID: &order.ID,
		Status:         models.LedgerStatusInitiated,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &actor.ID,
		ActorType:   "user",
		Action:      "escrow_order_created",
		EntityType:  "contract",
		EntityID:    &c.ID,
		Meta:        map[string]any{"order_id": order.ID, "amount": c.TotalAmount, "currency": c.Currency},
	})

	return &FundingInfo{
		OrderID:       order.ID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		KeyID:         s.cfg.GatewayKeyID,
		LedgerEntryID: entry.ID,
	}, nil
}

type PaymentCallback struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyPayment settles a gateway payment callback. The signature is checked
// in constant time before anything is read or written; a forged callback
// changes nothing. Redelivered callbacks for an already-settled payment
// succeed without side effects.
func (s *PaymentService) VerifyPayment(ctx context.Context, contractID uuid.UUID, cb PaymentCallback) (*models.LedgerEntry, bool, error) {
	if cb.OrderID == "" || cb.PaymentID == "" {
		return nil, false, errs.Validation("order_id and payment_id are required")
	}

	if !payments.VerifySignature(s.cfg.GatewayKeySecret, cb.OrderID, cb.PaymentID, cb.Signature) {
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorType:  models.RoleGateway,
			Action:     "payment_signature_rejected",
			EntityType: "contract",
			EntityID:   &contractID,
			Meta:       map[string]any{"order_id": cb.OrderID, "payment_id": cb.PaymentID},
		})
		return nil, false, errs.InvalidSignature("payment signature verification failed")
	}

	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, false, err
	}

	// A contract still awaiting funding goes through the guard. Anything
	// else is left to the ledger, which recognizes replays of the settled
	// payment and rejects the rest.
	gatewayActor := models.Actor{Role: models.RoleGateway}
	if c.Status == models.ContractStatusSent {
		if _, err := models.CanTransition(c, models.ActionConfirmFunding, gatewayActor, time.Now()); err != nil {
			return nil, false, err
		}
	}

	entry, replayed, err := s.ledger.ConfirmEscrow(ctx, c.ID, cb.OrderID, cb.PaymentID, cb.Signature)
	if err != nil {
		return nil, false, err
	}
	if replayed {
		s.log.Info("payment callback replayed",
			zap.String("contract_id", c.ID.String()),
			zap.String("order_id", cb.OrderID))
		return entry, true, nil
	}

	c.Status = models.ContractStatusFunded
	if c.ClientID == nil {
		c.ClientID = &entry.PayerID
	}

	now := time.Now()
	sig := models.SignatureRecord{
		SignedBy:      c.ClientID,
		Date:          &now,
		SignatureHash: fmt.Sprintf("payment:%s", cb.PaymentID),
	}
	if err := s.contracts.SetClientSignature(ctx, c.ID, sig); err != nil {
		s.log.Warn("failed to record client signature", zap.String("contract_id", c.ID.String()), zap.Error(err))
	}

	// Countersigned document regeneration is best effort.
	if url, err := s.docgen.CountersignDocument(ctx, s.countersignRequest(ctx, c)); err != nil {
		s.log.Warn("countersigned document generation failed", zap.String("contract_id", c.ID.String()), zap.Error(err))
	} else if url != "" {
		if err := s.contracts.SetContractFile(ctx, c.ID, url); err != nil {
			s.log.Warn("failed to store countersigned document url", zap.String("contract_id", c.ID.String()), zap.Error(err))
		} else {
			c.ContractFileURL = &url
		}
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.RoleGateway,
		Action:     fmt.Sprintf("contract_status_%s_to_%s", models.ContractStatusSent, models.ContractStatusFunded),
		EntityType: "contract",
		EntityID:   &c.ID,
		Meta: map[string]any{
			"old_status": models.ContractStatusSent,
			"new_status": models.ContractStatusFunded,
			"order_id":   cb.OrderID,
			"payment_id": cb.PaymentID,
		},
	})

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventPaymentReceived,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"order_id":    cb.OrderID,
			"amount":      entry.Amount,
			"currency":    entry.Currency,
		},
	})

	return entry, false, nil
}

func (s *PaymentService) countersignRequest(ctx context.Context, c *models.Contract) DocumentRequest {
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
	if freelancer, err := s.users.GetByID(ctx, c.FreelancerID); err == nil {
		req.FreelancerName = freelancer.Username
		req.FreelancerEmail = freelancer.Email
	}
	if c.ClientID != nil {
		if client, err := s.users.GetByID(ctx, *c.ClientID); err == nil {
			req.ClientName = client.Username
		}
	}
	return req
}

// GetPaymentStatus reports the ledger entries for a contract to a party.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*models.Contract, []models.LedgerEntry, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if actor.ID != c.FreelancerID && !c.IsClient(actor) {
		return nil, nil, errs.Forbidden("you are not a party to this contract")
	}
	entries, err := s.ledger.ListByContract(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	return c, entries, nil
}
