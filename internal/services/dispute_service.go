package services

import (
	"context"
	"fmt"
	"time"

	"github.com/contract-vault/backend/internal/events"
	"github.com/contract-vault/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DisputeService struct {
	contracts ContractStore
	ledger    LedgerStore
	audit     AuditLogger
	verdicts  VerdictService
	publisher events.Publisher
	log       *zap.Logger
}

func NewDisputeService(
	contracts ContractStore,
	ledger LedgerStore,
	audit AuditLogger,
	verdicts VerdictService,
	publisher events.Publisher,
	log *zap.Logger,
) *DisputeService {
	return &DisputeService{
		contracts: contracts,
		ledger:    ledger,
		audit:     audit,
		verdicts:  verdicts,
		publisher: publisher,
		log:       log,
	}
}

// NoWorkRefund refunds the client without arbitration when the deadline has
// passed and the freelancer never uploaded any proof of work.
func (s *DisputeService) NoWorkRefund(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*models.Contract, *models.LedgerEntry, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}

	next, err := models.CanTransition(c, models.ActionNoWorkRefund, actor, time.Now())
	if err != nil {
		return nil, nil, err
	}

	oldStatus := c.Status
	entry, err := s.ledger.Refund(ctx, c, "no work uploaded before deadline")
	if err != nil {
		return nil, nil, err
	}
	c.Status = next
	c.Escrow.RefundedAt = entry.RefundedAt

	s.logTransition(ctx, c.ID, &actor.ID, "user", oldStatus, next, map[string]any{"reason": "no_work"})

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventDisputeResolved,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"outcome":     "refunded",
			"reason":      "no_work",
		},
	})

	return c, entry, nil
}

// DisputeOutcome reports how a raised work dispute was judged. When the
// verdict is rejected the contract is untouched and Reason carries the
// arbitration explanation.
type DisputeOutcome struct {
	Contract *models.Contract    `json:"contract"`
	Entry    *models.LedgerEntry `json:"entry,omitempty"`
	Verdict  string              `json:"verdict"`
	Reason   string              `json:"reason,omitempty"`
}

// RaiseWorkDispute lets the freelancer contest an unreviewed submission
// after the deadline. The submitted proof is sent to the arbitration
// collaborator; an accepted verdict settles the dispute as a refund to the
// client, a rejected one leaves the contract in work-submitted.
func (s *DisputeService) RaiseWorkDispute(ctx context.Context, contractID uuid.UUID, actor models.Actor) (*DisputeOutcome, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if _, err := models.CanTransition(c, models.ActionRaiseDispute, actor, time.Now()); err != nil {
		return nil, err
	}

	verdict, err := s.verdicts.VerifyProof(ctx, s.verdictRequest(c))
	if err != nil {
		return nil, err
	}

	if verdict.Status != VerdictAccepted {
		s.logTransition(ctx, c.ID, &actor.ID, "user", c.Status, c.Status, map[string]any{
			"verdict": verdict.Status,
			"reason":  verdict.Reason,
		})
		return &DisputeOutcome{Contract: c, Verdict: verdict.Status, Reason: verdict.Reason}, nil
	}

	// Accepted verdict: the dispute opens and settles as a refund in one
	// pass. The guard is consulted for both edges; the store is written
	// once, serialized on the status the caller observed.
	oldStatus := c.Status
	disputed := *c
	disputed.Status = models.ContractStatusDisputed
	next, err := models.CanTransition(&disputed, models.ActionSettleRefund, models.Actor{Role: models.RoleSystem}, time.Now())
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.Refund(ctx, c, fmt.Sprintf("dispute upheld: %s", verdict.Reason))
	if err != nil {
		return nil, err
	}
	c.Status = next
	c.Escrow.RefundedAt = entry.RefundedAt

	s.logTransition(ctx, c.ID, &actor.ID, "user", oldStatus, models.ContractStatusDisputed, map[string]any{"verdict": verdict.Status})
	s.logTransition(ctx, c.ID, nil, models.RoleSystem, models.ContractStatusDisputed, next, map[string]any{"reason": verdict.Reason})

	_ = s.publisher.Publish(ctx, "events:contract", events.Event{
		Type: events.EventDisputeResolved,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"outcome":     "refunded",
			"reason":      verdict.Reason,
		},
	})

	return &DisputeOutcome{Contract: c, Entry: entry, Verdict: verdict.Status, Reason: verdict.Reason}, nil
}

func (s *DisputeService) verdictRequest(c *models.Contract) VerdictRequest {
	data := VerdictContractData{
		ProjectDescription: c.ProjectDescription,
		Task:               c.Tasks,
		TotalAmount:        c.TotalAmount,
		Currency:           c.Currency,
		Links:              c.WorkProof.Links,
		Attachments:        c.WorkProof.Attachments,
	}
	if c.Deadline != nil {
		data.Deadline = c.Deadline.Format("2006-01-02")
	}
	return VerdictRequest{ContractData: data}
}

func (s *DisputeService) logTransition(ctx context.Context, contractID uuid.UUID, actorID *uuid.UUID, actorType, oldStatus, newStatus string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["old_status"] = oldStatus
	meta["new_status"] = newStatus
	action := fmt.Sprintf("contract_status_%s_to_%s", oldStatus, newStatus)
	if oldStatus == newStatus {
		action = "dispute_verdict_rejected"
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      action,
		EntityType:  "contract",
		EntityID:    &contractID,
		Meta:        meta,
	})
}
