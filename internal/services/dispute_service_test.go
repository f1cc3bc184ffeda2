package services

import (
	"context"
	"testing"
	"time"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/models"
)

func pastDeadline() *time.Time {
	d := time.Now().Add(-48 * time.Hour)
	return &d
}

func futureDeadline() *time.Time {
	d := time.Now().Add(48 * time.Hour)
	return &d
}

func TestNoWorkRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createFunded(t, pastDeadline())

	refunded, entry, err := env.disputeSvc.NoWorkRefund(ctx, c.ID, env.clientActor())
	if err != nil {
		t.Fatalf("no-work refund: %v", err)
	}
	if refunded.Status != models.ContractStatusRefunded {
		t.Errorf("expected refunded, got %s", refunded.Status)
	}
	if entry.Type != models.LedgerTypeRefund || entry.Status != models.LedgerStatusRefunded {
		t.Errorf("unexpected refund entry: %+v", entry)
	}
	if entry.PayeeID != env.client.ID {
		t.Error("refund must flow back to the client")
	}
	if entry.Amount != 500 {
		t.Errorf("expected full escrow refund of 500, got %v", entry.Amount)
	}

	// Refunded is terminal.
	if _, _, err := env.disputeSvc.NoWorkRefund(ctx, c.ID, env.clientActor()); errs.KindOf(err) != errs.KindInvalidState {
		t.Errorf("second refund: expected invalid state, got %v", err)
	}
}

func TestNoWorkRefund_Denials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("before deadline", func(t *testing.T) {
		c := env.createFunded(t, futureDeadline())
		if _, _, err := env.disputeSvc.NoWorkRefund(ctx, c.ID, env.clientActor()); errs.KindOf(err) != errs.KindInvalidState {
			t.Errorf("expected invalid state, got %v", err)
		}
	})

	t.Run("freelancer requests", func(t *testing.T) {
		c := env.createFunded(t, pastDeadline())
		if _, _, err := env.disputeSvc.NoWorkRefund(ctx, c.ID, env.freelancerActor()); errs.KindOf(err) != errs.KindForbidden {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("work was uploaded", func(t *testing.T) {
		c := env.createFunded(t, pastDeadline())
		if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
			Links: []string{"https://repo.example.com/late-delivery"},
		}); err != nil {
			t.Fatalf("submit work: %v", err)
		}
		if _, _, err := env.disputeSvc.NoWorkRefund(ctx, c.ID, env.clientActor()); errs.KindOf(err) != errs.KindInvalidState {
			t.Errorf("expected invalid state, got %v", err)
		}
	})
}

func TestRaiseWorkDispute_AcceptedVerdictRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verdicts.result = &VerdictResult{OK: true, Status: VerdictAccepted, Reason: "work does not match the agreed tasks"}

	c := env.createFunded(t, pastDeadline())
	if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
		Links: []string{"https://repo.example.com/final"},
	}); err != nil {
		t.Fatalf("submit work: %v", err)
	}

	outcome, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.freelancerActor())
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if outcome.Verdict != VerdictAccepted {
		t.Errorf("expected accepted verdict, got %s", outcome.Verdict)
	}
	if outcome.Contract.Status != models.ContractStatusRefunded {
		t.Errorf("expected refunded, got %s", outcome.Contract.Status)
	}
	if outcome.Entry == nil || outcome.Entry.Type != models.LedgerTypeRefund {
		t.Fatalf("expected refund entry, got %+v", outcome.Entry)
	}

	// Both dispute edges land in the audit trail.
	var sawDisputed, sawSettled bool
	for _, a := range env.audit.actions() {
		switch a {
		case "contract_status_work-submitted_to_disputed":
			sawDisputed = true
		case "contract_status_disputed_to_refunded":
			sawSettled = true
		}
	}
	if !sawDisputed || !sawSettled {
		t.Errorf("expected both dispute transitions audited, got %v", env.audit.actions())
	}
}

func TestRaiseWorkDispute_RejectedVerdictChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verdicts.result = &VerdictResult{OK: true, Status: VerdictRejected, Reason: "submitted proof does not demonstrate completion"}

	c := env.createFunded(t, pastDeadline())
	if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
		Links: []string{"https://repo.example.com/final"},
	}); err != nil {
		t.Fatalf("submit work: %v", err)
	}

	outcome, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.freelancerActor())
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if outcome.Verdict != VerdictRejected {
		t.Errorf("expected rejected verdict, got %s", outcome.Verdict)
	}
	if outcome.Reason == "" {
		t.Error("rejected verdict must carry the arbitration reason")
	}

	reloaded, _ := env.contracts.GetByID(ctx, c.ID)
	if reloaded.Status != models.ContractStatusWorkSubmitted {
		t.Errorf("rejected verdict must leave contract in work-submitted, got %s", reloaded.Status)
	}

	entries, _ := env.ledger.ListByContract(ctx, c.ID)
	for _, e := range entries {
		if e.Type == models.LedgerTypeRefund {
			t.Error("rejected verdict must not create a refund entry")
		}
	}
}

func TestRaiseWorkDispute_Denials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verdicts.result = &VerdictResult{OK: true, Status: VerdictAccepted}

	t.Run("before deadline", func(t *testing.T) {
		c := env.createFunded(t, futureDeadline())
		if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
			Links: []string{"https://repo.example.com/final"},
		}); err != nil {
			t.Fatalf("submit work: %v", err)
		}
		if _, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.freelancerActor()); errs.KindOf(err) != errs.KindInvalidState {
			t.Errorf("expected invalid state, got %v", err)
		}
		if env.verdicts.calls != 0 {
			t.Error("denied dispute must not reach the arbitration service")
		}
	})

	t.Run("client raises", func(t *testing.T) {
		c := env.createFunded(t, pastDeadline())
		if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
			Links: []string{"https://repo.example.com/final"},
		}); err != nil {
			t.Fatalf("submit work: %v", err)
		}
		if _, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.clientActor()); errs.KindOf(err) != errs.KindForbidden {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("no submission", func(t *testing.T) {
		c := env.createFunded(t, pastDeadline())
		if _, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.freelancerActor()); errs.KindOf(err) != errs.KindInvalidState {
			t.Errorf("expected invalid state, got %v", err)
		}
	})
}

func TestRaiseWorkDispute_ArbitrationDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.verdicts.err = errs.Upstream(nil, "dispute service unavailable")

	c := env.createFunded(t, pastDeadline())
	if _, err := env.contractSvc.SubmitWork(ctx, c.ID, env.freelancerActor(), SubmitWorkInput{
		Links: []string{"https://repo.example.com/final"},
	}); err != nil {
		t.Fatalf("submit work: %v", err)
	}

	_, err := env.disputeSvc.RaiseWorkDispute(ctx, c.ID, env.freelancerActor())
	if errs.KindOf(err) != errs.KindUpstreamUnavailable {
		t.Fatalf("expected upstream error, got %v", err)
	}

	reloaded, _ := env.contracts.GetByID(ctx, c.ID)
	if reloaded.Status != models.ContractStatusWorkSubmitted {
		t.Errorf("failed arbitration call must not change status, got %s", reloaded.Status)
	}
}
