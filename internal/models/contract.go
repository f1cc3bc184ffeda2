package models

import (
	"strings"
	"time"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/google/uuid"
)

// Contract statuses
const (
	ContractStatusDraft         = "draft"
	ContractStatusSent          = "sent"
	ContractStatusAccepted      = "accepted" // legacy alias of funded, kept for wire compatibility
	ContractStatusDeclined      = "declined"
	ContractStatusFunded        = "funded"
	ContractStatusWorkSubmitted = "work-submitted"
	ContractStatusApproved      = "approved" // legacy alias of released
	ContractStatusReleased      = "released"
	ContractStatusDisputed      = "disputed"
	ContractStatusRefunded      = "refunded"
)

// Party roles
const (
	RoleFreelancer = "freelancer"
	RoleClient     = "client"
	RoleGateway    = "gateway"
	RoleSystem     = "system"
)

// Lifecycle actions
type Action string

const (
	ActionSend           Action = "send"
	ActionDecline        Action = "decline"
	ActionConfirmFunding Action = "confirm_funding"
	ActionSubmitWork     Action = "submit_work"
	ActionApprove        Action = "approve"
	ActionNoWorkRefund   Action = "no_work_refund"
	ActionRaiseDispute   Action = "raise_dispute"
	ActionSettleRefund   Action = "settle_refund"
)

// Actor identifies the caller of a transition. ID and Role come from the
// auth collaborator; Email is used only when the contract has no bound
// client yet and must be routed by clientEmail.
type Actor struct {
	ID    uuid.UUID
	Role  string
	Email string
}

type Attachment struct {
	URL         string    `json:"url"`
	FileType    string    `json:"file_type,omitempty"`
	StorageID   string    `json:"storage_id,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type WorkProof struct {
	Links       []string     `json:"links"`
	Attachments []Attachment `json:"attachments"`
}

func (w WorkProof) Empty() bool {
	return len(w.Links) == 0 && len(w.Attachments) == 0
}

// EscrowInfo is a read-optimized snapshot of the ledger for this contract.
// The ledger remains the source of truth; the snapshot is written in the
// same transaction as the matching ledger mutation.
type EscrowInfo struct {
	GatewayOrderID   *string    `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty"`
	AmountFunded     float64    `json:"amount_funded"`
	Currency         string     `json:"currency,omitempty"`
	FundedAt         *time.Time `json:"funded_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
}

type SignatureRecord struct {
	SignedBy          *uuid.UUID `json:"signed_by,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	IPAddress         string     `json:"ip_address,omitempty"`
	SignatureImageURL string     `json:"signature_image_url,omitempty"`
	SignatureHash     string     `json:"signature_hash,omitempty"`
}

type Signatures struct {
	Freelancer   SignatureRecord `json:"freelancer"`
	Client       SignatureRecord `json:"client"`
	PendingParty string          `json:"pending_party,omitempty"`
}

type Contract struct {
	ID                 uuid.UUID  `json:"id"`
	FreelancerID       uuid.UUID  `json:"freelancer_id"`
	ClientID           *uuid.UUID `json:"client_id,omitempty"`
	ClientEmail        string     `json:"client_email"`
	AgencyName         *string    `json:"agency_name,omitempty"`
	ProjectDescription string     `json:"project_description"`
	Tasks              []string   `json:"tasks"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	TotalAmount        float64    `json:"total_amount"`
	Currency           string     `json:"currency"`
	ContractFileURL    *string    `json:"contract_file_url,omitempty"`
	Status             string     `json:"status"`
	Version            int        `json:"version"`
	Signatures         Signatures `json:"signatures"`
	Escrow             EscrowInfo `json:"escrow"`
	WorkProof          WorkProof  `json:"work_proof"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (c *Contract) DeadlinePassed(now time.Time) bool {
	return c.Deadline != nil && c.Deadline.Before(now)
}

// IsClient reports whether actor is the contract's counterparty. Before a
// client account is bound, the clientEmail route identifies the party.
func (c *Contract) IsClient(actor Actor) bool {
	if c.ClientID != nil {
		return actor.ID == *c.ClientID
	}
	return actor.Email != "" && strings.EqualFold(actor.Email, c.ClientEmail)
}

func IsTerminalStatus(status string) bool {
	switch status {
	case ContractStatusDeclined, ContractStatusReleased, ContractStatusRefunded:
		return true
	}
	return false
}

type transitionRule struct {
	from map[string]bool
	next string
	// allow checks caller identity and action-specific eligibility.
	// It must not perform I/O.
	allow func(c *Contract, actor Actor, now time.Time) error
}

func statuses(ss ...string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

var transitionRules = map[Action]transitionRule{
	ActionSend: {
		from: statuses(ContractStatusDraft),
		next: ContractStatusSent,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			if actor.ID != c.FreelancerID {
				return errs.Forbidden("only the freelancer who created the contract can send it")
			}
			return nil
		},
	},
	ActionDecline: {
		from: statuses(ContractStatusSent),
		next: ContractStatusDeclined,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			if !c.IsClient(actor) {
				return errs.Forbidden("you are not authorized to decline this contract")
			}
			return nil
		},
	},
	ActionConfirmFunding: {
		from: statuses(ContractStatusSent),
		next: ContractStatusFunded,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			// Identity is established by the gateway signature, not a login.
			if actor.Role != RoleGateway && actor.Role != RoleSystem {
				return errs.Forbidden("funding is confirmed only via a verified gateway callback")
			}
			return nil
		},
	},
	ActionSubmitWork: {
		// Resubmission is allowed while the approval/dispute cycle is open.
		from: statuses(ContractStatusFunded, ContractStatusAccepted, ContractStatusWorkSubmitted),
		next: ContractStatusWorkSubmitted,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			if actor.ID != c.FreelancerID {
				return errs.Forbidden("only the freelancer can submit work proof")
			}
			return nil
		},
	},
	ActionApprove: {
		from: statuses(ContractStatusWorkSubmitted),
		next: ContractStatusReleased,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			if !c.IsClient(actor) {
				return errs.Forbidden("only the client can approve submitted work")
			}
			if c.Escrow.AmountFunded <= 0 {
				return errs.InvalidState("escrow is not funded, nothing to release")
			}
			return nil
		},
	},
	ActionNoWorkRefund: {
		from: statuses(ContractStatusFunded, ContractStatusAccepted),
		next: ContractStatusRefunded,
		allow: func(c *Contract, actor Actor, now time.Time) error {
			if !c.IsClient(actor) {
				return errs.Forbidden("only the client can request a no-work refund")
			}
			if !c.DeadlinePassed(now) {
				return errs.InvalidState("deadline not yet passed")
			}
			if !c.WorkProof.Empty() {
				return errs.InvalidState("work has been uploaded, automatic refund is not available")
			}
			if c.Escrow.AmountFunded <= 0 {
				return errs.InvalidState("escrow is not funded, nothing to refund")
			}
			return nil
		},
	},
	ActionRaiseDispute: {
		from: statuses(ContractStatusWorkSubmitted),
		next: ContractStatusDisputed,
		allow: func(c *Contract, actor Actor, now time.Time) error {
			if actor.ID != c.FreelancerID {
				return errs.Forbidden("only the freelancer can raise a work dispute")
			}
			if !c.DeadlinePassed(now) {
				return errs.InvalidState("cannot raise dispute before deadline")
			}
			if c.WorkProof.Empty() {
				return errs.InvalidState("no work uploaded, cannot raise dispute")
			}
			return nil
		},
	},
	ActionSettleRefund: {
		from: statuses(ContractStatusDisputed),
		next: ContractStatusRefunded,
		allow: func(c *Contract, actor Actor, _ time.Time) error {
			if actor.Role != RoleSystem {
				return errs.Forbidden("dispute settlement is performed by the platform")
			}
			if c.Escrow.AmountFunded <= 0 {
				return errs.InvalidState("escrow is not funded, nothing to refund")
			}
			return nil
		},
	},
}

// CanTransition is the single guard for every lifecycle change. It returns
// the next status when the transition is legal, or a typed denial naming
// the reason. The guard never mutates the contract and performs no I/O.
func CanTransition(c *Contract, action Action, actor Actor, now time.Time) (string, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", errs.InvalidState("unknown contract action %q", action)
	}
	if !rule.from[c.Status] {
		return "", errs.InvalidState("contract cannot %s in current state %q", strings.ReplaceAll(string(action), "_", " "), c.Status)
	}
	if err := rule.allow(c, actor, now); err != nil {
		return "", err
	}
	return rule.next, nil
}
