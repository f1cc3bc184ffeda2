package services

import (
	"context"
	"sync"
	"time"

	"github.com/contract-vault/backend/internal/config"
	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/events"
	"github.com/contract-vault/backend/internal/models"
	"github.com/contract-vault/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory fakes mirroring the repository semantics, including the
// guarded conditional updates.

type fakeContractStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*models.Contract
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[uuid.UUID]*models.Contract)}
}

func (s *fakeContractStore) Create(_ context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *fakeContractStore) GetByID(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, errs.NotFound("contract not found")
	}
	cp := *c
	return &cp, nil
}

func (s *fakeContractStore) List(_ context.Context, f repositories.ContractFilter) ([]models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contract
	for _, c := range s.contracts {
		if f.FreelancerID != nil && c.FreelancerID != *f.FreelancerID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeContractStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return errs.NotFound("contract not found")
	}
	if c.Status != from {
		return errs.InvalidState("contract is no longer in state %q", from)
	}
	c.Status = to
	c.Version++
	return nil
}

func (s *fakeContractStore) SubmitWork(_ context.Context, id uuid.UUID, from string, proof models.WorkProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return errs.NotFound("contract not found")
	}
	if c.Status != from {
		return errs.InvalidState("contract is no longer in state %q", from)
	}
	c.WorkProof = proof
	c.Status = models.ContractStatusWorkSubmitted
	c.Version++
	return nil
}

func (s *fakeContractStore) SetContractFile(_ context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return errs.NotFound("contract not found")
	}
	c.ContractFileURL = &url
	return nil
}

func (s *fakeContractStore) SetClientSignature(_ context.Context, id uuid.UUID, sig models.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return errs.NotFound("contract not found")
	}
	c.Signatures.Client = sig
	c.Signatures.PendingParty = ""
	return nil
}

type fakeLedgerStore struct {
	mu        sync.Mutex
	contracts *fakeContractStore
	entries   []*models.LedgerEntry
}

func newFakeLedgerStore(contracts *fakeContractStore) *fakeLedgerStore {
	return &fakeLedgerStore{contracts: contracts}
}

func (s *fakeLedgerStore) Create(_ context.Context, e *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *fakeLedgerStore) GetByContractAndOrder(_ context.Context, contractID uuid.UUID, orderID string) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.ContractID == contractID && e.GatewayOrderID != nil && *e.GatewayOrderID == orderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errs.NotFound("transaction not found")
}

func (s *fakeLedgerStore) ListByContract(_ context.Context, contractID uuid.UUID) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.ContractID == contractID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) ConfirmEscrow(ctx context.Context, contractID uuid.UUID, orderID, paymentID, signature string) (*models.LedgerEntry, bool, error) {
	s.mu.Lock()
	var target *models.LedgerEntry
	for _, e := range s.entries {
		if e.ContractID == contractID && e.GatewayOrderID != nil && *e.GatewayOrderID == orderID &&
			e.Type == models.LedgerTypeEscrowFunding && e.Status == models.LedgerStatusInitiated {
			target = e
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		existing, err := s.GetByContractAndOrder(ctx, contractID, orderID)
		if err != nil {
			return nil, false, err
		}
		if existing.Status == models.LedgerStatusInEscrow &&
			existing.GatewayPaymentID != nil && *existing.GatewayPaymentID == paymentID {
			return existing, true, nil
		}
		return nil, false, errs.InvalidState("transaction for order %s is in state %q and cannot be funded", orderID, existing.Status)
	}

	now := time.Now()
	target.GatewayPaymentID = &paymentID
	target.GatewaySignature = &signature
	target.Status = models.LedgerStatusInEscrow
	target.FundedAt = &now
	cp := *target
	s.mu.Unlock()

	s.contracts.mu.Lock()
	defer s.contracts.mu.Unlock()
	c, ok := s.contracts.contracts[contractID]
	if !ok {
		return nil, false, errs.NotFound("contract not found")
	}
	if c.Status != models.ContractStatusSent {
		return nil, false, errs.InvalidState("contract is no longer in state %q", models.ContractStatusSent)
	}
	c.Status = models.ContractStatusFunded
	if c.ClientID == nil {
		payer := cp.PayerID
		c.ClientID = &payer
	}
	c.Escrow = models.EscrowInfo{
		GatewayOrderID:   &orderID,
		GatewayPaymentID: &paymentID,
		AmountFunded:     cp.Amount,
		Currency:         cp.Currency,
		FundedAt:         &now,
	}
	c.Version++
	return &cp, false, nil
}

func (s *fakeLedgerStore) Release(_ context.Context, c *models.Contract) (*models.LedgerEntry, error) {
	if c.ClientID == nil {
		return nil, errs.InvalidState("contract has no bound client")
	}
	s.contracts.mu.Lock()
	defer s.contracts.mu.Unlock()
	stored, ok := s.contracts.contracts[c.ID]
	if !ok {
		return nil, errs.NotFound("contract not found")
	}
	if stored.Status != c.Status {
		return nil, errs.InvalidState("contract is no longer in state %q", c.Status)
	}

	now := time.Now()
	entry := &models.LedgerEntry{
		ID:         uuid.New(),
		ContractID: c.ID,
		PayerID:    *c.ClientID,
		PayeeID:    c.FreelancerID,
		Type:       models.LedgerTypePayout,
		Amount:     c.Escrow.AmountFunded,
		Currency:   c.Escrow.Currency,
		Status:     models.LedgerStatusReleased,
		ReleasedAt: &now,
		CreatedAt:  now,
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	stored.Status = models.ContractStatusReleased
	stored.Escrow.ReleasedAt = &now
	stored.Version++
	cp := *entry
	return &cp, nil
}

func (s *fakeLedgerStore) Refund(_ context.Context, c *models.Contract, notes string) (*models.LedgerEntry, error) {
	if c.ClientID == nil {
		return nil, errs.InvalidState("contract has no bound client")
	}
	s.contracts.mu.Lock()
	defer s.contracts.mu.Unlock()
	stored, ok := s.contracts.contracts[c.ID]
	if !ok {
		return nil, errs.NotFound("contract not found")
	}
	if stored.Status != c.Status {
		return nil, errs.InvalidState("contract is no longer in state %q", c.Status)
	}

	now := time.Now()
	entry := &models.LedgerEntry{
		ID:         uuid.New(),
		ContractID: c.ID,
		PayerID:    c.FreelancerID,
		PayeeID:    *c.ClientID,
		Type:       models.LedgerTypeRefund,
		Amount:     c.Escrow.AmountFunded,
		Currency:   c.Escrow.Currency,
		Status:     models.LedgerStatusRefunded,
		RefundedAt: &now,
		CreatedAt:  now,
	}
	if notes != "" {
		entry.Notes = &notes
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	stored.Status = models.ContractStatusRefunded
	stored.Escrow.RefundedAt = &now
	stored.Version++
	cp := *entry
	return &cp, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *fakeUserStore) add(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = &u
	return &u
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user not found")
}

type fakeAuditLogger struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (s *fakeAuditLogger) Log(_ context.Context, entry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.CreatedAt = time.Now()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditLogger) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, _, _ int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeAuditLogger) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeGateway struct {
	orders int
	err    error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders++
	return &GatewayOrder{
		ID:       "order_test_1",
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

type fakeDocgen struct {
	url  string
	err  error
	reqs []DocumentRequest
}

func (d *fakeDocgen) CreateDocument(_ context.Context, req DocumentRequest) (string, error) {
	d.reqs = append(d.reqs, req)
	return d.url, d.err
}

func (d *fakeDocgen) CountersignDocument(_ context.Context, req DocumentRequest) (string, error) {
	d.reqs = append(d.reqs, req)
	return d.url, d.err
}

type fakeVerdicts struct {
	result *VerdictResult
	err    error
	calls  int
}

func (v *fakeVerdicts) VerifyProof(_ context.Context, _ VerdictRequest) (*VerdictResult, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		GatewayKeyID:     "key_test",
		GatewayKeySecret: "secret_test",
		DefaultCurrency:  "INR",
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }
