package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contract-vault/backend/internal/errs"
	"github.com/contract-vault/backend/internal/models"
	"go.uber.org/zap"
)

// Verdict outcomes returned by the arbitration collaborator.
const (
	VerdictAccepted = "accepted"
	VerdictRejected = "rejected"
)

// VerdictService asks the external arbitration collaborator to judge
// submitted work proof against the contract terms.
type VerdictService interface {
	VerifyProof(ctx context.Context, req VerdictRequest) (*VerdictResult, error)
}

type VerdictContractData struct {
	ProjectDescription string              `json:"projectDescription"`
	Task               []string            `json:"task"`
	Deadline           string              `json:"DeadLine,omitempty"`
	TotalAmount        float64             `json:"totalAmount"`
	Currency           string              `json:"currency"`
	Links              []string            `json:"links"`
	Attachments        []models.Attachment `json:"attachments"`
}

type VerdictRequest struct {
	ContractData VerdictContractData `json:"contractData"`
}

type VerdictResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// DisputeClient calls the arbitration HTTP service.
type DisputeClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewDisputeClient(baseURL string, log *zap.Logger) *DisputeClient {
	return &DisputeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func (c *DisputeClient) VerifyProof(ctx context.Context, verdictReq VerdictRequest) (*VerdictResult, error) {
	body, err := json.Marshal(verdictReq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/dispute/verify-proof", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Upstream(err, "dispute service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, errs.Upstream(nil, "dispute service returned %d: %s", resp.StatusCode, string(b))
	}

	var result VerdictResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errs.Upstream(err, "dispute service returned malformed verdict")
	}
	return &result, nil
}
