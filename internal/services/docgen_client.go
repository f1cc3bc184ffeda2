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
	"go.uber.org/zap"
)

// DocumentGenerator renders contract documents. The core stores the
// returned URL verbatim and never parses the document.
type DocumentGenerator interface {
	CreateDocument(ctx context.Context, req DocumentRequest) (string, error)
	CountersignDocument(ctx context.Context, req DocumentRequest) (string, error)
}

type DocumentRequest struct {
	ContractID         string   `json:"contractId"`
	CurrentDate        string   `json:"currentDate"`
	FreelancerName     string   `json:"fullName_freelancer"`
	ClientName         string   `json:"fullName_client"`
	AgencyName         string   `json:"agencyName"`
	ClientEmail        string   `json:"clientEmail"`
	FreelancerEmail    string   `json:"userEmail"`
	ProjectDescription string   `json:"projectDescription"`
	Task               []string `json:"task"`
	Deadline           string   `json:"DeadLine,omitempty"`
	StartDate          string   `json:"startDate,omitempty"`
	TotalAmount        float64  `json:"totalAmount"`
	Currency           string   `json:"currency"`
}

type docgenResponse struct {
	URL string `json:"url"`
}

type DocgenClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewDocgenClient(baseURL string, log *zap.Logger) *DocgenClient {
	return &DocgenClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func (c *DocgenClient) CreateDocument(ctx context.Context, req DocumentRequest) (string, error) {
	return c.post(ctx, "/create-contract", req)
}

func (c *DocgenClient) CountersignDocument(ctx context.Context, req DocumentRequest) (string, error) {
	return c.post(ctx, "/isAccepted", req)
}

func (c *DocgenClient) post(ctx context.Context, path string, docReq DocumentRequest) (string, error) {
	body, err := json.Marshal(docReq)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.Upstream(err, "document service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", errs.Upstream(nil, "document service returned %d: %s", resp.StatusCode, string(b))
	}

	var result docgenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errs.Upstream(err, "document service returned malformed response")
	}
	return result.URL, nil
}
