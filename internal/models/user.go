package models

import (
	"time"

	"github.com/google/uuid"
)

type PayoutDetails struct {
	AccountHolderName string `json:"account_holder_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSCCode          string `json:"ifsc_code,omitempty"`
	UPIID             string `json:"upi_id,omitempty"`
}

type User struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	Username      string         `json:"username"`
	PasswordHash  string         `json:"-"`
	Role          string         `json:"role"` // freelancer / client
	CompanyName   *string        `json:"company_name,omitempty"`
	PayoutDetails *PayoutDetails `json:"payout_details,omitempty"`
	SignatureURL  *string        `json:"signature_url,omitempty"`
	SignatureHash *string        `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	LastActiveAt  time.Time      `json:"last_active_at"`
}
