package dto

import "time"

type RegisterRequest struct {
	Email         string                `json:"email"`
	Username      string                `json:"username"`
	Password      string                `json:"password"`
	Role          string                `json:"role"`
	CompanyName   string                `json:"company_name,omitempty"`
	PayoutDetails *PayoutDetailsRequest `json:"payout_details,omitempty"`
	SignatureURL  string                `json:"signature_url,omitempty"`
	SignatureHash string                `json:"signature_hash,omitempty"`
}

type PayoutDetailsRequest struct {
	AccountHolderName string `json:"account_holder_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSCCode          string `json:"ifsc_code,omitempty"`
	UPIID             string `json:"upi_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateContractRequest struct {
	ClientEmail        string     `json:"client_email"`
	AgencyName         *string    `json:"agency_name,omitempty"`
	ProjectDescription string     `json:"project_description"`
	Tasks              []string   `json:"tasks"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	TotalAmount        float64    `json:"total_amount"`
	Currency           string     `json:"currency,omitempty"`
}

type SubmitWorkRequest struct {
	Links       []string            `json:"links,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

type AttachmentRequest struct {
	URL        string     `json:"url"`
	FileType   string     `json:"file_type,omitempty"`
	StorageID  string     `json:"storage_id,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

type PaymentCallbackRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
