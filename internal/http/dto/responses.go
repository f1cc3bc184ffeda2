package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type FundEscrowResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type PaymentCallbackResponse struct {
	OK       bool   `json:"ok"`
	Replayed bool   `json:"replayed"`
	Status   string `json:"status"`
}

type DisputeResponse struct {
	OK      bool   `json:"ok"`
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
	Data    any    `json:"data,omitempty"`
}
