package model

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

type SelectionRequest struct {
	Category string `json:"category"`
	Service  string `json:"service"`
}

type OrderFormRequest struct {
	Link     *string `json:"link"`
	Quantity *string `json:"quantity"`
}

type TransactionRequest struct {
	TransactionID string `json:"transactionId"`
}

type MethodRequest struct {
	Method PaymentMethod `json:"method"`
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
