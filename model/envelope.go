package model

import "github.com/shopspring/decimal"

// Envelope wraps every remote API response.
type Envelope[T any] struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	StatusCode int           `json:"statusCode,omitempty"`
	Data       *T            `json:"data"`
	Error      *ErrorDetails `json:"error,omitempty"`
	Timestamp  string        `json:"timestamp,omitempty"`
}

type ErrorDetails struct {
	ErrorCode        string              `json:"errorCode,omitempty"`
	ErrorMessage     string              `json:"errorMessage,omitempty"`
	ValidationErrors map[string][]string `json:"validationErrors,omitempty"`
}

// Payload returns Data only for a successful envelope. Data of a failed
// envelope is never trusted.
func (e Envelope[T]) Payload() (*T, bool) {
	if !e.Success {
		return nil, false
	}
	return e.Data, true
}

// FormatUSD renders a server amount as shown to shoppers, e.g. $20.00.
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
