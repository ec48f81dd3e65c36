package types

// SendState describes how far an outbound message got through the pipeline.
type SendState string

const (
	SendCompleted    SendState = "SENT"
	SendBlocked      SendState = "BLOCKED"
	SendAwaitingUser SendState = "AWAITING_CONFIRMATION"
)

// ConfirmationToken identifies a send suspended on user confirmation.
type ConfirmationToken string

// SendReceipt reports the outcome of a Send call. When State is
// AWAITING_CONFIRMATION the caller must resolve or cancel the token; nothing
// has been encrypted or transmitted yet.
type SendReceipt struct {
	State     SendState         `json:"state"`
	Encrypted bool              `json:"encrypted"`
	Decision  ScanDecision      `json:"decision"`
	Token     ConfirmationToken `json:"token,omitempty"`
}
