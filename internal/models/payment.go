package models

import "time"

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

// Payment statuses
const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentFailed     PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentCreated:    {PaymentAuthorized, PaymentCaptured, PaymentFailed},
	PaymentAuthorized: {PaymentCaptured, PaymentFailed},
	PaymentCaptured:   {PaymentRefunded},
}

// ParsePaymentStatus validates a payment status string
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	status := PaymentStatus(s)
	switch status {
	case PaymentCreated, PaymentAuthorized, PaymentCaptured, PaymentRefunded, PaymentFailed:
		return status, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether a payment may move from s to next
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payment is a record of one payment event. Only Status changes after creation.
type Payment struct {
	ID        string        `json:"id" bson:"_id"`
	UserID    string        `json:"userId" bson:"user_id"`
	PlanName  Plan          `json:"planName" bson:"plan_name"`
	Amount    int           `json:"amount" bson:"amount"`
	Currency  string        `json:"currency" bson:"currency"`
	PaymentID string        `json:"paymentId,omitempty" bson:"payment_id,omitempty"`
	OrderID   string        `json:"orderId" bson:"order_id"`
	Status    PaymentStatus `json:"status" bson:"status"`
	CreatedAt time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updated_at"`
}
