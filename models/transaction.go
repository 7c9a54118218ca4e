package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction kinds
const (
	TransactionPayment = "payment"
	TransactionExpense = "expense"
	TransactionRefund  = "refund"
)

// Payment methods
const (
	MethodCash = "cash"
	MethodCard = "card"
	MethodBank = "bank_transfer"
)

// Transaction represents one entry in the financial ledger
type Transaction struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Kind       string             `json:"kind" bson:"kind"`     // "payment", "expense", "refund"
	Amount     float64            `json:"amount" bson:"amount"` // always positive; Kind decides the sign
	Method     string             `json:"method" bson:"method"`
	Reference  string             `json:"reference" bson:"reference"` // receipt reference printed for the member
	MemberID   primitive.ObjectID `json:"memberId,omitempty" bson:"memberId,omitempty"`
	MemberName string             `json:"memberName,omitempty" bson:"memberName,omitempty"`
	Note       string             `json:"note,omitempty" bson:"note,omitempty"`
	RecordedBy primitive.ObjectID `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateTransactionRequest struct {
	Kind     string  `json:"kind" validate:"required,oneof=payment expense refund"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Method   string  `json:"method" validate:"required,oneof=cash card bank_transfer"`
	MemberID string  `json:"memberId,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// FinanceSummary aggregates the ledger for a period
type FinanceSummary struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Income       float64   `json:"income"`
	Expenses     float64   `json:"expenses"`
	Refunds      float64   `json:"refunds"`
	Balance      float64   `json:"balance"`
	Transactions int       `json:"transactions"`
}
