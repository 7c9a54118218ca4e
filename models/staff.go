package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StaffMember represents an employee record for payroll and scheduling
type StaffMember struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	FullName  string             `json:"fullName" bson:"fullName"`
	Position  string             `json:"position" bson:"position"` // "reception", "trainer", "manager", "cleaner"
	Salary    float64            `json:"salary" bson:"salary"`     // monthly base salary
	HiredAt   time.Time          `json:"hiredAt" bson:"hiredAt"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// StaffNote is a short note attached to a staff member by a manager
type StaffNote struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	StaffID   primitive.ObjectID `json:"staffId" bson:"staffId"`
	AuthorID  primitive.ObjectID `json:"authorId" bson:"authorId"`
	Author    string             `json:"author" bson:"author"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PayrollEntry records one salary payment for a period
type PayrollEntry struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	StaffID   primitive.ObjectID `json:"staffId" bson:"staffId"`
	StaffName string             `json:"staffName" bson:"staffName"`
	Period    string             `json:"period" bson:"period"` // "2026-08"
	Amount    float64            `json:"amount" bson:"amount"`
	Bonus     float64            `json:"bonus,omitempty" bson:"bonus,omitempty"`
	PaidAt    *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	PaidBy    primitive.ObjectID `json:"paidBy,omitempty" bson:"paidBy,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreateStaffRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName"`
	Position  string  `json:"position" validate:"required"`
	Salary    float64 `json:"salary" validate:"required,gt=0"`
}

type StaffNoteRequest struct {
	Text string `json:"text" validate:"required"`
}

type PayrollRequest struct {
	StaffID string  `json:"staffId" validate:"required"`
	Period  string  `json:"period" validate:"required"`
	Bonus   float64 `json:"bonus,omitempty"`
}
