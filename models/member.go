package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership statuses
const (
	MembershipPending  = "pending"
	MembershipActive   = "active"
	MembershipExpired  = "expired"
	MembershipRejected = "rejected"
)

// Membership plans
const (
	PlanMonthly   = "monthly"
	PlanQuarterly = "quarterly"
	PlanYearly    = "yearly"
	PlanDayPass   = "day_pass"
)

// Member represents a gym membership profile linked to a user account
type Member struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"userId" bson:"userId"`
	FullName   string             `json:"fullName" bson:"fullName"`
	Email      string             `json:"email" bson:"email"`
	Phone      string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Plan       string             `json:"plan" bson:"plan"`     // "monthly", "quarterly", "yearly", "day_pass"
	Status     string             `json:"status" bson:"status"` // "pending", "active", "expired", "rejected"
	JoinedAt   time.Time          `json:"joinedAt" bson:"joinedAt"`
	ExpiresAt  time.Time          `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	ApprovedBy primitive.ObjectID `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type RegisterMemberRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Plan      string `json:"plan" validate:"required,oneof=monthly quarterly yearly day_pass"`
}

type ApproveMemberRequest struct {
	MemberID string `json:"memberId" validate:"required"`
}

type UpdateMemberRequest struct {
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Plan     string `json:"plan,omitempty"`
	Status   string `json:"status,omitempty"`
}

// PlanDuration returns how long a membership plan runs from its start date
func PlanDuration(plan string) time.Duration {
	switch plan {
	case PlanMonthly:
		return 30 * 24 * time.Hour
	case PlanQuarterly:
		return 90 * 24 * time.Hour
	case PlanYearly:
		return 365 * 24 * time.Hour
	case PlanDayPass:
		return 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
