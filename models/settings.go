package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GymSettings holds club-wide configuration shown across the dashboards
type GymSettings struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	OpeningHours string             `json:"openingHours" bson:"openingHours"` // e.g. "06:00-23:00"
	Capacity     int                `json:"capacity" bson:"capacity"`         // max concurrent members on the floor
	Currency     string             `json:"currency" bson:"currency"`
	ContactEmail string             `json:"contactEmail,omitempty" bson:"contactEmail,omitempty"`
	UpdatedBy    primitive.ObjectID `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type UpdateSettingsRequest struct {
	Name         string `json:"name,omitempty"`
	OpeningHours string `json:"openingHours,omitempty"`
	Capacity     int    `json:"capacity,omitempty"`
	Currency     string `json:"currency,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
}

// OverviewStats is the aggregate snapshot behind the admin overview dashboard
type OverviewStats struct {
	TotalMembers    int     `json:"totalMembers"`
	ActiveMembers   int     `json:"activeMembers"`
	PendingMembers  int     `json:"pendingMembers"`
	ExpiredMembers  int     `json:"expiredMembers"`
	CheckedInToday  int     `json:"checkedInToday"`
	CurrentlyInGym  int     `json:"currentlyInGym"`
	MonthIncome     float64 `json:"monthIncome"`
	MonthExpenses   float64 `json:"monthExpenses"`
	StaffCount      int     `json:"staffCount"`
	GeneratedAtUnix int64   `json:"generatedAt"`
}
