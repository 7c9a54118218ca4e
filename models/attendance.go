package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttendanceRecord represents one gym visit (clock-in, optional clock-out)
type AttendanceRecord struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID   primitive.ObjectID `json:"memberId" bson:"memberId"`
	MemberName string             `json:"memberName" bson:"memberName"`
	ClockIn    time.Time          `json:"clockIn" bson:"clockIn"`
	ClockOut   *time.Time         `json:"clockOut,omitempty" bson:"clockOut,omitempty"`
	Date       string             `json:"date" bson:"date"` // "2006-01-02", the gym-local day of the visit
	RecordedBy primitive.ObjectID `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

type ClockInRequest struct {
	MemberID string `json:"memberId" validate:"required"`
}

type ClockOutRequest struct {
	RecordID string `json:"recordId" validate:"required"`
}
