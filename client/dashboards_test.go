package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gymdesk/gymdesk_backend/models"
)

// detachedChannel builds a channel that never dials: the session stays
// unauthenticated and events are injected straight into dispatch. Patch
// handlers behave identically either way.
func detachedChannel(t *testing.T) *Channel {
	t.Helper()
	store := NewSessionStore(NewMemoryStorage())
	gateway := NewGateway("http://127.0.0.1:0", store)
	channel := NewChannel(store, gateway, "ws://127.0.0.1:0")
	t.Cleanup(channel.Shutdown)
	return channel
}

func deliver(t *testing.T, channel *Channel, topic string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	channel.dispatch(wireEvent{Event: topic, Data: raw})
}

func TestAttendanceBoardPatches(t *testing.T) {
	channel := detachedChannel(t)
	board := NewAttendanceBoard(nil)
	detach := board.Attach(channel)
	defer detach()

	record := models.AttendanceRecord{
		ID:         primitive.NewObjectID(),
		MemberID:   primitive.NewObjectID(),
		MemberName: "Dana Reyes",
		ClockIn:    time.Now(),
		Date:       "2026-08-31",
	}

	// Duplicate delivery of the same clock-in adds exactly one row
	deliver(t, channel, TopicUserClockIn, record)
	deliver(t, channel, TopicUserClockIn, record)
	require.Len(t, board.Snapshot(), 1)

	// Clock-out updates the row in place
	out := time.Now().Add(time.Hour)
	record.ClockOut = &out
	deliver(t, channel, TopicUserClockOut, record)
	deliver(t, channel, TopicUserClockOut, record)
	rows := board.Snapshot()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ClockOut)

	// Clock-out for a row we never saw is ignored, not appended
	stranger := record
	stranger.ID = primitive.NewObjectID()
	deliver(t, channel, TopicUserClockOut, stranger)
	assert.Len(t, board.Snapshot(), 1)

	// Deletion removes the row; a duplicate delete is a no-op
	deliver(t, channel, TopicAttendanceDeleted, map[string]string{"recordId": record.ID.Hex()})
	deliver(t, channel, TopicAttendanceDeleted, map[string]string{"recordId": record.ID.Hex()})
	assert.Empty(t, board.Snapshot())
}

func TestMembersBoardPatches(t *testing.T) {
	channel := detachedChannel(t)
	board := NewMembersBoard(nil)
	detach := board.Attach(channel)
	defer detach()

	member := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: "Dana Reyes",
		Plan:     models.PlanMonthly,
		Status:   models.MembershipPending,
	}

	deliver(t, channel, TopicNewMember, member)
	deliver(t, channel, TopicNewMember, member)
	require.Len(t, board.Snapshot(), 1)

	approved := member
	approved.Status = models.MembershipActive
	deliver(t, channel, TopicMembershipApprove, approved)
	deliver(t, channel, TopicMembershipApprove, approved)

	members := board.Snapshot()
	require.Len(t, members, 1)
	assert.Equal(t, models.MembershipActive, members[0].Status)

	// Rejection arrives as a narrow {id, status} patch
	other := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: "Sam Cole",
		Status:   models.MembershipPending,
	}
	deliver(t, channel, TopicNewMember, other)
	deliver(t, channel, TopicMembershipApprove, map[string]string{
		"id":     other.ID.Hex(),
		"status": models.MembershipRejected,
	})
	for _, m := range board.Snapshot() {
		if m.ID == other.ID {
			assert.Equal(t, models.MembershipRejected, m.Status)
		}
	}
}

func TestFinanceBoardPatchesAndTotals(t *testing.T) {
	channel := detachedChannel(t)
	board := NewFinanceBoard(nil)
	detach := board.Attach(channel)
	defer detach()

	payment := models.Transaction{
		ID:     primitive.NewObjectID(),
		Kind:   models.TransactionPayment,
		Amount: 120,
		Method: models.MethodCash,
	}
	expense := models.Transaction{
		ID:     primitive.NewObjectID(),
		Kind:   models.TransactionExpense,
		Amount: 45,
		Method: models.MethodBank,
	}
	refund := models.Transaction{
		ID:     primitive.NewObjectID(),
		Kind:   models.TransactionRefund,
		Amount: 20,
		Method: models.MethodCard,
	}

	deliver(t, channel, TopicTransactionAdded, payment)
	deliver(t, channel, TopicTransactionAdded, payment)
	deliver(t, channel, TopicTransactionAdded, expense)
	deliver(t, channel, TopicTransactionAdded, refund)

	require.Len(t, board.Snapshot(), 3, "duplicate transaction must not double-count")

	income, expenses, balance := board.Totals()
	assert.Equal(t, 120.0, income)
	assert.Equal(t, 45.0, expenses)
	assert.Equal(t, 55.0, balance)
}

func TestStaffBoardPatches(t *testing.T) {
	channel := detachedChannel(t)
	staffID := primitive.NewObjectID()
	board := NewStaffBoard(nil, staffID.Hex())
	detach := board.Attach(channel)
	defer detach()

	note := models.StaffNote{
		ID:      primitive.NewObjectID(),
		StaffID: staffID,
		Author:  "Dana Reyes",
		Text:    "Covered the late shift",
	}

	deliver(t, channel, TopicStaffNoteAdded, note)
	deliver(t, channel, TopicStaffNoteAdded, note)
	require.Len(t, board.Snapshot(), 1)

	// Notes for a different staff member never show up here
	foreign := note
	foreign.ID = primitive.NewObjectID()
	foreign.StaffID = primitive.NewObjectID()
	deliver(t, channel, TopicStaffNoteAdded, foreign)
	assert.Len(t, board.Snapshot(), 1)
}

func TestReceptionBoardPatches(t *testing.T) {
	channel := detachedChannel(t)
	board := NewReceptionBoard(nil)
	detach := board.Attach(channel)
	defer detach()

	pending := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: "Dana Reyes",
		Status:   models.MembershipPending,
	}
	active := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: "Sam Cole",
		Status:   models.MembershipActive,
	}

	deliver(t, channel, TopicNewMember, pending)
	deliver(t, channel, TopicNewMember, pending)
	deliver(t, channel, TopicNewMember, active)

	queue := board.Snapshot()
	require.Len(t, queue, 1, "only pending members join the desk queue, once each")
	assert.Equal(t, pending.ID, queue[0].ID)

	// The same signup also rides the membership_request topic; the queue
	// still holds one row per member
	deliver(t, channel, TopicMembershipRequest, pending)
	assert.Len(t, board.Snapshot(), 1)

	second := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: "Lee Marsh",
		Status:   models.MembershipPending,
	}
	deliver(t, channel, TopicMembershipRequest, second)
	queue = board.Snapshot()
	require.Len(t, queue, 2)
	assert.Equal(t, second.ID, queue[1].ID, "new requests join the back of the queue")

	deliver(t, channel, TopicMembershipApprove, map[string]string{
		"id": pending.ID.Hex(), "status": models.MembershipActive,
	})
	deliver(t, channel, TopicMembershipApprove, map[string]string{
		"id": pending.ID.Hex(), "status": models.MembershipActive,
	})
	assert.Empty(t, board.Snapshot())
}

func TestOverviewDashboard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/overview":
			w.Write([]byte(`{"success":true,"data":{"activeMembers":42,"currentlyInGym":7,"generatedAt":1725000000}}`))
		case "/api/settings":
			w.Write([]byte(`{"success":true,"data":{"name":"GymDesk","capacity":150,"currency":"USD"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"message":"Not found"}`))
		}
	}))
	defer server.Close()

	store := NewSessionStore(NewMemoryStorage())
	require.NoError(t, store.Login("t1", testIdentity("admin")))
	gateway := NewGateway(server.URL, store)

	channel := detachedChannel(t)
	board := NewOverviewDashboard(gateway)
	detach := board.Attach(channel)
	defer detach()

	require.NoError(t, board.Refresh(context.Background()))
	stats, settings := board.Snapshot()
	assert.Equal(t, 42, stats.ActiveMembers)
	assert.Equal(t, 150, settings.Capacity)

	// stats_updated carrying fresh counters replaces them in place
	deliver(t, channel, TopicStatsUpdated, models.OverviewStats{
		ActiveMembers:   43,
		CurrentlyInGym:  8,
		GeneratedAtUnix: 1725000100,
	})
	stats, _ = board.Snapshot()
	assert.Equal(t, 43, stats.ActiveMembers)

	// Duplicate delivery leaves the same counters
	deliver(t, channel, TopicStatsUpdated, models.OverviewStats{
		ActiveMembers:   43,
		CurrentlyInGym:  8,
		GeneratedAtUnix: 1725000100,
	})
	stats, _ = board.Snapshot()
	assert.Equal(t, 43, stats.ActiveMembers)
	assert.Equal(t, 8, stats.CurrentlyInGym)

	deliver(t, channel, TopicSettingsUpdated, models.GymSettings{
		Name: "GymDesk Downtown", Capacity: 200, Currency: "USD",
	})
	_, settings = board.Snapshot()
	assert.Equal(t, 200, settings.Capacity)
}
