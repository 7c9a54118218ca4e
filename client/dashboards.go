package client

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/gymdesk/gymdesk_backend/models"
)

// Event names pushed by the server. Mirrors the hub's event family.
const (
	TopicUserClockIn       = "user_clock_in"
	TopicUserClockOut      = "user_clock_out"
	TopicNewMember         = "new_member_registered"
	TopicMembershipRequest = "membership_request"
	TopicMembershipApprove = "membership_approved"
	TopicTransactionAdded  = "transaction_added"
	TopicAttendanceDeleted = "attendance_deleted"
	TopicStatsUpdated      = "stats_updated"
	TopicStaffNoteAdded    = "staff_note_added"
	TopicSettingsUpdated   = "gym_settings_updated"
)

var dashboardLogger = log.New(os.Stdout, "[DASHBOARD] ", log.LstdFlags)

// Every consumer here follows the same contract: Refresh pulls a full
// snapshot through the gateway, Attach subscribes narrow patch handlers on
// the shared channel, and every patch handler tolerates duplicate delivery
// (events are at-least-once) by deduplicating on entity ID before any
// additive change. Refresh doubles as the reconciling safety net when a
// patch cannot be applied.

// OverviewDashboard holds the admin landing counters
type OverviewDashboard struct {
	gateway *Gateway

	mu       sync.Mutex
	Stats    models.OverviewStats
	Settings models.GymSettings
}

func NewOverviewDashboard(gateway *Gateway) *OverviewDashboard {
	return &OverviewDashboard{gateway: gateway}
}

// Refresh refetches the aggregate counters and the gym settings
func (d *OverviewDashboard) Refresh(ctx context.Context) error {
	var stats models.OverviewStats
	if err := d.gateway.Get(ctx, "/admin/overview", &stats); err != nil {
		return err
	}
	var settings models.GymSettings
	if err := d.gateway.Get(ctx, "/settings", &settings); err != nil {
		return err
	}

	d.mu.Lock()
	d.Stats = stats
	d.Settings = settings
	d.mu.Unlock()
	return nil
}

// Attach subscribes the overview to counter and settings changes. The
// stats event may carry the fresh counters; when it does not, the handler
// refetches.
func (d *OverviewDashboard) Attach(channel *Channel) func() {
	unsubStats := channel.Subscribe(TopicStatsUpdated, func(data json.RawMessage) {
		if len(data) > 0 {
			var stats models.OverviewStats
			if err := json.Unmarshal(data, &stats); err == nil && stats.GeneratedAtUnix != 0 {
				d.mu.Lock()
				d.Stats = stats
				d.mu.Unlock()
				return
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
		defer cancel()
		var stats models.OverviewStats
		if err := d.gateway.Get(ctx, "/admin/overview", &stats); err != nil {
			dashboardLogger.Printf("Overview refetch failed: %v", err)
			return
		}
		d.mu.Lock()
		d.Stats = stats
		d.mu.Unlock()
	})
	unsubSettings := channel.Subscribe(TopicSettingsUpdated, func(data json.RawMessage) {
		var settings models.GymSettings
		if err := json.Unmarshal(data, &settings); err != nil {
			dashboardLogger.Printf("Malformed settings payload: %v", err)
			return
		}
		d.mu.Lock()
		d.Settings = settings
		d.mu.Unlock()
	})

	return func() {
		unsubStats()
		unsubSettings()
	}
}

func (d *OverviewDashboard) Snapshot() (models.OverviewStats, models.GymSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Stats, d.Settings
}

// AttendanceBoard is the live attendance view: today's visits, newest first
type AttendanceBoard struct {
	gateway *Gateway

	mu   sync.Mutex
	Rows []models.AttendanceRecord
}

func NewAttendanceBoard(gateway *Gateway) *AttendanceBoard {
	return &AttendanceBoard{gateway: gateway}
}

func (b *AttendanceBoard) Refresh(ctx context.Context) error {
	var rows []models.AttendanceRecord
	if err := b.gateway.Get(ctx, "/attendance", &rows); err != nil {
		return err
	}
	b.mu.Lock()
	b.Rows = rows
	b.mu.Unlock()
	return nil
}

func (b *AttendanceBoard) Attach(channel *Channel) func() {
	unsubIn := channel.Subscribe(TopicUserClockIn, func(data json.RawMessage) {
		var record models.AttendanceRecord
		if err := json.Unmarshal(data, &record); err != nil {
			dashboardLogger.Printf("Malformed clock-in payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, row := range b.Rows {
			if row.ID == record.ID {
				return
			}
		}
		b.Rows = append([]models.AttendanceRecord{record}, b.Rows...)
	})
	unsubOut := channel.Subscribe(TopicUserClockOut, func(data json.RawMessage) {
		var record models.AttendanceRecord
		if err := json.Unmarshal(data, &record); err != nil {
			dashboardLogger.Printf("Malformed clock-out payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.Rows {
			if b.Rows[i].ID == record.ID {
				b.Rows[i] = record
				return
			}
		}
	})
	unsubDel := channel.Subscribe(TopicAttendanceDeleted, func(data json.RawMessage) {
		var payload struct {
			RecordID string `json:"recordId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			dashboardLogger.Printf("Malformed attendance-deleted payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.Rows {
			if b.Rows[i].ID.Hex() == payload.RecordID {
				b.Rows = append(b.Rows[:i], b.Rows[i+1:]...)
				return
			}
		}
	})

	return func() {
		unsubIn()
		unsubOut()
		unsubDel()
	}
}

func (b *AttendanceBoard) Snapshot() []models.AttendanceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.AttendanceRecord, len(b.Rows))
	copy(out, b.Rows)
	return out
}

// MembersBoard is the member roster view
type MembersBoard struct {
	gateway *Gateway

	mu      sync.Mutex
	Members []models.Member
}

func NewMembersBoard(gateway *Gateway) *MembersBoard {
	return &MembersBoard{gateway: gateway}
}

func (b *MembersBoard) Refresh(ctx context.Context) error {
	var members []models.Member
	if err := b.gateway.Get(ctx, "/members", &members); err != nil {
		return err
	}
	b.mu.Lock()
	b.Members = members
	b.mu.Unlock()
	return nil
}

func (b *MembersBoard) Attach(channel *Channel) func() {
	unsubNew := channel.Subscribe(TopicNewMember, func(data json.RawMessage) {
		var member models.Member
		if err := json.Unmarshal(data, &member); err != nil {
			dashboardLogger.Printf("Malformed member payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, existing := range b.Members {
			if existing.ID == member.ID {
				return
			}
		}
		b.Members = append([]models.Member{member}, b.Members...)
	})
	unsubApprove := channel.Subscribe(TopicMembershipApprove, func(data json.RawMessage) {
		// Approval carries the full member; rejection only {id, status}
		var patch struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &patch); err != nil {
			dashboardLogger.Printf("Malformed approval payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.Members {
			if b.Members[i].ID.Hex() == patch.ID {
				b.Members[i].Status = patch.Status
				return
			}
		}
	})

	return func() {
		unsubNew()
		unsubApprove()
	}
}

func (b *MembersBoard) Snapshot() []models.Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Member, len(b.Members))
	copy(out, b.Members)
	return out
}

// FinanceBoard is the transaction ledger view. Totals are recomputed from
// the list on every read, never tracked as separate counters.
type FinanceBoard struct {
	gateway *Gateway

	mu           sync.Mutex
	Transactions []models.Transaction
}

func NewFinanceBoard(gateway *Gateway) *FinanceBoard {
	return &FinanceBoard{gateway: gateway}
}

func (b *FinanceBoard) Refresh(ctx context.Context) error {
	var transactions []models.Transaction
	if err := b.gateway.Get(ctx, "/finance/transactions", &transactions); err != nil {
		return err
	}
	b.mu.Lock()
	b.Transactions = transactions
	b.mu.Unlock()
	return nil
}

func (b *FinanceBoard) Attach(channel *Channel) func() {
	return channel.Subscribe(TopicTransactionAdded, func(data json.RawMessage) {
		var transaction models.Transaction
		if err := json.Unmarshal(data, &transaction); err != nil {
			dashboardLogger.Printf("Malformed transaction payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, existing := range b.Transactions {
			if existing.ID == transaction.ID {
				return
			}
		}
		b.Transactions = append([]models.Transaction{transaction}, b.Transactions...)
	})
}

// Totals sums the visible ledger: income, expenses (payroll included), and
// the running balance with refunds netted against income.
func (b *FinanceBoard) Totals() (income, expenses, balance float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var refunds float64
	for _, t := range b.Transactions {
		switch t.Kind {
		case models.TransactionPayment:
			income += t.Amount
		case models.TransactionExpense:
			expenses += t.Amount
		case models.TransactionRefund:
			refunds += t.Amount
		}
	}
	return income, expenses, income - expenses - refunds
}

func (b *FinanceBoard) Snapshot() []models.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Transaction, len(b.Transactions))
	copy(out, b.Transactions)
	return out
}

// StaffBoard shows one staff member's notes, oldest first
type StaffBoard struct {
	gateway *Gateway
	staffID string

	mu    sync.Mutex
	Notes []models.StaffNote
}

func NewStaffBoard(gateway *Gateway, staffID string) *StaffBoard {
	return &StaffBoard{gateway: gateway, staffID: staffID}
}

func (b *StaffBoard) Refresh(ctx context.Context) error {
	var notes []models.StaffNote
	if err := b.gateway.Get(ctx, "/staff/"+b.staffID+"/notes", &notes); err != nil {
		return err
	}
	b.mu.Lock()
	b.Notes = notes
	b.mu.Unlock()
	return nil
}

func (b *StaffBoard) Attach(channel *Channel) func() {
	return channel.Subscribe(TopicStaffNoteAdded, func(data json.RawMessage) {
		var note models.StaffNote
		if err := json.Unmarshal(data, &note); err != nil {
			dashboardLogger.Printf("Malformed staff-note payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if note.StaffID.Hex() != b.staffID {
			return
		}
		for _, existing := range b.Notes {
			if existing.ID == note.ID {
				return
			}
		}
		b.Notes = append(b.Notes, note)
	})
}

func (b *StaffBoard) Snapshot() []models.StaffNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.StaffNote, len(b.Notes))
	copy(out, b.Notes)
	return out
}

// ReceptionBoard is the front-desk queue of pending membership requests,
// oldest first so the desk works through them in order.
type ReceptionBoard struct {
	gateway *Gateway

	mu      sync.Mutex
	Pending []models.Member
}

func NewReceptionBoard(gateway *Gateway) *ReceptionBoard {
	return &ReceptionBoard{gateway: gateway}
}

func (b *ReceptionBoard) Refresh(ctx context.Context) error {
	var pending []models.Member
	if err := b.gateway.Get(ctx, "/reception/pending-members", &pending); err != nil {
		return err
	}
	b.mu.Lock()
	b.Pending = pending
	b.mu.Unlock()
	return nil
}

func (b *ReceptionBoard) Attach(channel *Channel) func() {
	// Signups arrive on both the roster topic and the queue topic; the
	// dedupe below makes the overlap harmless.
	enqueue := func(data json.RawMessage) {
		var member models.Member
		if err := json.Unmarshal(data, &member); err != nil {
			dashboardLogger.Printf("Malformed member payload: %v", err)
			return
		}
		if member.Status != models.MembershipPending {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, existing := range b.Pending {
			if existing.ID == member.ID {
				return
			}
		}
		b.Pending = append(b.Pending, member)
	}
	unsubNew := channel.Subscribe(TopicNewMember, enqueue)
	unsubRequest := channel.Subscribe(TopicMembershipRequest, enqueue)
	unsubApprove := channel.Subscribe(TopicMembershipApprove, func(data json.RawMessage) {
		var patch struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &patch); err != nil {
			dashboardLogger.Printf("Malformed approval payload: %v", err)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.Pending {
			if b.Pending[i].ID.Hex() == patch.ID {
				b.Pending = append(b.Pending[:i], b.Pending[i+1:]...)
				return
			}
		}
	})

	return func() {
		unsubNew()
		unsubRequest()
		unsubApprove()
	}
}

func (b *ReceptionBoard) Snapshot() []models.Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Member, len(b.Pending))
	copy(out, b.Pending)
	return out
}
