package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuoteStatus is the canonical quote lifecycle.
type QuoteStatus string

const (
	QuoteStatusPending    QuoteStatus = "pending"
	QuoteStatusQuoted     QuoteStatus = "quoted"
	QuoteStatusAccepted   QuoteStatus = "accepted"
	QuoteStatusScheduled  QuoteStatus = "scheduled"
	QuoteStatusInProgress QuoteStatus = "in_progress"
	QuoteStatusCompleted  QuoteStatus = "completed"
	QuoteStatusDeclined   QuoteStatus = "declined"
	QuoteStatusRejected   QuoteStatus = "rejected"
)

// ParseQuoteStatus normalizes legacy aliases onto the canonical set.
func ParseQuoteStatus(raw string) (QuoteStatus, error) {
	s := QuoteStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "approved":
		return QuoteStatusScheduled, nil
	case QuoteStatusPending, QuoteStatusQuoted, QuoteStatusAccepted, QuoteStatusScheduled,
		QuoteStatusInProgress, QuoteStatusCompleted, QuoteStatusDeclined, QuoteStatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown quote status %q", raw)
}

// Open reports whether the quote can still progress.
func (s QuoteStatus) Open() bool {
	return !s.Terminal()
}

// Terminal reports whether the quote can no longer change.
func (s QuoteStatus) Terminal() bool {
	return s == QuoteStatusCompleted || s == QuoteStatusDeclined || s == QuoteStatusRejected
}

// Active reports whether the quote holds the ticket's single active job.
func (s QuoteStatus) Active() bool {
	return s == QuoteStatusScheduled || s == QuoteStatusInProgress
}

// Responded reports whether the contractor has returned figures.
func (s QuoteStatus) Responded() bool {
	return s == QuoteStatusQuoted || s == QuoteStatusAccepted
}

// TimeSlot is a coarse appointment window.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
	SlotAllDay    TimeSlot = "all_day"
)

func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening, SlotAllDay:
		return true
	}
	return false
}

// Label renders the slot for messages.
func (s TimeSlot) Label() string {
	switch s {
	case SlotMorning:
		return "morning (8am-12pm)"
	case SlotAfternoon:
		return "afternoon (12pm-5pm)"
	case SlotEvening:
		return "evening (5pm-8pm)"
	case SlotAllDay:
		return "all day"
	}
	return string(s)
}

// Quote is one contractor's bid for a ticket. Amounts are in pence.
type Quote struct {
	ID                 string
	TicketID           string
	ContractorID       string
	Status             QuoteStatus
	QuoteAmount        *int64
	AvailableDate      *time.Time
	ScheduledDate      *time.Time
	ScheduledTimeSlot  TimeSlot
	ContractorResponse string
	ApprovalNotes      string
	RejectionReason    string
	CompletionNotes    string
	FinalAmount        *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	QuotedAt           *time.Time
	ApprovedAt         *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

// Clone returns a deep copy of the quote.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	cp := *q
	cp.QuoteAmount = cloneInt64(q.QuoteAmount)
	cp.FinalAmount = cloneInt64(q.FinalAmount)
	cp.AvailableDate = cloneTime(q.AvailableDate)
	cp.ScheduledDate = cloneTime(q.ScheduledDate)
	cp.QuotedAt = cloneTime(q.QuotedAt)
	cp.ApprovedAt = cloneTime(q.ApprovedAt)
	cp.StartedAt = cloneTime(q.StartedAt)
	cp.CompletedAt = cloneTime(q.CompletedAt)
	return &cp
}

// FormatPence renders minor units as pounds, e.g. 25000 -> "£250.00".
func FormatPence(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s£%d.%02d", sign, amount/100, amount%100)
}
