package dto

import "github.com/jb-platform/maintenance-service/internal/domain"

// Dates in workflow payloads use the YYYY-MM-DD layout.

// AssignContractorRequest payload.
type AssignContractorRequest struct {
	ContractorID string `json:"contractor_id"`
}

// SubmitQuoteRequest payload. Set Accept to take the job without a price.
type SubmitQuoteRequest struct {
	QuoteAmount   *int64 `json:"quote_amount"`
	AvailableDate string `json:"available_date"`
	Response      string `json:"response"`
	Accept        bool   `json:"accept"`
}

// DeclineQuoteRequest payload.
type DeclineQuoteRequest struct {
	Reason string `json:"reason"`
}

// ApproveQuoteRequest payload.
type ApproveQuoteRequest struct {
	ApprovalNotes     string          `json:"approval_notes"`
	ScheduledDate     string          `json:"scheduled_date"`
	ScheduledTimeSlot domain.TimeSlot `json:"scheduled_time_slot"`
}

// RejectQuoteRequest payload.
type RejectQuoteRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

// CompleteWorkRequest payload.
type CompleteWorkRequest struct {
	CompletionNotes string `json:"completion_notes"`
	FinalAmount     *int64 `json:"final_amount"`
}
