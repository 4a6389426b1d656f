package workflow

import (
	"fmt"

	"github.com/jb-platform/maintenance-service/internal/domain"
)

// Tenant messages never name the contractor or mention money, and contractor
// messages never carry tenant contact details. Access goes through the agency.

const humanDate = "Monday 2 January 2006"

func (e *Engine) ticketReceivedMessage(t *domain.Ticket) Notification {
	return Notification{
		Audience:    domain.PartyTenant,
		RecipientID: t.TenantID,
		Subject:     fmt.Sprintf("We've received your maintenance request %s", t.Number),
		Body: fmt.Sprintf("Thanks for reporting %q. Your reference is %s. %s will be in touch about the next steps.",
			t.Subject, t.Number, e.agency.Name),
	}
}

func (e *Engine) jobRequestMessage(t *domain.Ticket, q *domain.Quote, c *domain.Contractor) Notification {
	return Notification{
		Audience:    domain.PartyContractor,
		RecipientID: c.ID,
		QuoteID:     ptr(q.ID),
		Subject:     fmt.Sprintf("New job request %s (%s)", t.Number, t.Category),
		Body: fmt.Sprintf("%s would like a quote for job %s, priority %s: %s. %s Please reply with your price and earliest availability. Property access is arranged through %s%s.",
			e.agency.Name, t.Number, t.Priority, t.Subject, t.Description, e.agency.Name, e.agencyPhoneSuffix()),
	}
}

func (e *Engine) quoteReceivedMessage(t *domain.Ticket, q *domain.Quote) Notification {
	return Notification{
		Audience: domain.PartyPropertyManager,
		QuoteID:  ptr(q.ID),
		Subject:  fmt.Sprintf("Quote received for %s", t.Number),
		Body:     fmt.Sprintf("%s for %s: %s.", quoteSummary(q), t.Number, t.Subject),
	}
}

func (e *Engine) declinedMessage(t *domain.Ticket, q *domain.Quote) Notification {
	body := fmt.Sprintf("A contractor declined job %s. The ticket is ready to be reassigned.", t.Number)
	if q.ContractorResponse != "" {
		body += " Reason: " + q.ContractorResponse
	}
	return Notification{
		Audience: domain.PartyPropertyManager,
		QuoteID:  ptr(q.ID),
		Subject:  fmt.Sprintf("Job declined for %s", t.Number),
		Body:     body,
	}
}

func (e *Engine) scheduledTenantMessage(t *domain.Ticket, q *domain.Quote) Notification {
	return Notification{
		Audience:    domain.PartyTenant,
		RecipientID: t.TenantID,
		Subject:     fmt.Sprintf("Repair booked for %s", t.Number),
		Body: fmt.Sprintf("Your repair for request %s is booked for %s, %s.",
			t.Number, q.ScheduledDate.Format(humanDate), q.ScheduledTimeSlot.Label()),
	}
}

func (e *Engine) scheduledContractorMessage(t *domain.Ticket, q *domain.Quote) Notification {
	return Notification{
		Audience:    domain.PartyContractor,
		RecipientID: q.ContractorID,
		QuoteID:     ptr(q.ID),
		Subject:     fmt.Sprintf("Quote approved for %s", t.Number),
		Body: fmt.Sprintf("Your quote for job %s is approved and booked for %s, %s. Please coordinate property access with %s%s and do not contact the occupant directly.",
			t.Number, q.ScheduledDate.Format(humanDate), q.ScheduledTimeSlot.Label(), e.agency.Name, e.agencyPhoneSuffix()),
	}
}

func (e *Engine) notAcceptedMessage(t *domain.Ticket, q *domain.Quote) Notification {
	return Notification{
		Audience:    domain.PartyContractor,
		RecipientID: q.ContractorID,
		QuoteID:     ptr(q.ID),
		Subject:     fmt.Sprintf("Quote update for %s", t.Number),
		Body:        fmt.Sprintf("Thank you for quoting for job %s. %s will not be going ahead with your quote on this occasion.", t.Number, e.agency.Name),
	}
}

func (e *Engine) completedTenantMessage(t *domain.Ticket) Notification {
	return Notification{
		Audience:    domain.PartyTenant,
		RecipientID: t.TenantID,
		Subject:     fmt.Sprintf("Maintenance complete for %s", t.Number),
		Body: fmt.Sprintf("%s has completed the maintenance work for your request %s. Please let us know if anything still needs attention.",
			e.agency.Name, t.Number),
	}
}

func (e *Engine) agencyPhoneSuffix() string {
	if e.agency.Phone == "" {
		return ""
	}
	return " on " + e.agency.Phone
}
