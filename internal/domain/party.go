package domain

import "time"

// Contact is the reachable surface of a tenant, contractor or PM inbox.
type Contact struct {
	Name             string
	Email            string
	Phone            string
	PreferredChannel Channel
}

// ResolveChannel picks the preferred channel when the contact can be
// reached on it, otherwise whichever channel has an address.
func (c Contact) ResolveChannel() (Channel, string, bool) {
	switch c.PreferredChannel {
	case ChannelWhatsApp:
		if c.Phone != "" {
			return ChannelWhatsApp, c.Phone, true
		}
	case ChannelEmail:
		if c.Email != "" {
			return ChannelEmail, c.Email, true
		}
	}
	if c.Phone != "" {
		return ChannelWhatsApp, c.Phone, true
	}
	if c.Email != "" {
		return ChannelEmail, c.Email, true
	}
	return "", "", false
}

// Tenant occupies a managed property.
type Tenant struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	PropertyID       string
	PreferredChannel Channel
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t *Tenant) Contact() Contact {
	return Contact{Name: t.Name, Email: t.Email, Phone: t.Phone, PreferredChannel: t.PreferredChannel}
}

// Contractor is an external tradesperson invited to quote.
type Contractor struct {
	ID               string
	Name             string
	Trade            TicketCategory
	Email            string
	Phone            string
	PreferredChannel Channel
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c *Contractor) Contact() Contact {
	return Contact{Name: c.Name, Email: c.Email, Phone: c.Phone, PreferredChannel: c.PreferredChannel}
}
