package domain

// Role enumerates platform roles.
type Role string

const (
	RoleAdmin           Role = "admin"
	RolePropertyManager Role = "property_manager"
	RoleAgent           Role = "agent"
	RoleLandlord        Role = "landlord"
	RoleTenant          Role = "tenant"
	RoleContractor      Role = "contractor"
)

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capability is a single permission checked by handlers.
type Capability string

const (
	CapTicketsCreate        Capability = "tickets.create"
	CapTicketsViewAll       Capability = "tickets.view_all"
	CapTicketsViewOwn       Capability = "tickets.view_own"
	CapWorkflowManage       Capability = "workflow.manage"
	CapQuotesSubmit         Capability = "quotes.submit"
	CapQuotesRespond        Capability = "quotes.respond"
	CapCommunicationsSend   Capability = "communications.send"
	CapCommunicationsResend Capability = "communications.resend"
	CapContractorsManage    Capability = "contractors.manage"
	CapTenantsManage        Capability = "tenants.manage"
	CapUsersManage          Capability = "users.manage"
)

var allCapabilities = []Capability{
	CapTicketsCreate, CapTicketsViewAll, CapTicketsViewOwn, CapWorkflowManage,
	CapQuotesSubmit, CapQuotesRespond, CapCommunicationsSend, CapCommunicationsResend,
	CapContractorsManage, CapTenantsManage, CapUsersManage,
}

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: allCapabilities,
	RolePropertyManager: {
		CapTicketsCreate, CapTicketsViewAll, CapWorkflowManage, CapQuotesSubmit,
		CapCommunicationsSend, CapCommunicationsResend, CapContractorsManage, CapTenantsManage,
	},
	RoleAgent:      {CapTicketsViewAll, CapTenantsManage},
	RoleLandlord:   {CapTicketsViewAll},
	RoleTenant:     {CapTicketsCreate, CapTicketsViewOwn},
	RoleContractor: {CapQuotesRespond},
}

// CapabilitySet is the resolved permission set of a principal.
type CapabilitySet map[Capability]struct{}

// CapabilitiesFor resolves the capability set of a role.
func CapabilitiesFor(role Role) CapabilitySet {
	caps := roleCapabilities[role]
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the set grants c.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in declaration order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range allCapabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
