package domain

import (
	"sort"
	"strings"
)

// SortDirection orders listings.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection defaults to descending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(s, string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// TicketSortKey names a sortable ticket column.
type TicketSortKey string

const (
	TicketSortCreatedAt TicketSortKey = "created_at"
	TicketSortTicketID  TicketSortKey = "ticket_id"
	TicketSortStatus    TicketSortKey = "status"
	TicketSortContact   TicketSortKey = "contact_name"
)

// SortTickets orders tickets in place. Ties fall back to the internal id, so
// the order is total: sorting twice equals sorting once, and reversing an
// ascending sort yields the descending one.
func SortTickets(tickets []Ticket, key TicketSortKey, dir SortDirection) {
	sort.SliceStable(tickets, func(i, j int) bool {
		c := compareTickets(&tickets[i], &tickets[j], key)
		if dir == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareTickets(a, b *Ticket, key TicketSortKey) int {
	var c int
	switch key {
	case TicketSortTicketID:
		c = strings.Compare(a.TicketID, b.TicketID)
	case TicketSortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
	case TicketSortContact:
		c = strings.Compare(strings.ToLower(a.Contact.Name), strings.ToLower(b.Contact.Name))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	return c
}

// IdentitySortKey names a sortable roster column.
type IdentitySortKey string

const (
	IdentitySortCreatedAt IdentitySortKey = "created_at"
	IdentitySortName      IdentitySortKey = "name"
	IdentitySortEmail     IdentitySortKey = "email"
	IdentitySortRole      IdentitySortKey = "role"
)

// SortIdentities orders the roster in place with the same total-order
// guarantee as SortTickets.
func SortIdentities(identities []Identity, key IdentitySortKey, dir SortDirection) {
	sort.SliceStable(identities, func(i, j int) bool {
		c := compareIdentities(&identities[i], &identities[j], key)
		if dir == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareIdentities(a, b *Identity, key IdentitySortKey) int {
	var c int
	switch key {
	case IdentitySortName:
		c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case IdentitySortEmail:
		c = strings.Compare(a.Email, b.Email)
	case IdentitySortRole:
		c = strings.Compare(string(a.Role), string(b.Role))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	return c
}
