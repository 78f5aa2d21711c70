package domain

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleTickets() []Ticket {
	r := rand.New(rand.NewSource(7))
	statuses := []TicketStatus{TicketStatusUnresolved, TicketStatusResolved}
	names := []string{"ana", "Bo", "cy", "ana"}
	out := make([]Ticket, 0, 40)
	for i := 0; i < 40; i++ {
		out = append(out, Ticket{
			ID:        string(rune('a'+i%26)) + string(rune('A'+i/26)),
			TicketID:  FormatTicketID(2025, int64(r.Intn(1000))),
			Status:    statuses[r.Intn(2)],
			Contact:   ContactInfo{Name: names[r.Intn(len(names))]},
			CreatedAt: t0.Add(time.Duration(r.Intn(5)) * time.Hour),
		})
	}
	return out
}

func ids(tickets []Ticket) []string {
	out := make([]string, len(tickets))
	for i := range tickets {
		out[i] = tickets[i].ID
	}
	return out
}

func TestSortTicketsIdempotent(t *testing.T) {
	keys := []TicketSortKey{TicketSortCreatedAt, TicketSortTicketID, TicketSortStatus, TicketSortContact}
	for _, key := range keys {
		for _, dir := range []SortDirection{SortAsc, SortDesc} {
			once := sampleTickets()
			SortTickets(once, key, dir)
			twice := slices.Clone(once)
			SortTickets(twice, key, dir)
			assert.Equal(t, ids(once), ids(twice), "%s %s", key, dir)
		}
	}
}

func TestSortTicketsReverseEqualsDescending(t *testing.T) {
	for _, key := range []TicketSortKey{TicketSortCreatedAt, TicketSortTicketID, TicketSortStatus, TicketSortContact} {
		asc := sampleTickets()
		SortTickets(asc, key, SortAsc)
		slices.Reverse(asc)

		desc := sampleTickets()
		SortTickets(desc, key, SortDesc)
		assert.Equal(t, ids(desc), ids(asc), string(key))
	}
}

func TestSortIdentities(t *testing.T) {
	roster := []Identity{
		{ID: "3", Name: "carol", Email: "c@x.com", Role: RoleTeamMember, CreatedAt: t0},
		{ID: "1", Name: "Alice", Email: "a@x.com", Role: RoleAdmin, CreatedAt: t0},
		{ID: "2", Name: "bob", Email: "b@x.com", Role: RoleTeamMember, CreatedAt: t0.Add(time.Hour)},
	}
	SortIdentities(roster, IdentitySortName, SortAsc)
	assert.Equal(t, []string{"1", "2", "3"}, []string{roster[0].ID, roster[1].ID, roster[2].ID})

	SortIdentities(roster, IdentitySortCreatedAt, SortDesc)
	assert.Equal(t, []string{"2", "3", "1"}, []string{roster[0].ID, roster[1].ID, roster[2].ID})

	again := slices.Clone(roster)
	SortIdentities(again, IdentitySortCreatedAt, SortDesc)
	assert.Equal(t, roster, again)
}

func TestParseSortDirection(t *testing.T) {
	assert.Equal(t, SortAsc, ParseSortDirection("ASC"))
	assert.Equal(t, SortDesc, ParseSortDirection(""))
	assert.Equal(t, SortDesc, ParseSortDirection("bogus"))
}
