package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"planora/internal/models"
)

// Render turns a snapshot into the system prompt for its agent type. Pure
// string substitution: identical snapshots produce byte-identical prompts.
func Render(agentType models.AgentType, snap *Snapshot) string {
	var b strings.Builder
	switch agentType {
	case models.AgentClient:
		b.WriteString("You are Planora's event planning assistant, helping a client plan their event. ")
		b.WriteString("Ground every answer in the event context below. Keep answers concise and practical.\n\n")
	case models.AgentVenueGeneral:
		b.WriteString("You are Planora's venue operations assistant, helping a venue manager run their venue. ")
		b.WriteString("Ground every answer in the venue context below. Keep answers concise and practical.\n\n")
	case models.AgentVenueEvent:
		b.WriteString("You are Planora's venue coordination assistant, helping a venue manager coordinate one booked event. ")
		b.WriteString("Ground every answer in the venue and event context below. Keep answers concise and practical.\n\n")
	default:
		b.WriteString("You are Planora's assistant.\n\n")
	}

	if snap == nil {
		return b.String()
	}
	if snap.Venue != nil {
		writeVenue(&b, snap.Venue)
	}
	if snap.Event != nil {
		writeEvent(&b, snap.Event)
	}
	if snap.Event != nil {
		writeTasks(&b, snap.Tasks)
		writeGuests(&b, snap.Guests)
		writeMessages(&b, snap.Messages)
	}
	if len(snap.Upcoming) > 0 {
		b.WriteString("Upcoming events at this venue:\n")
		for _, e := range snap.Upcoming {
			fmt.Fprintf(&b, "- %s on %s (%d guests, %s)\n", e.Name, formatDate(e.EventDate), e.GuestCount, e.Status)
		}
		b.WriteString("\n")
	}
	if len(snap.Inquiries) > 0 {
		b.WriteString("Booking inquiries:\n")
		for _, q := range snap.Inquiries {
			fmt.Fprintf(&b, "- %s for %s (%d guests) [%s]\n", q.ContactName, formatDate(q.EventDate), q.GuestCount, q.Status)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeEvent(b *strings.Builder, e *models.Event) {
	fmt.Fprintf(b, "Event: %s\nDate: %s\nExpected guests: %d\nBudget: %.2f\nStatus: %s\n\n",
		e.Name, formatDate(e.EventDate), e.GuestCount, e.BudgetTotal, e.Status)
}

func writeVenue(b *strings.Builder, v *models.Venue) {
	fmt.Fprintf(b, "Venue: %s\nAddress: %s\nCapacity: %d\n", v.Name, v.Address, v.Capacity)
	if v.Description != "" {
		fmt.Fprintf(b, "About: %s\n", v.Description)
	}
	b.WriteString("\n")
}

func writeTasks(b *strings.Builder, tasks []models.Task) {
	if len(tasks) == 0 {
		b.WriteString("Tasks: none yet.\n\n")
		return
	}
	lines := lo.Map(tasks, func(t models.Task, _ int) string {
		line := fmt.Sprintf("- [%s] %s", t.Status, t.Title)
		if t.DueDate != nil {
			line += " (due " + formatDate(*t.DueDate) + ")"
		}
		return line
	})
	fmt.Fprintf(b, "Tasks:\n%s\n\n", strings.Join(lines, "\n"))
}

func writeGuests(b *strings.Builder, g *models.GuestSummary) {
	if g == nil {
		b.WriteString("Guest list: not available.\n\n")
		return
	}
	fmt.Fprintf(b, "Guest list: %d invited, %d confirmed, %d declined, %d pending (%d attendees expected).\n\n",
		g.Total, g.Confirmed, g.Declined, g.Pending, g.PartySize)
}

func writeMessages(b *strings.Builder, msgs []models.EventMessage) {
	if len(msgs) == 0 {
		return
	}
	b.WriteString("Recent messages:\n")
	for _, m := range msgs {
		fmt.Fprintf(b, "- %s: %s\n", m.SenderName, m.Body)
	}
	b.WriteString("\n")
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
