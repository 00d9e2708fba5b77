package ledger

import (
	"fmt"
	"time"
)

// AlertWindowDays is how far ahead a pending installment counts as due soon
const AlertWindowDays = 7

// AlertLevel classifies a due alert for display
type AlertLevel string

const (
	AlertOverdue  AlertLevel = "overdue"
	AlertDueToday AlertLevel = "due_today"
	AlertDueSoon  AlertLevel = "due_soon"
	AlertOnTime   AlertLevel = "on_time"
)

// DueAlert describes how close an installment is to its due date
type DueAlert struct {
	Level AlertLevel `json:"level"`
	Days  int        `json:"days"`
	Text  string     `json:"text"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AlertFor computes the due alert of a date relative to today
func AlertFor(due, today time.Time) DueAlert {
	days := int(truncateDay(due).Sub(truncateDay(today)).Hours() / 24)
	switch {
	case days < 0:
		return DueAlert{Level: AlertOverdue, Days: -days, Text: fmt.Sprintf("Overdue (%d days)", -days)}
	case days == 0:
		return DueAlert{Level: AlertDueToday, Text: "Due today"}
	case days <= AlertWindowDays:
		return DueAlert{Level: AlertDueSoon, Days: days, Text: fmt.Sprintf("Due in %d days", days)}
	}
	return DueAlert{Level: AlertOnTime, Days: days, Text: "On time"}
}

// Alert returns the due alert for client-pending installments, nil otherwise
func (i *Installment) Alert(today time.Time) *DueAlert {
	if i.ClientStatus != StatusPending || i.DueDate.IsZero() {
		return nil
	}
	a := AlertFor(i.DueDate, today)
	return &a
}
