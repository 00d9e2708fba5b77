package ledger

import (
	"fmt"
	"strings"
	"time"
)

// PayoutUpdate sets the payout status of one party on one installment
type PayoutUpdate struct {
	ID     string `json:"id" binding:"required"`
	Party  Party  `json:"party" binding:"required"`
	Status Status `json:"status" binding:"required"`
}

// SetClientStatus toggles the client payment status of the installments between
// Pending and Paid. Cancelled and chargeback rows are blocked.
func SetClientStatus(ids []string, status Status, book *Book) (int, []LogEntry) {
	log := &logBuffer{}
	if status != StatusPending && status != StatusPaid {
		log.add("batch", LogError, fmt.Sprintf("client status must be %s or %s", StatusPending, StatusPaid))
		return 0, log.entries
	}
	changed := 0
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		inst, ok := book.Get(id)
		switch {
		case !ok:
			log.add(id, LogIgnored, "installment not found")
		case inst.IsChargeback() || inst.ClientStatus == StatusCancelled:
			log.add(id, LogBlocked, fmt.Sprintf("client status is %s", inst.ClientStatus))
		case inst.ClientStatus == status:
			log.add(id, LogIgnored, fmt.Sprintf("already %s", status))
		default:
			old := inst.ClientStatus
			inst.ClientStatus = status
			inst.UpdatedAt = time.Now()
			book.Touch(id)
			changed++
			log.add(id, LogSuccess, fmt.Sprintf("%s: %s -> %s", ColClientStatus, old, status))
		}
	}
	return changed, log.entries
}

// SettlePayouts applies commission payout statuses. A party that is not linked to the
// installment is exempt and cannot be paid.
func SettlePayouts(updates []PayoutUpdate, book *Book) (int, []LogEntry) {
	log := &logBuffer{}
	changed := 0
	for _, u := range updates {
		id := strings.TrimSpace(u.ID)
		inst, ok := book.Get(id)
		if !ok {
			log.add(id, LogIgnored, "installment not found")
			continue
		}
		party, err := ParseParty(string(u.Party))
		if err != nil {
			log.add(id, LogError, err.Error())
			continue
		}
		status, err := ParseStatus(string(u.Status))
		if err != nil || (status != StatusPaid && status != StatusPending) {
			log.add(id, LogError, fmt.Sprintf("invalid payout status %q", u.Status))
			continue
		}
		current := inst.PartyStatus(party)
		switch {
		case current == StatusExempt || inst.PartyID(party) == "":
			log.add(id, LogBlocked, fmt.Sprintf("%s payout is exempt", party))
		case current == status:
			log.add(id, LogIgnored, fmt.Sprintf("%s payout already %s", party, status))
		default:
			inst.SetPartyStatus(party, status)
			inst.UpdatedAt = time.Now()
			book.Touch(id)
			changed++
			log.add(id, LogSuccess, fmt.Sprintf("%s payout: %s -> %s", party, current, status))
		}
	}
	return changed, log.entries
}
