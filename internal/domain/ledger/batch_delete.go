package ledger

import (
	"fmt"
	"strings"
)

// DeleteResult lists the ids cleared for deletion and the per-id log
type DeleteResult struct {
	IDs []string
	Log []LogEntry
}

// Deleter decides which installments may be removed
type Deleter struct{}

// NewDeleter creates a deleter
func NewDeleter() *Deleter {
	return &Deleter{}
}

// Plan clears an id for deletion only when neither its receipt nor any payout has
// been paid. found holds the installments that exist among ids.
func (d *Deleter) Plan(ids []string, found *Book) DeleteResult {
	var res DeleteResult
	log := &logBuffer{}
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			log.add(id, LogIgnored, "duplicate id in batch")
			continue
		}
		seen[id] = struct{}{}

		inst, ok := found.Get(id)
		if !ok {
			log.add(id, LogIgnored, "installment not found")
			continue
		}
		if inst.HasPaidFlow() {
			log.add(id, LogBlocked, fmt.Sprintf("has paid amounts (receipt %s, salesperson %s, supervisor %s, manager %s)",
				inst.ReceiptStatus, inst.SalespersonStatus, inst.SupervisorStatus, inst.ManagerStatus))
			continue
		}
		res.IDs = append(res.IDs, id)
		log.add(id, LogSuccess, "deleted")
	}
	res.Log = log.entries
	return res
}
