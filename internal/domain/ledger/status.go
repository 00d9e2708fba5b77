package ledger

import (
	"fmt"
	"strings"
)

// Status is the state of one money flow of an installment. Values match the stored strings.
type Status string

const (
	StatusPending    Status = "Pendente"
	StatusPaid       Status = "Pago"
	StatusCancelled  Status = "Cancelado"
	StatusExempt     Status = "Isento"
	StatusChargeback Status = "Estorno"
)

// ParseStatus accepts stored values and their English names, case-insensitively.
// Unknown values are rejected so they never reach the database.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendente", "pending":
		return StatusPending, nil
	case "pago", "paid":
		return StatusPaid, nil
	case "cancelado", "cancelled", "canceled":
		return StatusCancelled, nil
	case "isento", "exempt":
		return StatusExempt, nil
	case "estorno", "chargeback":
		return StatusChargeback, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsValid checks if the status is one of the stored values
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusExempt, StatusChargeback:
		return true
	}
	return false
}

// Party is one of the commissioned roles of a sale
type Party string

const (
	PartySalesperson Party = "Vendedor"
	PartySupervisor  Party = "Supervisor"
	PartyManager     Party = "Gerente"
)

// Parties lists the commissioned roles in payout order
var Parties = []Party{PartySalesperson, PartySupervisor, PartyManager}

// ParseParty accepts the stored value or its English name
func ParseParty(s string) (Party, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vendedor", "salesperson":
		return PartySalesperson, nil
	case "supervisor":
		return PartySupervisor, nil
	case "gerente", "manager":
		return PartyManager, nil
	}
	return "", fmt.Errorf("unknown party %q", s)
}
