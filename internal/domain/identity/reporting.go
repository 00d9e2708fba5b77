package identity

import (
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
)

// AssignSupervisor links the user to a supervisor and derives the manager from the
// supervisor's own manager. A nil supervisor clears the link and keeps the manager.
func (u *User) AssignSupervisor(supervisor *User) error {
	if supervisor == nil {
		u.SupervisorID = ""
		u.UpdatedAt = time.Now()
		return nil
	}
	if supervisor.ID == u.ID {
		return shared.NewDomainError("INVALID_REPORTING_LINK", "A user cannot supervise themselves")
	}
	if supervisor.SupervisorID == u.ID {
		return shared.NewDomainError("INVALID_REPORTING_LINK", "Reporting links cannot form a cycle")
	}
	u.SupervisorID = supervisor.ID
	if supervisor.ManagerID != "" {
		u.ManagerID = supervisor.ManagerID
	}
	u.UpdatedAt = time.Now()
	return nil
}

// AssignManager sets the manager link directly. An empty id clears it.
func (u *User) AssignManager(managerID string) error {
	if managerID != "" && managerID == u.ID {
		return shared.NewDomainError("INVALID_REPORTING_LINK", "A user cannot manage themselves")
	}
	u.ManagerID = managerID
	u.UpdatedAt = time.Now()
	return nil
}

// CascadeManager re-points every direct subordinate of supervisor to the supervisor's
// current manager and returns the users that changed.
func CascadeManager(supervisor *User, subordinates []*User) []*User {
	var changed []*User
	now := time.Now()
	for _, sub := range subordinates {
		if sub.SupervisorID != supervisor.ID || sub.ID == supervisor.ID {
			continue
		}
		if sub.ManagerID == supervisor.ManagerID {
			continue
		}
		sub.ManagerID = supervisor.ManagerID
		sub.UpdatedAt = now
		changed = append(changed, sub)
	}
	return changed
}
