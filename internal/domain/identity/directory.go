package identity

import "github.com/shopspring/decimal"

// Directory is a read-only snapshot of users indexed by id
type Directory struct {
	byID map[string]*User
}

// NewDirectory indexes the given users
func NewDirectory(users []User) *Directory {
	d := &Directory{byID: make(map[string]*User, len(users))}
	for i := range users {
		u := users[i]
		d.byID[u.ID] = &u
	}
	return d
}

// Get returns the user with the id
func (d *Directory) Get(id string) (*User, bool) {
	if id == "" {
		return nil, false
	}
	u, ok := d.byID[id]
	return u, ok
}

// Name returns the display name of the user, or empty when unknown
func (d *Directory) Name(id string) string {
	if u, ok := d.Get(id); ok {
		return u.Name
	}
	return ""
}

// SalespersonRate returns the salesperson rate of the user, zero when unknown
func (d *Directory) SalespersonRate(id string) decimal.Decimal {
	if u, ok := d.Get(id); ok {
		return u.Rates.Salesperson
	}
	return decimal.Zero
}

// SupervisorRate returns the supervisor rate of the user, zero when unknown
func (d *Directory) SupervisorRate(id string) decimal.Decimal {
	if u, ok := d.Get(id); ok {
		return u.Rates.Supervisor
	}
	return decimal.Zero
}

// ManagerRate returns the manager rate of the user, zero when unknown
func (d *Directory) ManagerRate(id string) decimal.Decimal {
	if u, ok := d.Get(id); ok {
		return u.Rates.Manager
	}
	return decimal.Zero
}
