package identity

import "context"

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// Delete deletes a user by ID
	Delete(ctx context.Context, id string) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByUsername finds a user by login
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindAll returns every user ordered by id
	FindAll(ctx context.Context) ([]User, error)

	// FindBySupervisor returns the users directly supervised by the given id
	FindBySupervisor(ctx context.Context, supervisorID string) ([]*User, error)

	// ExistsByIDOrUsername checks if either key is taken
	ExistsByIDOrUsername(ctx context.Context, id, username string) (bool, error)
}
