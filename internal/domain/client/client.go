package client

import (
	"strconv"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
)

// Client is a buyer of consortium quotas
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AutoCreatedNote marks clients synthesized during sales intake
const AutoCreatedNote = "Auto"

// NewClient creates a client with the given id and name
func NewClient(id, name string) (*Client, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT_ID", "Client ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT_NAME", "Client name cannot be empty")
	}
	now := time.Now()
	return &Client{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// UpdateContact replaces the contact data
func (c *Client) UpdateContact(email, phone, notes string) {
	c.Email = strings.TrimSpace(email)
	c.Phone = strings.TrimSpace(phone)
	c.Notes = notes
	c.UpdatedAt = time.Now()
}

// NextID returns the next sequential id after the highest numeric id in use.
// Non-numeric ids are ignored.
func NextID(ids []string) string {
	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
