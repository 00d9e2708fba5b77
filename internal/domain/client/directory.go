package client

import (
	"strconv"

	"github.com/consorcio/backend/internal/domain/shared/textnorm"
)

// Directory resolves clients by id or by name and hands out sequential ids for new ones.
// It is mutated by intake when it synthesizes clients, so one instance serves one batch.
type Directory struct {
	byID   map[string]*Client
	byName map[string]*Client
	next   int
}

// NewDirectory indexes the given clients
func NewDirectory(clients []Client) *Directory {
	d := &Directory{
		byID:   make(map[string]*Client, len(clients)),
		byName: make(map[string]*Client, len(clients)),
	}
	ids := make([]string, 0, len(clients))
	for i := range clients {
		c := clients[i]
		d.byID[c.ID] = &c
		if key := textnorm.Key(c.Name); key != "" {
			if _, dup := d.byName[key]; !dup {
				d.byName[key] = &c
			}
		}
		ids = append(ids, c.ID)
	}
	d.next, _ = strconv.Atoi(NextID(ids))
	return d
}

// Get returns the client with the id
func (d *Directory) Get(id string) (*Client, bool) {
	c, ok := d.byID[id]
	return c, ok
}

// FindByName matches a name case-insensitively, ignoring accents and surrounding spaces
func (d *Directory) FindByName(name string) (*Client, bool) {
	c, ok := d.byName[textnorm.Key(name)]
	return c, ok
}

// Resolve matches by id first, then by name. When neither matches it synthesizes a
// client with the next sequential id and reports created=true.
func (d *Directory) Resolve(id, name string) (c *Client, created bool, err error) {
	if id != "" {
		if c, ok := d.Get(id); ok {
			return c, false, nil
		}
	}
	if c, ok := d.FindByName(name); ok {
		return c, false, nil
	}

	c, err = NewClient(strconv.Itoa(d.next), name)
	if err != nil {
		return nil, false, err
	}
	c.Notes = AutoCreatedNote
	d.next++
	d.byID[c.ID] = c
	d.byName[textnorm.Key(c.Name)] = c
	return c, true, nil
}
