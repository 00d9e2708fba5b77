package persistence

import (
	"errors"

	"github.com/consorcio/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inChunkSize bounds the number of bind parameters of IN lists
const inChunkSize = 500

// forUpdate adds FOR UPDATE on dialects with row-level locking
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// chunks splits ids into IN-list sized slices
func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > inChunkSize {
		out = append(out, ids[:inChunkSize])
		ids = ids[inChunkSize:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// notFound maps gorm.ErrRecordNotFound to the domain sentinel
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
