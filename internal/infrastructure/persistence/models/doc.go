// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Table and column names keep the Portuguese names of the back office spreadsheets
// (usuarios, clientes, regras_comissao, financeiro_mestre) so exports and batch edit
// headers line up with the stored columns.
//
// Structure:
// - base.go: shared timestamp fields
// - identity.go: users and their commission rates
// - client.go: client directory
// - catalog.go: commission rule sets
// - ledger.go: installments
// - proposal.go: draft sales
// - batch_run.go: processed batch history
package models
