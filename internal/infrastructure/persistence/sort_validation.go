package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InstallmentSortFields contains allowed sort fields for installments
var InstallmentSortFields = map[string]bool{
	"id_lancamento":          true,
	"id_venda":               true,
	"data_previsao":          true,
	"data_real_recebimento":  true,
	"cliente":                true,
	"vendedor":               true,
	"grupo":                  true,
	"cota":                   true,
	"tipo_cota":              true,
	"receber_administradora": true,
	"liquido_caixa":          true,
	"status_recebimento":     true,
	"status_pgto_cliente":    true,
	"created_at":             true,
	"updated_at":             true,
}

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"id_cliente":    true,
	"nome_completo": true,
	"email":         true,
	"created_at":    true,
	"updated_at":    true,
}

// ProposalSortFields contains allowed sort fields for proposals
var ProposalSortFields = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"submitted_at":  true,
	"reviewed_at":   true,
	"status":        true,
	"cliente":       true,
	"valor_credito": true,
	"data_venda":    true,
}

// BatchRunSortFields contains allowed sort fields for batch runs
var BatchRunSortFields = map[string]bool{
	"started_at":  true,
	"finished_at": true,
	"operation":   true,
	"file_name":   true,
	"processed":   true,
	"errors":      true,
	"status":      true,
}
