package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Column names of the installment table, shared by spreadsheets and batch edits
const (
	ColID                = "id_lancamento"
	ColSaleID            = "id_venda"
	ColAdministrator     = "administradora"
	ColGroup             = "grupo"
	ColQuota             = "cota"
	ColProductType       = "tipo_cota"
	ColLabel             = "parcela"
	ColDueDate           = "data_previsao"
	ColReceivedAt        = "data_real_recebimento"
	ColReceivedAmount    = "valor_recebido_real"
	ColClientID          = "id_cliente"
	ColClientName        = "cliente"
	ColSalespersonID     = "id_vendedor"
	ColSalespersonName   = "vendedor"
	ColSupervisorID      = "id_supervisor"
	ColSupervisorName    = "supervisor"
	ColManagerID         = "id_gerente"
	ColManagerName       = "gerente"
	ColClientAmount      = "valor_parcela_cliente"
	ColReceivable        = "receber_administradora"
	ColSalespersonPayout = "pagar_vendedor"
	ColSupervisorPayout  = "pagar_supervisor"
	ColManagerPayout     = "pagar_gerente"
	ColNetCash           = "liquido_caixa"
	ColReceiptStatus     = "status_recebimento"
	ColClientStatus      = "status_pgto_cliente"
	ColSalespersonStatus = "status_pgto_vendedor"
	ColSupervisorStatus  = "status_pgto_supervisor"
	ColManagerStatus     = "status_pgto_gerente"
	ColNotes             = "obs"
)

// Columns lists every column in export order
var Columns = []string{
	ColID, ColSaleID, ColAdministrator, ColGroup, ColQuota, ColProductType, ColLabel,
	ColDueDate, ColReceivedAt, ColReceivedAmount,
	ColClientID, ColClientName, ColSalespersonID, ColSalespersonName,
	ColSupervisorID, ColSupervisorName, ColManagerID, ColManagerName,
	ColClientAmount, ColReceivable, ColSalespersonPayout, ColSupervisorPayout, ColManagerPayout, ColNetCash,
	ColReceiptStatus, ColClientStatus, ColSalespersonStatus, ColSupervisorStatus, ColManagerStatus,
	ColNotes,
}

// DateLayout is the date format used in spreadsheets and logs
const DateLayout = "2006-01-02"

// Values renders the installment as column values in Columns order
func (i *Installment) Values() []string {
	out := make([]string, len(Columns))
	for n, col := range Columns {
		out[n] = i.Field(col)
	}
	return out
}

// Field renders one column as text
func (i *Installment) Field(col string) string {
	switch col {
	case ColID:
		return i.ID
	case ColSaleID:
		return i.SaleID
	case ColAdministrator:
		return i.Administrator
	case ColGroup:
		return i.Group
	case ColQuota:
		return i.Quota
	case ColProductType:
		return i.ProductType
	case ColLabel:
		return i.Label
	case ColDueDate:
		return formatDate(&i.DueDate)
	case ColReceivedAt:
		return formatDate(i.ReceivedAt)
	case ColReceivedAmount:
		if !i.ReceivedAmount.Valid {
			return ""
		}
		return i.ReceivedAmount.Decimal.StringFixed(2)
	case ColClientID:
		return i.ClientID
	case ColClientName:
		return i.ClientName
	case ColSalespersonID:
		return i.SalespersonID
	case ColSalespersonName:
		return i.SalespersonName
	case ColSupervisorID:
		return i.SupervisorID
	case ColSupervisorName:
		return i.SupervisorName
	case ColManagerID:
		return i.ManagerID
	case ColManagerName:
		return i.ManagerName
	case ColClientAmount:
		return i.ClientAmount.StringFixed(2)
	case ColReceivable:
		return i.Receivable.StringFixed(2)
	case ColSalespersonPayout:
		return i.SalespersonPayout.StringFixed(2)
	case ColSupervisorPayout:
		return i.SupervisorPayout.StringFixed(2)
	case ColManagerPayout:
		return i.ManagerPayout.StringFixed(2)
	case ColNetCash:
		return i.NetCash.StringFixed(2)
	case ColReceiptStatus:
		return string(i.ReceiptStatus)
	case ColClientStatus:
		return string(i.ClientStatus)
	case ColSalespersonStatus:
		return string(i.SalespersonStatus)
	case ColSupervisorStatus:
		return string(i.SupervisorStatus)
	case ColManagerStatus:
		return string(i.ManagerStatus)
	case ColNotes:
		return i.Notes
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate accepts ISO dates, Brazilian dd/mm/yyyy and timestamps as written by spreadsheets
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, "02/01/2006", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func parseMoney(raw string) (decimal.Decimal, error) {
	d, err := valueobject.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return valueobject.RoundMoney(d), nil
}
