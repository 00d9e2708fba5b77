package importapp

import (
	"fmt"
	"strings"

	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/domain/shared/valueobject"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/shopspring/decimal"
)

// rowReader reads typed cells from one row and keeps the first parse error
type rowReader struct {
	row *spreadsheet.Row
	err error
}

func (r *rowReader) ref() string {
	return fmt.Sprintf("row %d", r.row.Line)
}

func (r *rowReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *rowReader) text(col string) string {
	return r.row.Get(col)
}

// code reads an identifier, dropping the ".0" suffix of numbers exported by spreadsheets
func (r *rowReader) code(col string) string {
	return ledger.NormalizeCode(r.row.Get(col))
}

func (r *rowReader) required(col string) string {
	v := r.row.Get(col)
	if v == "" {
		r.fail("%s is required", col)
	}
	return v
}

func (r *rowReader) amount(col string) decimal.Decimal {
	raw := r.required(col)
	if raw == "" {
		return decimal.Zero
	}
	d, err := valueobject.ParseAmount(raw)
	if err != nil {
		r.fail("%s: invalid amount %q", col, raw)
	}
	return d
}

// optionalAmount returns zero and false for blank cells
func (r *rowReader) optionalAmount(col string) (decimal.Decimal, bool) {
	if !r.row.Has(col) {
		return decimal.Zero, false
	}
	return r.amount(col), true
}

func (r *rowReader) integer(col string) int {
	raw := r.required(col)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil || !d.IsInteger() {
		r.fail("%s: invalid whole number %q", col, raw)
		return 0
	}
	return int(d.IntPart())
}

// optionalInteger returns fallback for blank cells
func (r *rowReader) optionalInteger(col string, fallback int) int {
	if !r.row.Has(col) {
		return fallback
	}
	return r.integer(col)
}

func (r *rowReader) rejected() ledger.LogEntry {
	return ledger.LogEntry{Ref: r.ref(), Status: ledger.LogError, Detail: r.err.Error()}
}

func missingColumns(sheet *spreadsheet.Sheet, required ...string) error {
	if err := sheet.RequireHeaders(required...); err != nil {
		return shared.NewDomainError("INVALID_FILE", err.Error())
	}
	return nil
}

func requireOneOf(sheet *spreadsheet.Sheet, cols ...string) error {
	for _, c := range cols {
		if sheet.HasHeader(c) {
			return nil
		}
	}
	return shared.NewDomainError("INVALID_FILE", "missing required columns: one of "+strings.Join(cols, ", "))
}

// ParseSales maps a sales sheet to generator rows. The product is named by tipo_cota
// or by the catalog table code in id_tabela; the client by name, id or both.
func ParseSales(sheet *spreadsheet.Sheet, defaultDueDay int) (ledgerapp.BatchInput[ledger.SaleInput], error) {
	var in ledgerapp.BatchInput[ledger.SaleInput]
	if err := missingColumns(sheet, colSalesperson, colManager, colGroup, colQuota, colCredit, colSaleDate); err != nil {
		return in, err
	}
	if err := requireOneOf(sheet, colProductType, colTableCode); err != nil {
		return in, err
	}
	if err := requireOneOf(sheet, colClient, colClientID); err != nil {
		return in, err
	}

	for _, row := range sheet.Rows {
		r := &rowReader{row: row}
		sale := ledger.SaleInput{
			Ref:           r.ref(),
			ClientID:      r.code(colClientID),
			ClientName:    r.text(colClient),
			SalespersonID: r.code(colSalesperson),
			SupervisorID:  r.code(colSupervisor),
			ManagerID:     r.code(colManager),
			ProductType:   r.text(colProductType),
			TableCode:     r.code(colTableCode),
			Group:         ledger.NormalizeCode(r.required(colGroup)),
			Quota:         ledger.NormalizeCode(r.required(colQuota)),
			Credit:        r.amount(colCredit),
			DueDay:        r.optionalInteger(colDueDay, defaultDueDay),
			Term:          r.optionalInteger(colTerm, 0),
		}
		if sale.ClientID == "" && sale.ClientName == "" {
			r.fail("%s or %s is required", colClient, colClientID)
		}
		if sale.ProductType == "" && sale.TableCode == "" {
			r.fail("%s or %s is required", colProductType, colTableCode)
		}
		if raw := r.required(colSaleDate); raw != "" {
			d, err := ledger.ParseDate(raw)
			if err != nil {
				r.fail("%s: %v", colSaleDate, err)
			}
			sale.SaleDate = d
		}
		if sale.DueDay < 1 || sale.DueDay > 31 {
			r.fail("%s must be between 1 and 31", colDueDay)
		}
		if fee, ok := r.optionalAmount(colAdminFee); ok {
			sale.AdminFee = &fee
		}
		sale.FirstAmount, _ = r.optionalAmount(colFirstAmount)
		sale.LevelAmount, _ = r.optionalAmount(colLevelAmount)

		if r.err != nil {
			in.Rejected = append(in.Rejected, r.rejected())
			continue
		}
		in.Rows = append(in.Rows, sale)
	}
	return in, nil
}

// ParseStatement maps an administrator payment statement to reconciliation rows
func ParseStatement(sheet *spreadsheet.Sheet) (ledgerapp.BatchInput[ledger.StatementRow], error) {
	var in ledgerapp.BatchInput[ledger.StatementRow]
	if err := missingColumns(sheet, colGroup, colQuota, colPaidAmount); err != nil {
		return in, err
	}
	for _, row := range sheet.Rows {
		r := &rowReader{row: row}
		st := ledger.StatementRow{
			Ref:    r.ref(),
			Group:  ledger.NormalizeCode(r.required(colGroup)),
			Quota:  ledger.NormalizeCode(r.required(colQuota)),
			Amount: r.amount(colPaidAmount),
		}
		if raw := r.text(colInstallment); raw != "" {
			st.InstallmentNumber = ledger.ParseInstallmentNumber(raw)
			if st.InstallmentNumber < 1 || st.InstallmentNumber > ledger.InstallmentCount {
				r.fail("%s: invalid installment %q", colInstallment, raw)
			}
		}
		if r.err != nil {
			in.Rejected = append(in.Rejected, r.rejected())
			continue
		}
		in.Rows = append(in.Rows, st)
	}
	return in, nil
}

// ParseCancellations maps a cancellation sheet to cancel requests
func ParseCancellations(sheet *spreadsheet.Sheet) (ledgerapp.BatchInput[ledger.CancelRequest], error) {
	var in ledgerapp.BatchInput[ledger.CancelRequest]
	if err := missingColumns(sheet, colSaleID, colCancelCutoff); err != nil {
		return in, err
	}
	for _, row := range sheet.Rows {
		r := &rowReader{row: row}
		req := ledger.CancelRequest{
			Ref:    r.ref(),
			SaleID: r.required(colSaleID),
			Cutoff: r.integer(colCancelCutoff),
		}
		if r.err != nil {
			in.Rejected = append(in.Rejected, r.rejected())
			continue
		}
		in.Rows = append(in.Rows, req)
	}
	return in, nil
}

// ParseEdits maps a batch edit sheet to sparse updates. Every column other than the
// id is a candidate field; blank cells leave the field alone.
func ParseEdits(sheet *spreadsheet.Sheet) (ledgerapp.BatchInput[ledger.EditRow], error) {
	var in ledgerapp.BatchInput[ledger.EditRow]
	if err := missingColumns(sheet, colEntryID); err != nil {
		return in, err
	}
	for _, row := range sheet.Rows {
		r := &rowReader{row: row}
		edit := ledger.EditRow{Ref: r.ref(), ID: r.required(colEntryID)}
		if r.err != nil {
			in.Rejected = append(in.Rejected, r.rejected())
			continue
		}
		for _, col := range sheet.Headers {
			if col == colEntryID || !row.Has(col) {
				continue
			}
			edit.Values = append(edit.Values, ledger.FieldValue{Column: col, Value: row.Get(col)})
		}
		in.Rows = append(in.Rows, edit)
	}
	return in, nil
}

// ParseDeletes reads installment ids from id_lancamento, or from the first column
// when the sheet has no such header
func ParseDeletes(sheet *spreadsheet.Sheet) (ledgerapp.BatchInput[string], error) {
	var in ledgerapp.BatchInput[string]
	if len(sheet.Headers) == 0 {
		return in, shared.NewDomainError("INVALID_FILE", "file has no columns")
	}
	col := colEntryID
	if !sheet.HasHeader(col) {
		col = sheet.Headers[0]
	}
	for _, row := range sheet.Rows {
		if id := row.Get(col); id != "" {
			in.Rows = append(in.Rows, id)
		}
	}
	return in, nil
}

// ParseRules maps a rules catalog sheet to rule sets
func ParseRules(sheet *spreadsheet.Sheet) ([]catalog.RuleSet, []ledger.LogEntry, error) {
	if err := missingColumns(sheet, colProductType, colAdministrator, colPercentages); err != nil {
		return nil, nil, err
	}
	var (
		rules    []catalog.RuleSet
		rejected []ledger.LogEntry
	)
	for _, row := range sheet.Rows {
		r := &rowReader{row: row}
		rule := catalog.RuleSet{
			ProductType:         r.required(colProductType),
			Administrator:       r.required(colAdministrator),
			TableCode:           r.code(colTableCode),
			Credit:              r.rangeOf(colMinCredit, colMaxCredit),
			TermMonths:          r.rangeOf(colMinTerm, colMaxTerm),
			AdminFee:            r.rangeOf(colMinAdminFee, colMaxAdminFee),
			AdvanceFeeBasis:     catalog.AdvanceFeeBasis(r.text(colAdvanceFeeBasis)),
			Readjustment:        catalog.ReadjustmentIndex(r.text(colReadjustment)),
			Contemplation:       catalog.ParseContemplationModes(r.text(colContemplation)),
			ChargebackThreshold: r.optionalInteger(colChargebackCutoff, 0),
		}
		rule.ReserveFund, _ = r.optionalAmount(colReserveFund)
		rule.EmbeddedBidLimit, _ = r.optionalAmount(colEmbeddedBid)
		rule.AdvanceFee, _ = r.optionalAmount(colAdvanceFee)
		rule.ChargebackPct, _ = r.optionalAmount(colChargebackPct)
		if raw := r.required(colPercentages); raw != "" {
			pcts, err := catalog.ParsePercentages(raw)
			if err != nil {
				r.fail("%s: %v", colPercentages, err)
			}
			rule.Percentages = pcts
		}
		if r.err != nil {
			rejected = append(rejected, r.rejected())
			continue
		}
		rules = append(rules, rule)
	}
	return rules, rejected, nil
}

func (r *rowReader) rangeOf(minCol, maxCol string) catalog.Range {
	lo, _ := r.optionalAmount(minCol)
	hi, _ := r.optionalAmount(maxCol)
	return catalog.Range{Min: lo, Max: hi}
}
