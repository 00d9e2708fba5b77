package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultDueDay is the billing day used when a sale row does not carry one
const DefaultDueDay = 15

// IDSet is a set of installment ids
type IDSet map[string]struct{}

// NewIDSet builds a set from ids
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts the id
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// SaleInput is one row of a sales spreadsheet or one approved proposal
type SaleInput struct {
	Ref string

	ClientID      string
	ClientName    string
	SalespersonID string
	SupervisorID  string
	ManagerID     string

	ProductType string
	TableCode   string
	Group       string
	Quota       string

	Credit   decimal.Decimal
	SaleDate time.Time
	DueDay   int

	// Optional overrides, applied when positive
	Term        int
	AdminFee    *decimal.Decimal
	FirstAmount decimal.Decimal
	LevelAmount decimal.Decimal
}

// GenerateInput carries the rows and the snapshots the generator resolves against
type GenerateInput struct {
	Sales    []SaleInput
	Catalog  *catalog.Catalog
	Users    *identity.Directory
	Clients  *client.Directory
	Existing IDSet
}

// GenerateResult is the outcome of one generator run
type GenerateResult struct {
	Installments []Installment
	NewClients   []client.Client
	Log          []LogEntry
	Created      int
	Ignored      int
	FailedRows   int
}

// Report converts the result into a batch report counting rows
func (r *GenerateResult) Report(processed int) BatchReport {
	return BatchReport{
		Operation: "intake",
		Processed: processed,
		Succeeded: processed - r.FailedRows,
		Log:       r.Log,
	}
}

// CandidateIDs lists every installment id the rows could produce, so callers can
// load the existing subset before generating.
func CandidateIDs(sales []SaleInput, cat *catalog.Catalog) []string {
	ids := make([]string, 0, len(sales)*(InstallmentCount+1))
	for _, s := range sales {
		rule, ok := cat.Resolve(s.ProductType, s.TableCode)
		if !ok {
			continue
		}
		saleID := SaleID(rule.Administrator, NormalizeCode(s.Group), NormalizeCode(s.Quota))
		for n := 1; n <= InstallmentCount; n++ {
			ids = append(ids, InstallmentID(saleID, n))
		}
	}
	return ids
}

// Generator expands sale rows into installment schedules with their commission split
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a generator
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Generate never fails as a whole: every row yields at least one log line and
// failed rows are skipped. Existing is updated with the ids produced.
func (g *Generator) Generate(in GenerateInput) GenerateResult {
	var res GenerateResult
	if in.Existing == nil {
		in.Existing = IDSet{}
	}
	log := &logBuffer{}
	for i := range in.Sales {
		s := in.Sales[i]
		ref := s.Ref
		if ref == "" {
			ref = fmt.Sprintf("row %d", i+1)
		}
		if !g.generateRow(&res, log, ref, s, in) {
			res.FailedRows++
		}
	}
	res.Log = log.entries
	return res
}

type resolvedSale struct {
	rule        *catalog.RuleSet
	salesperson *identity.User
	supervisor  string
	manager     string
	term        int
	fee         decimal.Decimal
	warnings    []string
}

func (g *Generator) resolve(s SaleInput, in GenerateInput) (*resolvedSale, error) {
	rule, ok := in.Catalog.Resolve(s.ProductType, s.TableCode)
	if !ok {
		code := s.ProductType
		if code == "" {
			code = s.TableCode
		}
		return nil, fmt.Errorf("product not found: %q", code)
	}
	sp, ok := in.Users.Get(s.SalespersonID)
	if !ok {
		return nil, fmt.Errorf("salesperson %q not found", s.SalespersonID)
	}

	r := &resolvedSale{rule: rule, salesperson: sp, supervisor: sp.SupervisorID, manager: sp.ManagerID}
	if s.SupervisorID != "" {
		if _, ok := in.Users.Get(s.SupervisorID); !ok {
			return nil, fmt.Errorf("supervisor %q not found", s.SupervisorID)
		}
		r.supervisor = s.SupervisorID
	}
	if s.ManagerID != "" {
		if _, ok := in.Users.Get(s.ManagerID); !ok {
			return nil, fmt.Errorf("manager %q not found", s.ManagerID)
		}
		r.manager = s.ManagerID
	}

	if strings.TrimSpace(NormalizeCode(s.Group)) == "" || NormalizeCode(s.Quota) == "" {
		return nil, fmt.Errorf("group and quota are required")
	}
	if !s.Credit.IsPositive() {
		return nil, fmt.Errorf("credit must be positive")
	}
	if s.SaleDate.IsZero() {
		return nil, fmt.Errorf("sale date is required")
	}

	r.term = s.Term
	if r.term <= 0 {
		r.term = int(rule.TermMonths.Max.IntPart())
	}
	if r.term <= 0 {
		return nil, fmt.Errorf("term is not set and product %s has no maximum term", rule.ProductType)
	}
	r.fee = rule.AdminFee.Max
	if s.AdminFee != nil {
		r.fee = *s.AdminFee
	}

	if !rule.Credit.Contains(s.Credit) {
		r.warnings = append(r.warnings, fmt.Sprintf("credit %s outside %s..%s", s.Credit.StringFixed(2), rule.Credit.Min, rule.Credit.Max))
	}
	if !rule.TermMonths.Contains(decimal.NewFromInt(int64(r.term))) {
		r.warnings = append(r.warnings, fmt.Sprintf("term %d outside %s..%s", r.term, rule.TermMonths.Min, rule.TermMonths.Max))
	}
	if !rule.AdminFee.Contains(r.fee) {
		r.warnings = append(r.warnings, fmt.Sprintf("fee %s%% outside %s..%s", r.fee, rule.AdminFee.Min, rule.AdminFee.Max))
	}
	return r, nil
}

// Amounts is the client-facing cash flow of a sale
type Amounts struct {
	First decimal.Decimal
	Level decimal.Decimal
}

// ComputeAmounts applies the fee, reserve fund and advance fee of the rule to the credit
func ComputeAmounts(credit decimal.Decimal, term int, feePct decimal.Decimal, rule *catalog.RuleSet) Amounts {
	fee := valueobject.PercentOf(credit, feePct)
	reserve := valueobject.PercentOf(credit, rule.ReserveFund)
	advance := valueobject.PercentOf(credit, rule.AdvanceFee)
	principal := credit.Add(fee).Add(reserve).Sub(advance)
	level := principal.Div(decimal.NewFromInt(int64(term)))
	return Amounts{
		First: valueobject.RoundMoney(level.Add(advance)),
		Level: valueobject.RoundMoney(level),
	}
}

// DueDate returns the due date of installment n. The first installment is due on
// the sale date; the rest move monthly, one month later when the sale happened on
// or after the due day.
func DueDate(saleDate time.Time, dueDay, n int) time.Time {
	if n <= 1 {
		return saleDate
	}
	if dueDay <= 0 {
		dueDay = DefaultDueDay
	}
	shift := 0
	if saleDate.Day() >= dueDay {
		shift = 1
	}
	return addMonths(saleDate, n-1+shift)
}

// addMonths moves the date by months, clamping the day to the end of the target month
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (g *Generator) generateRow(res *GenerateResult, log *logBuffer, ref string, s SaleInput, in GenerateInput) bool {
	r, err := g.resolve(s, in)
	if err != nil {
		log.add(ref, LogError, err.Error())
		return false
	}

	group, quota := NormalizeCode(s.Group), NormalizeCode(s.Quota)
	saleID := SaleID(r.rule.Administrator, group, quota)

	pending := make([]int, 0, InstallmentCount)
	for n := 1; n <= InstallmentCount; n++ {
		if !in.Existing.Has(InstallmentID(saleID, n)) {
			pending = append(pending, n)
		}
	}
	ignored := InstallmentCount - len(pending)
	res.Ignored += ignored
	if len(pending) == 0 {
		log.add(ref, LogIgnored, fmt.Sprintf("%s already registered, %d duplicates ignored", saleID, ignored))
		return true
	}

	cl, created, err := in.Clients.Resolve(s.ClientID, s.ClientName)
	if err != nil {
		log.add(ref, LogError, fmt.Sprintf("client: %v", err))
		return false
	}
	if created {
		res.NewClients = append(res.NewClients, *cl)
	}

	amounts := ComputeAmounts(s.Credit, r.term, r.fee, r.rule)
	if s.FirstAmount.IsPositive() {
		amounts.First = valueobject.RoundMoney(s.FirstAmount)
	}
	if s.LevelAmount.IsPositive() {
		amounts.Level = valueobject.RoundMoney(s.LevelAmount)
	}

	now := g.now()
	for _, n := range pending {
		inst := Installment{
			ID:            InstallmentID(saleID, n),
			SaleID:        saleID,
			Administrator: r.rule.Administrator,
			Group:         group,
			Quota:         quota,
			ProductType:   r.rule.ProductType,
			Label:         Label(n),
			DueDate:       DueDate(s.SaleDate, s.DueDay, n),
			ClientID:      cl.ID,
			ClientName:    cl.Name,
			ClientAmount:  amounts.Level,
			ClientStatus:  StatusPending,
			ReceiptStatus: StatusPending,
			Receivable:    valueobject.RoundMoney(valueobject.PercentOf(s.Credit, r.rule.PercentageAt(n))),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if n == 1 {
			inst.ClientAmount = amounts.First
			inst.ClientStatus = StatusPaid
		}
		inst.setParty(PartySalesperson, r.salesperson.ID, r.salesperson.Name)
		inst.setParty(PartySupervisor, r.supervisor, in.Users.Name(r.supervisor))
		inst.setParty(PartyManager, r.manager, in.Users.Name(r.manager))
		inst.RecomputePayouts(in.Users)

		in.Existing.Add(inst.ID)
		res.Installments = append(res.Installments, inst)
		res.Created++
	}

	detail := fmt.Sprintf("%s: %d installments created", saleID, len(pending))
	if ignored > 0 {
		detail += fmt.Sprintf(", %d duplicates ignored", ignored)
	}
	if created {
		detail += fmt.Sprintf(", new client %s created", cl.ID)
	}
	if len(r.warnings) > 0 {
		log.add(ref, LogWarning, detail+"; "+strings.Join(r.warnings, "; "))
	} else {
		log.add(ref, LogSuccess, detail)
	}
	return true
}
