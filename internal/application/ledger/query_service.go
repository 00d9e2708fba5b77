package ledger

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
)

// ListQuery filters the installment listing
type ListQuery struct {
	shared.Filter
	SaleID        string
	ClientID      string
	SalespersonID string
	ReceiptStatus ledger.Status
	ClientStatus  ledger.Status
	// DueMonth narrows to one month of due dates, formatted as 2006-01
	DueMonth string
}

const maxPageSize = 500

// InstallmentView is an installment with its derived fields
type InstallmentView struct {
	ledger.Installment
	Number int              `json:"number"`
	Alert  *ledger.DueAlert `json:"alert,omitempty"`
}

// CommissionQuery selects the payouts of one party
type CommissionQuery struct {
	Party        ledger.Party
	UserID       string
	ReleasedOnly bool
}

func (s *Service) listFilter(actor identity.Actor, q ListQuery) (ledger.ListFilter, error) {
	f := ledger.ListFilter{
		Filter:        q.Filter,
		SaleID:        strings.TrimSpace(q.SaleID),
		ClientID:      strings.TrimSpace(q.ClientID),
		SalespersonID: strings.TrimSpace(q.SalespersonID),
		ReceiptStatus: q.ReceiptStatus,
		ClientStatus:  q.ClientStatus,
	}
	if actor.Restricted() {
		f.Scope = ledger.Scope{UserID: actor.UserID}
	}
	if f.ReceiptStatus != "" && !f.ReceiptStatus.IsValid() {
		return f, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("unknown receipt status %q", q.ReceiptStatus))
	}
	if f.ClientStatus != "" && !f.ClientStatus.IsValid() {
		return f, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("unknown client status %q", q.ClientStatus))
	}
	if m := strings.TrimSpace(q.DueMonth); m != "" {
		start, err := time.ParseInLocation("2006-01", m, time.Local)
		if err != nil {
			return f, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("invalid due month %q", m))
		}
		end := start.AddDate(0, 1, -1)
		f.DueFrom, f.DueTo = &start, &end
	}
	return f, nil
}

func (s *Service) view(inst ledger.Installment, today time.Time) InstallmentView {
	return InstallmentView{Installment: inst, Number: inst.Number(), Alert: inst.Alert(today)}
}

// List returns a page of installments visible to the actor
func (s *Service) List(ctx context.Context, actor identity.Actor, q ListQuery) (*shared.Paginated[InstallmentView], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > maxPageSize {
		q.PageSize = shared.DefaultFilter().PageSize
	}
	f, err := s.listFilter(actor, q)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repos.Installments().Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	today := s.today()
	views := make([]InstallmentView, len(items))
	for i := range items {
		views[i] = s.view(items[i], today)
	}
	page := shared.NewPaginated(views, total, f.Page, f.PageSize)
	return &page, nil
}

// Get returns one installment. Installments outside a field user's sales are reported as missing.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (*InstallmentView, error) {
	inst, err := s.repos.Installments().FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if actor.Restricted() && !takesPart(inst, actor.UserID) {
		return nil, shared.ErrNotFound
	}
	v := s.view(*inst, s.today())
	return &v, nil
}

func takesPart(inst *ledger.Installment, userID string) bool {
	for _, p := range ledger.Parties {
		if inst.PartyID(p) == userID {
			return true
		}
	}
	return false
}

// Summary totals the installments visible to the actor. The unrestricted
// summary is cached until the next batch commits.
func (s *Service) Summary(ctx context.Context, actor identity.Actor) (ledger.Summary, error) {
	if !actor.Can(identity.PermDashboard) {
		return ledger.Summary{}, shared.ErrForbidden
	}
	load := func(ctx context.Context) (ledger.Summary, error) {
		f, _ := s.listFilter(actor, ListQuery{})
		items, err := s.repos.Installments().FindAll(ctx, f)
		if err != nil {
			return ledger.Summary{}, fmt.Errorf("failed to load installments: %w", err)
		}
		return ledger.Summarize(items), nil
	}
	if actor.Restricted() {
		return load(ctx)
	}
	return shared.ReadThrough(ctx, s.cache, shared.CacheKeyLedgerStat, s.cacheTTL, load)
}

// Alerts lists the client-pending installments that are overdue or due within the alert window
func (s *Service) Alerts(ctx context.Context, actor identity.Actor) ([]InstallmentView, error) {
	today := s.today()
	until := today.AddDate(0, 0, ledger.AlertWindowDays)
	f, _ := s.listFilter(actor, ListQuery{ClientStatus: ledger.StatusPending})
	f.DueTo = &until
	items, err := s.repos.Installments().FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	out := make([]InstallmentView, 0, len(items))
	for i := range items {
		if items[i].IsChargeback() {
			continue
		}
		out = append(out, s.view(items[i], today))
	}
	return out, nil
}

// Commissions lists payouts of a party. Field roles only ever see their own payouts
// in the party matching their role.
func (s *Service) Commissions(ctx context.Context, actor identity.Actor, q CommissionQuery) ([]ledger.Commission, error) {
	if actor.Restricted() {
		q.Party = ledger.Party(actor.Role)
		q.UserID = actor.UserID
	} else if !actor.Can(identity.PermCommissions) {
		return nil, shared.ErrForbidden
	}
	if q.Party == "" {
		q.Party = ledger.PartySalesperson
	}
	f := ledger.ListFilter{Filter: shared.Filter{OrderBy: "data_previsao", OrderDir: "asc"}}
	if q.UserID != "" {
		f.Scope = ledger.Scope{UserID: q.UserID}
	}
	items, err := s.repos.Installments().FindAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	return ledger.Commissions(items, q.Party, q.UserID, q.ReleasedOnly), nil
}

// Export writes the installments matching the query in the upload column layout
func (s *Service) Export(ctx context.Context, actor identity.Actor, q ListQuery, format spreadsheet.Format, w io.Writer) error {
	f, err := s.listFilter(actor, q)
	if err != nil {
		return err
	}
	items, err := s.repos.Installments().FindAll(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to load installments: %w", err)
	}
	table := spreadsheet.Table{Name: "Lancamentos", Headers: ledger.Columns, Rows: make([][]string, len(items))}
	for i := range items {
		table.Rows[i] = items[i].Values()
	}
	return spreadsheet.Write(w, format, table)
}
