package ledger

import (
	"testing"
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRule() catalog.RuleSet {
	return catalog.RuleSet{
		ProductType:         "Imovel 150k",
		Administrator:       "Porto",
		TableCode:           "T100",
		Percentages:         []decimal.Decimal{dec("1.5"), dec("1"), dec("1")},
		Credit:              catalog.Range{Min: dec("50000"), Max: dec("500000")},
		TermMonths:          catalog.Range{Min: dec("60"), Max: dec("200")},
		AdminFee:            catalog.Range{Min: dec("10"), Max: dec("18")},
		ChargebackPct:       dec("1"),
		ChargebackThreshold: 3,
	}
}

func testCatalog(rules ...catalog.RuleSet) *catalog.Catalog {
	if len(rules) == 0 {
		rules = []catalog.RuleSet{testRule()}
	}
	return catalog.NewCatalog(rules)
}

func testUsers() *identity.Directory {
	return identity.NewDirectory([]identity.User{
		{ID: "1", Name: "Master", Role: identity.RoleMaster, Rates: identity.DefaultRates()},
		{ID: "10", Name: "Ana Gerente", Role: identity.RoleManager, Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.1"), Manager: dec("0.1"),
		}},
		{ID: "20", Name: "Bruno Supervisor", Role: identity.RoleSupervisor, ManagerID: "10", Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.05"), Manager: dec("0.1"),
		}},
		{ID: "30", Name: "Carla Vendas", Role: identity.RoleSalesperson, SupervisorID: "20", ManagerID: "10", Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.1"), Manager: dec("0.1"),
		}},
		{ID: "31", Name: "Davi Solo", Role: identity.RoleSalesperson, Rates: identity.Rates{
			Salesperson: dec("0.25"),
		}},
	})
}

func testClients() *client.Directory {
	return client.NewDirectory([]client.Client{
		{ID: "1", Name: "José Almeida"},
		{ID: "2", Name: "Maria Souza"},
	})
}

func testSale() SaleInput {
	return SaleInput{
		ClientName:    "José Almeida",
		SalespersonID: "30",
		ProductType:   "Imovel 150k",
		Group:         "1020",
		Quota:         "55.0",
		Credit:        dec("150000"),
		SaleDate:      date(2024, time.March, 10),
		DueDay:        15,
		Term:          180,
		AdminFee:      func() *decimal.Decimal { d := dec("15"); return &d }(),
	}
}

func generate(t *testing.T, sales ...SaleInput) (GenerateResult, GenerateInput) {
	t.Helper()
	in := GenerateInput{
		Sales:    sales,
		Catalog:  testCatalog(),
		Users:    testUsers(),
		Clients:  testClients(),
		Existing: IDSet{},
	}
	return NewGenerator().Generate(in), in
}
