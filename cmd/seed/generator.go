package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// seedPassword is the password of every generated user
const seedPassword = "consorcio123"

var nonLogin = regexp.MustCompile(`[^a-z0-9]`)

// product is a template for one generated rule set
type product struct {
	productType   string
	administrator string
	creditMin     int64
	creditMax     int64
	termMax       int64
	readjustment  catalog.ReadjustmentIndex
}

var products = []product{
	{"Imóvel Porto", "Porto Seguro", 100_000, 800_000, 220, catalog.IndexINCC},
	{"Auto Rodobens", "Rodobens", 40_000, 250_000, 100, catalog.IndexIPCA},
	{"Pesados Volks", "Volkswagen", 150_000, 600_000, 120, catalog.IndexIGPM},
	{"Serviços Embracon", "Embracon", 10_000, 30_000, 40, catalog.IndexIPCA},
}

// Dataset is everything one seed run writes
type Dataset struct {
	Rules   []catalog.RuleSet
	Users   []*identity.User
	Clients []*client.Client
	Sales   []ledger.SaleInput
}

// Sizes controls how much is generated
type Sizes struct {
	Supervisors          int
	SellersPerSupervisor int
	Clients              int
	Sales                int
}

// Generator produces a consistent sample dataset from a seed
type Generator struct {
	faker  *gofakeit.Faker
	now    time.Time
	nextID int
}

// NewGenerator returns a generator; the same seed yields the same dataset
func NewGenerator(seed uint64, now time.Time) *Generator {
	return &Generator{faker: gofakeit.New(seed), now: now, nextID: 100}
}

// Generate builds rules, a manager with supervisors and sellers, clients and sales
func (g *Generator) Generate(sizes Sizes) (*Dataset, error) {
	ds := &Dataset{Rules: g.rules()}

	manager, err := g.user(identity.RoleManager, "", "")
	if err != nil {
		return nil, err
	}
	ds.Users = append(ds.Users, manager)

	var sellers []*identity.User
	for range sizes.Supervisors {
		sup, err := g.user(identity.RoleSupervisor, "", manager.ID)
		if err != nil {
			return nil, err
		}
		ds.Users = append(ds.Users, sup)
		for range sizes.SellersPerSupervisor {
			seller, err := g.user(identity.RoleSalesperson, sup.ID, manager.ID)
			if err != nil {
				return nil, err
			}
			ds.Users = append(ds.Users, seller)
			sellers = append(sellers, seller)
		}
	}

	for i := range sizes.Clients {
		c, err := client.NewClient(strconv.Itoa(i+1), g.faker.Name())
		if err != nil {
			return nil, err
		}
		c.UpdateContact(g.faker.Email(), g.faker.Phone(), "")
		ds.Clients = append(ds.Clients, c)
	}

	if len(sellers) == 0 || len(ds.Clients) == 0 {
		return ds, nil
	}
	for i := range sizes.Sales {
		ds.Sales = append(ds.Sales, g.sale(i, ds.Rules, sellers, ds.Clients))
	}
	return ds, nil
}

func (g *Generator) rules() []catalog.RuleSet {
	rules := make([]catalog.RuleSet, 0, len(products))
	for i, p := range products {
		r := catalog.RuleSet{
			ProductType:   p.productType,
			Administrator: p.administrator,
			TableCode:     strconv.Itoa(2000 + i),
			Percentages:   g.schedule(),
			Credit: catalog.Range{
				Min: decimal.NewFromInt(p.creditMin),
				Max: decimal.NewFromInt(p.creditMax),
			},
			TermMonths:      catalog.Range{Min: decimal.NewFromInt(12), Max: decimal.NewFromInt(p.termMax)},
			AdminFee:        catalog.Range{Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(25)},
			ReserveFund:     decimal.NewFromInt(int64(g.faker.IntRange(1, 3))),
			AdvanceFee:      decimal.NewFromInt(1),
			AdvanceFeeBasis: catalog.AdvanceBasisFirstInstallment,
			Readjustment:    p.readjustment,
			Contemplation:   []catalog.ContemplationMode{catalog.ModeDraw, catalog.ModeFreeBid},
			ChargebackPct:   decimal.NewFromInt(100),
		}
		r.Normalize()
		rules = append(rules, r)
	}
	return rules
}

// schedule front-loads the commission: a larger first installment, then a flat tail
func (g *Generator) schedule() []decimal.Decimal {
	pcts := make([]decimal.Decimal, ledger.InstallmentCount)
	pcts[0] = decimal.NewFromFloat(g.faker.Float64Range(0.5, 1.5)).Round(2)
	for i := 1; i < len(pcts); i++ {
		if i < 4 {
			pcts[i] = decimal.RequireFromString("0.3")
		} else {
			pcts[i] = decimal.RequireFromString("0.1")
		}
	}
	return pcts
}

func (g *Generator) user(role identity.Role, supervisorID, managerID string) (*identity.User, error) {
	id := strconv.Itoa(g.nextID)
	g.nextID++
	first, last := g.faker.FirstName(), g.faker.LastName()
	username := fmt.Sprintf("%s.%s%s",
		nonLogin.ReplaceAllString(strings.ToLower(first), ""),
		nonLogin.ReplaceAllString(strings.ToLower(last), ""),
		id)
	u, err := identity.NewUser(id, username, seedPassword, first+" "+last, role)
	if err != nil {
		return nil, err
	}
	u.SupervisorID = supervisorID
	u.ManagerID = managerID
	return u, nil
}

func (g *Generator) sale(i int, rules []catalog.RuleSet, sellers []*identity.User, clients []*client.Client) ledger.SaleInput {
	rule := rules[g.faker.IntRange(0, len(rules)-1)]
	seller := sellers[g.faker.IntRange(0, len(sellers)-1)]
	buyer := clients[g.faker.IntRange(0, len(clients)-1)]

	// round credits to the thousand like the administrators' tables
	lo := rule.Credit.Min.IntPart() / 1000
	hi := rule.Credit.Max.IntPart() / 1000
	credit := decimal.NewFromInt(int64(g.faker.IntRange(int(lo), int(hi))) * 1000)

	return ledger.SaleInput{
		Ref:           strconv.Itoa(i + 2),
		ClientID:      buyer.ID,
		ClientName:    buyer.Name,
		SalespersonID: seller.ID,
		SupervisorID:  seller.SupervisorID,
		ManagerID:     seller.ManagerID,
		ProductType:   rule.ProductType,
		TableCode:     rule.TableCode,
		Group:         strconv.Itoa(g.faker.IntRange(1000, 9999)),
		Quota:         strconv.Itoa(i + 1),
		Credit:        credit,
		SaleDate:      g.faker.DateRange(g.now.AddDate(0, -11, 0), g.now),
		DueDay:        []int{5, 10, 15, 20, 25}[g.faker.IntRange(0, 4)],
	}
}
