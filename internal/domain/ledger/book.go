package ledger

import "sort"

// Book is an in-memory working set of installments loaded for one batch.
// Mutations made by the engines are tracked so only touched rows are persisted.
type Book struct {
	byID    map[string]*Installment
	byQuota map[string][]*Installment
	order   []string
	dirty   map[string]struct{}
}

func quotaKey(group, quota string) string {
	return NormalizeCode(group) + "|" + NormalizeCode(quota)
}

// NewBook indexes the installments
func NewBook(items []Installment) *Book {
	b := &Book{
		byID:    make(map[string]*Installment, len(items)),
		byQuota: make(map[string][]*Installment),
		dirty:   make(map[string]struct{}),
	}
	for i := range items {
		b.put(&items[i])
	}
	for _, list := range b.byQuota {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Number() < list[j].Number() })
	}
	return b
}

func (b *Book) put(inst *Installment) {
	if _, ok := b.byID[inst.ID]; ok {
		return
	}
	b.byID[inst.ID] = inst
	b.order = append(b.order, inst.ID)
	if !inst.IsChargeback() {
		k := quotaKey(inst.Group, inst.Quota)
		b.byQuota[k] = append(b.byQuota[k], inst)
	}
}

// Get returns the installment with the id
func (b *Book) Get(id string) (*Installment, bool) {
	inst, ok := b.byID[id]
	return inst, ok
}

// ByQuota returns the installments of a group/quota ordered by number, chargeback rows excluded
func (b *Book) ByQuota(group, quota string) []*Installment {
	return b.byQuota[quotaKey(group, quota)]
}

// Touch marks the installment as modified
func (b *Book) Touch(id string) {
	b.dirty[id] = struct{}{}
}

// Dirty returns copies of the modified installments in load order
func (b *Book) Dirty() []Installment {
	out := make([]Installment, 0, len(b.dirty))
	for _, id := range b.order {
		if _, ok := b.dirty[id]; ok {
			out = append(out, *b.byID[id])
		}
	}
	return out
}

// Len returns the number of installments held
func (b *Book) Len() int {
	return len(b.byID)
}
