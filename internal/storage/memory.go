package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"spentee/internal/core"
)

// MemoryStore is an in-memory LedgerStore. It backs tests and the
// "memory" data backend, and mirrors SQLite's semantics: owner filtering,
// version-guarded EMI updates, and the pending-sync queue.
type MemoryStore struct {
	mu sync.RWMutex

	expenses map[string]core.Expense
	incomes  map[string]core.Income
	savings  map[string]core.Saving
	upi      map[string]core.UPIPayment
	emis     map[string]core.EMIPlan
	budgets  map[string]core.Budget
	users    map[string]core.User

	pending map[string]time.Time // "kind/id" -> created_at
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expenses: make(map[string]core.Expense),
		incomes:  make(map[string]core.Income),
		savings:  make(map[string]core.Saving),
		upi:      make(map[string]core.UPIPayment),
		emis:     make(map[string]core.EMIPlan),
		budgets:  make(map[string]core.Budget),
		users:    make(map[string]core.User),
		pending:  make(map[string]time.Time),
	}
}

func (m *MemoryStore) Close() error { return nil }

func syncKey(kind, id string) string { return kind + "/" + id }

func copyPlan(p core.EMIPlan) core.EMIPlan {
	p.PaidMonthDates = append([]core.Date(nil), p.PaidMonthDates...)
	return p
}

// --- expenses ---

func (m *MemoryStore) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = newID(e.ID)
	e.CreatedAt = stamp(e.CreatedAt)
	m.expenses[e.ID] = e
	m.pending[syncKey(SyncKindExpense, e.ID)] = e.CreatedAt
	return e, nil
}

func (m *MemoryStore) GetExpense(ctx context.Context, owner core.OwnerFilter, id string) (core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.expenses[id]
	if !ok || !owner.Matches(e.OwnerID) {
		return core.Expense{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) ListExpenses(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Expense
	for _, e := range m.expenses {
		if owner.Matches(e.OwnerID) && e.Date.In(window) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateExpense(ctx context.Context, owner core.OwnerFilter, e core.Expense) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.expenses[e.ID]
	if !ok || !owner.Matches(prev.OwnerID) {
		return core.Expense{}, ErrNotFound
	}
	e.OwnerID = prev.OwnerID
	e.CreatedAt = prev.CreatedAt
	m.expenses[e.ID] = e
	m.pending[syncKey(SyncKindExpense, e.ID)] = e.CreatedAt
	return e, nil
}

func (m *MemoryStore) DeleteExpense(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || !owner.Matches(e.OwnerID) {
		return ErrNotFound
	}
	delete(m.expenses, id)
	delete(m.pending, syncKey(SyncKindExpense, id))
	return nil
}

func (m *MemoryStore) SumExpensesByCategory(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) (map[core.ExpenseCategory]core.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[core.ExpenseCategory]core.Money)
	for _, e := range m.expenses {
		if owner.Matches(e.OwnerID) && e.Date.In(window) {
			sums[e.Category] = sums[e.Category].Add(e.Amount)
		}
	}
	return sums, nil
}

// --- incomes ---

func (m *MemoryStore) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = newID(in.ID)
	in.CreatedAt = stamp(in.CreatedAt)
	m.incomes[in.ID] = in
	m.pending[syncKey(SyncKindIncome, in.ID)] = in.CreatedAt
	return in, nil
}

func (m *MemoryStore) GetIncome(ctx context.Context, owner core.OwnerFilter, id string) (core.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.incomes[id]
	if !ok || !owner.Matches(in.OwnerID) {
		return core.Income{}, ErrNotFound
	}
	return in, nil
}

func (m *MemoryStore) ListIncomes(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Income
	for _, in := range m.incomes {
		if owner.Matches(in.OwnerID) && in.Date.In(window) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateIncome(ctx context.Context, owner core.OwnerFilter, in core.Income) (core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.incomes[in.ID]
	if !ok || !owner.Matches(prev.OwnerID) {
		return core.Income{}, ErrNotFound
	}
	in.OwnerID = prev.OwnerID
	in.CreatedAt = prev.CreatedAt
	m.incomes[in.ID] = in
	m.pending[syncKey(SyncKindIncome, in.ID)] = in.CreatedAt
	return in, nil
}

func (m *MemoryStore) DeleteIncome(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.incomes[id]
	if !ok || !owner.Matches(in.OwnerID) {
		return ErrNotFound
	}
	delete(m.incomes, id)
	delete(m.pending, syncKey(SyncKindIncome, id))
	return nil
}

// --- savings ---

func (m *MemoryStore) CreateSaving(ctx context.Context, s core.Saving) (core.Saving, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = newID(s.ID)
	s.CreatedAt = stamp(s.CreatedAt)
	m.savings[s.ID] = s
	m.pending[syncKey(SyncKindSaving, s.ID)] = s.CreatedAt
	return s, nil
}

func (m *MemoryStore) GetSaving(ctx context.Context, owner core.OwnerFilter, id string) (core.Saving, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.savings[id]
	if !ok || !owner.Matches(s.OwnerID) {
		return core.Saving{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListSavings(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Saving, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Saving
	for _, s := range m.savings {
		if owner.Matches(s.OwnerID) && s.Date.In(window) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateSaving(ctx context.Context, owner core.OwnerFilter, s core.Saving) (core.Saving, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.savings[s.ID]
	if !ok || !owner.Matches(prev.OwnerID) {
		return core.Saving{}, ErrNotFound
	}
	s.OwnerID = prev.OwnerID
	s.CreatedAt = prev.CreatedAt
	m.savings[s.ID] = s
	m.pending[syncKey(SyncKindSaving, s.ID)] = s.CreatedAt
	return s, nil
}

func (m *MemoryStore) DeleteSaving(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.savings[id]
	if !ok || !owner.Matches(s.OwnerID) {
		return ErrNotFound
	}
	delete(m.savings, id)
	delete(m.pending, syncKey(SyncKindSaving, id))
	return nil
}

// --- upi payments ---

func (m *MemoryStore) CreateUPIPayment(ctx context.Context, u core.UPIPayment) (core.UPIPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)
	m.upi[u.ID] = u
	m.pending[syncKey(SyncKindUPI, u.ID)] = u.CreatedAt
	return u, nil
}

func (m *MemoryStore) GetUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) (core.UPIPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.upi[id]
	if !ok || !owner.Matches(u.OwnerID) {
		return core.UPIPayment{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) ListUPIPayments(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.UPIPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.UPIPayment
	for _, u := range m.upi {
		if owner.Matches(u.OwnerID) && u.Date.In(window) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateUPIPayment(ctx context.Context, owner core.OwnerFilter, u core.UPIPayment) (core.UPIPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.upi[u.ID]
	if !ok || !owner.Matches(prev.OwnerID) {
		return core.UPIPayment{}, ErrNotFound
	}
	u.OwnerID = prev.OwnerID
	u.CreatedAt = prev.CreatedAt
	m.upi[u.ID] = u
	m.pending[syncKey(SyncKindUPI, u.ID)] = u.CreatedAt
	return u, nil
}

func (m *MemoryStore) DeleteUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.upi[id]
	if !ok || !owner.Matches(u.OwnerID) {
		return ErrNotFound
	}
	delete(m.upi, id)
	delete(m.pending, syncKey(SyncKindUPI, id))
	return nil
}

// --- emi plans ---

func (m *MemoryStore) CreateEMIPlan(ctx context.Context, p core.EMIPlan) (core.EMIPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = newID(p.ID)
	p.CreatedAt = stamp(p.CreatedAt)
	p.Version = 1
	m.emis[p.ID] = copyPlan(p)
	return p, nil
}

func (m *MemoryStore) GetEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) (core.EMIPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.emis[id]
	if !ok || !owner.Matches(p.OwnerID) {
		return core.EMIPlan{}, ErrNotFound
	}
	return copyPlan(p), nil
}

func (m *MemoryStore) ListEMIPlans(ctx context.Context, owner core.OwnerFilter) ([]core.EMIPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.EMIPlan
	for _, p := range m.emis {
		if owner.Matches(p.OwnerID) {
			out = append(out, copyPlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateEMIPlan(ctx context.Context, owner core.OwnerFilter, id string, mutate func(core.EMIPlan) (core.EMIPlan, error)) (core.EMIPlan, error) {
	m.mu.Lock()
	current, ok := m.emis[id]
	if !ok || !owner.Matches(current.OwnerID) {
		m.mu.Unlock()
		return core.EMIPlan{}, ErrNotFound
	}
	snapshot := copyPlan(current)
	m.mu.Unlock()

	// mutate runs outside the lock so it behaves like SQLite's
	// read-mutate-write cycle and version conflicts stay observable.
	next, err := mutate(snapshot)
	if err != nil {
		return core.EMIPlan{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.emis[id]
	if !ok || !owner.Matches(stored.OwnerID) {
		return core.EMIPlan{}, ErrNotFound
	}
	if stored.Version != snapshot.Version {
		return core.EMIPlan{}, ErrConcurrentModification
	}
	next.Version = snapshot.Version + 1
	m.emis[id] = copyPlan(next)
	return next, nil
}

func (m *MemoryStore) DeleteEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.emis[id]
	if !ok || !owner.Matches(p.OwnerID) {
		return ErrNotFound
	}
	delete(m.emis, id)
	return nil
}

// --- budgets ---

func (m *MemoryStore) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = newID(b.ID)
	b.CreatedAt = stamp(b.CreatedAt)
	m.budgets[b.ID] = b
	return b, nil
}

func (m *MemoryStore) GetBudget(ctx context.Context, owner core.OwnerFilter, id string) (core.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[id]
	if !ok || !owner.Matches(b.OwnerID) {
		return core.Budget{}, ErrNotFound
	}
	return b, nil
}

func (m *MemoryStore) ListBudgets(ctx context.Context, owner core.OwnerFilter) ([]core.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Budget
	for _, b := range m.budgets {
		if owner.Matches(b.OwnerID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateBudget(ctx context.Context, owner core.OwnerFilter, b core.Budget) (core.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.budgets[b.ID]
	if !ok || !owner.Matches(prev.OwnerID) {
		return core.Budget{}, ErrNotFound
	}
	b.OwnerID = prev.OwnerID
	b.CreatedAt = prev.CreatedAt
	m.budgets[b.ID] = b
	return b, nil
}

func (m *MemoryStore) DeleteBudget(ctx context.Context, owner core.OwnerFilter, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok || !owner.Matches(b.OwnerID) {
		return ErrNotFound
	}
	delete(m.budgets, id)
	return nil
}

// --- users ---

func (m *MemoryStore) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.User{}, ErrUserExists
		}
	}
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, ErrNotFound
}

// --- sync queue ---

func (m *MemoryStore) PendingSync(ctx context.Context, limit int) ([]SyncItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []SyncItem
	for key, created := range m.pending {
		kind, id, _ := strings.Cut(key, "/")
		items = append(items, SyncItem{Kind: kind, ID: id, CreatedAt: created})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryStore) MarkSynced(ctx context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, syncKey(kind, id))
	return nil
}

func (m *MemoryStore) MarkSyncError(ctx context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, syncKey(kind, id))
	return nil
}
