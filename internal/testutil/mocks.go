package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/planpocket/planpocket/planpocket-backend/internal/amortization"
	"github.com/planpocket/planpocket/planpocket-backend/internal/domain"
	"github.com/planpocket/planpocket/planpocket-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	ByID      map[uuid.UUID]*domain.User
	ByEmail   map[string]*domain.User
	CreateFn  func(user *domain.User) (*domain.User, error)
	GetByIDFn func(id uuid.UUID) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID:    make(map[uuid.UUID]*domain.User),
		ByEmail: make(map[string]*domain.User),
	}
}

// Create creates a new user, rejecting duplicate emails
func (m *MockUserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(user)
	}
	if _, ok := m.ByEmail[user.Email]; ok {
		return nil, domain.ErrEmailTaken
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.AnnualIncome.IsZero() {
		user.AnnualIncome = decimal.Zero
		user.MonthlyIncome = decimal.Zero
	}
	m.AddUser(user)
	return user, nil
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(id)
	}
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByEmail retrieves a user by normalized email
func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := m.ByEmail[email]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// UpdateProfile stores the editable profile fields
func (m *MockUserRepository) UpdateProfile(_ context.Context, user *domain.User) (*domain.User, error) {
	existing, ok := m.ByID[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	existing.FullName = user.FullName
	existing.ContactNumber = user.ContactNumber
	existing.Address = user.Address
	existing.OccupationType = user.OccupationType
	existing.UpdatedAt = time.Now()
	return existing, nil
}

// UpdatePassword replaces the stored hash
func (m *MockUserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	user, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// UpdateIncome stores annual and monthly income
func (m *MockUserRepository) UpdateIncome(_ context.Context, id uuid.UUID, annual, monthly decimal.Decimal) (*domain.User, error) {
	user, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.AnnualIncome = annual
	user.MonthlyIncome = monthly
	return user, nil
}

// UpdateAvatar stores the avatar object key
func (m *MockUserRepository) UpdateAvatar(_ context.Context, id uuid.UUID, avatarKey *string) (*domain.User, error) {
	user, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.AvatarKey = avatarKey
	return user, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.ByID[user.ID] = user
	m.ByEmail[user.Email] = user
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository.
// Aggregates are computed in memory with the same bucket rules as the
// Postgres repository.
type MockTransactionRepository struct {
	Transactions  map[int32]*domain.Transaction
	NextID        int32
	CreateFn      func(transaction *domain.Transaction) (*domain.Transaction, error)
	ListFn        func(userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error)
	SumByTypeFn   func(userID uuid.UUID, start, end *time.Time) (*domain.TypeTotals, error)
	SumByPeriodFn func(userID uuid.UUID, q domain.PeriodQuery) ([]*domain.PeriodTotal, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// Create creates a new transaction
func (m *MockTransactionRepository) Create(_ context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateFn != nil {
		return m.CreateFn(transaction)
	}
	transaction.ID = m.NextID
	m.NextID++
	transaction.CreatedAt = time.Now()
	transaction.UpdatedAt = transaction.CreatedAt
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(transaction *domain.Transaction) {
	if transaction.ID == 0 {
		transaction.ID = m.NextID
		m.NextID++
	}
	m.Transactions[transaction.ID] = transaction
}

// GetByID retrieves a transaction owned by userID
func (m *MockTransactionRepository) GetByID(_ context.Context, userID uuid.UUID, id int32) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	clone := *t
	return &clone, nil
}

// List retrieves transactions newest first with filters and pagination
func (m *MockTransactionRepository) List(_ context.Context, userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if m.ListFn != nil {
		return m.ListFn(userID, filters)
	}

	var filtered []*domain.Transaction
	for _, t := range m.sorted(userID) {
		if filters != nil {
			if filters.Type != nil && t.Type != *filters.Type {
				continue
			}
			if filters.Category != nil && t.Category != *filters.Category {
				continue
			}
			if filters.StartDate != nil && t.Date.Before(*filters.StartDate) {
				continue
			}
			if filters.EndDate != nil && !t.Date.Before(*filters.EndDate) {
				continue
			}
		}
		filtered = append(filtered, t)
	}

	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
		}
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	totalItems := int64(len(filtered))
	totalPages := int32(totalItems / int64(pageSize))
	if totalItems%int64(pageSize) > 0 {
		totalPages++
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	data := []*domain.Transaction{}
	if start < int32(len(filtered)) {
		if end > int32(len(filtered)) {
			end = int32(len(filtered))
		}
		data = filtered[start:end]
	}

	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// ListBetween returns transactions dated in [start, end), newest first
func (m *MockTransactionRepository) ListBetween(_ context.Context, userID uuid.UUID, start, end time.Time) ([]*domain.Transaction, error) {
	result := []*domain.Transaction{}
	for _, t := range m.sorted(userID) {
		if inRange(t.Date, &start, &end) {
			result = append(result, t)
		}
	}
	return result, nil
}

// Recent returns the latest limit transactions
func (m *MockTransactionRepository) Recent(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	sorted := m.sorted(userID)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Update replaces a stored transaction
func (m *MockTransactionRepository) Update(_ context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	existing, ok := m.Transactions[transaction.ID]
	if !ok || existing.UserID != transaction.UserID {
		return nil, domain.ErrTransactionNotFound
	}
	transaction.UpdatedAt = time.Now()
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// Delete removes a transaction
func (m *MockTransactionRepository) Delete(_ context.Context, userID uuid.UUID, id int32) error {
	t, ok := m.Transactions[id]
	if !ok || t.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

// SumByType sums income and expense in [start, end); nil bounds are open
func (m *MockTransactionRepository) SumByType(_ context.Context, userID uuid.UUID, start, end *time.Time) (*domain.TypeTotals, error) {
	if m.SumByTypeFn != nil {
		return m.SumByTypeFn(userID, start, end)
	}
	totals := &domain.TypeTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range m.sorted(userID) {
		if !inRange(t.Date, start, end) {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			totals.Income = totals.Income.Add(t.Amount)
			totals.IncomeCount++
		} else {
			totals.Expense = totals.Expense.Add(t.Amount)
			totals.ExpenseCount++
		}
	}
	return totals, nil
}

// SumByCategory groups by type and category, largest total first
func (m *MockTransactionRepository) SumByCategory(_ context.Context, userID uuid.UUID, q domain.CategoryQuery) ([]*domain.CategoryTotal, error) {
	type key struct {
		typ      domain.TransactionType
		category domain.Category
	}
	groups := map[key]*domain.CategoryTotal{}
	for _, t := range m.sorted(userID) {
		if !inRange(t.Date, q.Start, q.End) || (q.Type != nil && t.Type != *q.Type) {
			continue
		}
		k := key{t.Type, t.Category}
		g, ok := groups[k]
		if !ok {
			g = &domain.CategoryTotal{Type: t.Type, Category: t.Category, Total: decimal.Zero}
			groups[k] = g
		}
		g.Total = g.Total.Add(t.Amount)
		g.Count++
	}

	result := make([]*domain.CategoryTotal, 0, len(groups))
	for _, g := range groups {
		g.Average = g.Total.Div(decimal.NewFromInt(g.Count)).Round(2)
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Total.Cmp(result[j].Total); c != 0 {
			return c > 0
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// SumByPeriod buckets transactions in UTC, oldest first
func (m *MockTransactionRepository) SumByPeriod(_ context.Context, userID uuid.UUID, q domain.PeriodQuery) ([]*domain.PeriodTotal, error) {
	if m.SumByPeriodFn != nil {
		return m.SumByPeriodFn(userID, q)
	}
	buckets := map[time.Time]*domain.PeriodTotal{}
	for _, t := range m.sorted(userID) {
		if !inRange(t.Date, q.Start, q.End) {
			continue
		}
		start := TruncateToPeriod(t.Date, q.Granularity)
		b, ok := buckets[start]
		if !ok {
			b = &domain.PeriodTotal{PeriodStart: start, Income: decimal.Zero, Expense: decimal.Zero}
			buckets[start] = b
		}
		if t.Type == domain.TransactionTypeIncome {
			b.Income = b.Income.Add(t.Amount)
		} else {
			b.Expense = b.Expense.Add(t.Amount)
		}
		b.TransactionCount++
	}

	result := make([]*domain.PeriodTotal, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodStart.Before(result[j].PeriodStart) })
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[len(result)-q.Limit:]
	}
	return result, nil
}

func (m *MockTransactionRepository) sorted(userID uuid.UUID) []*domain.Transaction {
	result := []*domain.Transaction{}
	for _, t := range m.Transactions {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(*end) {
		return false
	}
	return true
}

// TruncateToPeriod returns the UTC start of the bucket containing t. Weeks
// start on Monday.
func TruncateToPeriod(t time.Time, g domain.Granularity) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case domain.GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityQuarter:
		month := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// MockLoanRepository is a mock implementation of domain.LoanRepository. Loans
// are copied in and out so callers cannot mutate stored state, and writes
// check Version the way the Postgres repository does.
type MockLoanRepository struct {
	Loans         map[int32]*domain.Loan
	NextID        int32
	NextPaymentID int32
	// Conflicts makes the next n version-checked writes fail as if another
	// writer had bumped the version first
	Conflicts    int
	UpdateCalls  int
	CreateFn     func(loan *domain.Loan) (*domain.Loan, error)
	AddPaymentFn func(loan *domain.Loan, payment *domain.LoanPayment) (*domain.Loan, error)
	StatsFn      func(userID uuid.UUID) (*domain.LoanStats, error)
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans:         make(map[int32]*domain.Loan),
		NextID:        1,
		NextPaymentID: 1,
	}
}

// Create creates a new loan at version 1
func (m *MockLoanRepository) Create(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateFn != nil {
		return m.CreateFn(loan)
	}
	stored := cloneLoan(loan)
	stored.ID = m.NextID
	m.NextID++
	stored.Version = 1
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	if stored.Payments == nil {
		stored.Payments = []*domain.LoanPayment{}
	}
	m.Loans[stored.ID] = stored
	return cloneLoan(stored), nil
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	if loan.ID == 0 {
		loan.ID = m.NextID
		m.NextID++
	}
	if loan.Version == 0 {
		loan.Version = 1
	}
	if loan.Payments == nil {
		loan.Payments = []*domain.LoanPayment{}
	}
	m.Loans[loan.ID] = cloneLoan(loan)
}

// GetByID retrieves a loan owned by userID with its payments
func (m *MockLoanRepository) GetByID(_ context.Context, userID uuid.UUID, id int32) (*domain.Loan, error) {
	loan, ok := m.Loans[id]
	if !ok || loan.UserID != userID {
		return nil, domain.ErrLoanNotFound
	}
	return cloneLoan(loan), nil
}

// List retrieves a user's loans, newest first, optionally by status
func (m *MockLoanRepository) List(_ context.Context, userID uuid.UUID, status *amortization.Status) ([]*domain.Loan, error) {
	result := []*domain.Loan{}
	for _, loan := range m.Loans {
		if loan.UserID != userID || (status != nil && loan.Status != *status) {
			continue
		}
		result = append(result, cloneLoan(loan))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// Update persists loan when its version matches the stored one
func (m *MockLoanRepository) Update(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	stored, err := m.compareAndSwap(loan)
	if err != nil {
		return nil, err
	}
	return cloneLoan(stored), nil
}

// Delete removes a loan and its payments
func (m *MockLoanRepository) Delete(_ context.Context, userID uuid.UUID, id int32) error {
	loan, ok := m.Loans[id]
	if !ok || loan.UserID != userID {
		return domain.ErrLoanNotFound
	}
	delete(m.Loans, id)
	return nil
}

// AddPayment stores the payment and the loan's new state under the version check
func (m *MockLoanRepository) AddPayment(_ context.Context, loan *domain.Loan, payment *domain.LoanPayment) (*domain.Loan, error) {
	if m.AddPaymentFn != nil {
		return m.AddPaymentFn(loan, payment)
	}
	stored, err := m.compareAndSwap(loan)
	if err != nil {
		return nil, err
	}
	p := *payment
	p.ID = m.NextPaymentID
	m.NextPaymentID++
	p.LoanID = stored.ID
	p.CreatedAt = time.Now()
	payment.ID = p.ID
	stored.Payments = append(stored.Payments, &p)
	return cloneLoan(stored), nil
}

// ActivatePending activates pending loans whose start date is not after asOf
func (m *MockLoanRepository) ActivatePending(_ context.Context, asOf time.Time) ([]*domain.Loan, error) {
	result := []*domain.Loan{}
	for _, loan := range m.Loans {
		if loan.Status != amortization.StatusPending || loan.StartDate.After(asOf) {
			continue
		}
		next := loan.StartDate
		loan.Status = amortization.StatusActive
		loan.NextPaymentDate = &next
		loan.Version++
		result = append(result, cloneLoan(loan))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Stats aggregates a user's loans
func (m *MockLoanRepository) Stats(_ context.Context, userID uuid.UUID) (*domain.LoanStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(userID)
	}
	stats := &domain.LoanStats{
		TotalPrincipal:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		MonthlyEMI:       decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalInterest:    decimal.Zero,
	}
	for _, loan := range m.Loans {
		if loan.UserID != userID {
			continue
		}
		stats.TotalLoans++
		stats.TotalPrincipal = stats.TotalPrincipal.Add(loan.Principal)
		switch loan.Status {
		case amortization.StatusActive:
			stats.ActiveLoans++
			stats.MonthlyEMI = stats.MonthlyEMI.Add(loan.MonthlyInstallment)
		case amortization.StatusPending:
			stats.PendingLoans++
		case amortization.StatusCompleted:
			stats.CompletedLoans++
		case amortization.StatusDefaulted:
			stats.DefaultedLoans++
		}
		if loan.Status != amortization.StatusCompleted {
			stats.TotalOutstanding = stats.TotalOutstanding.Add(loan.RemainingBalance)
		}
		for _, p := range loan.Payments {
			stats.TotalPaid = stats.TotalPaid.Add(p.AmountPaid)
			stats.TotalInterest = stats.TotalInterest.Add(p.InterestPaid)
		}
	}
	return stats, nil
}

func (m *MockLoanRepository) compareAndSwap(loan *domain.Loan) (*domain.Loan, error) {
	m.UpdateCalls++
	stored, ok := m.Loans[loan.ID]
	if !ok || stored.UserID != loan.UserID {
		return nil, domain.ErrLoanNotFound
	}
	if m.Conflicts > 0 {
		m.Conflicts--
		stored.Version++
		return nil, domain.ErrVersionConflict
	}
	if stored.Version != loan.Version {
		return nil, domain.ErrVersionConflict
	}

	next := cloneLoan(loan)
	next.Payments = stored.Payments
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = time.Now()
	next.Version = stored.Version + 1
	m.Loans[loan.ID] = next
	return next, nil
}

func cloneLoan(loan *domain.Loan) *domain.Loan {
	c := *loan
	if loan.NextPaymentDate != nil {
		next := *loan.NextPaymentDate
		c.NextPaymentDate = &next
	}
	if loan.Payments != nil {
		c.Payments = make([]*domain.LoanPayment, len(loan.Payments))
		for i, p := range loan.Payments {
			pc := *p
			c.Payments[i] = &pc
		}
	}
	return &c
}

// MockObjectRepository is an in-memory object store
type MockObjectRepository struct {
	Objects      map[string][]byte
	ContentTypes map[string]string
	UploadFn     func(key string, data io.Reader, contentType string, size int64) (string, error)
	PresignFn    func(key string, expiry time.Duration) (string, error)
}

// NewMockObjectRepository creates a new MockObjectRepository
func NewMockObjectRepository() *MockObjectRepository {
	return &MockObjectRepository{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

// Upload stores the object body
func (m *MockObjectRepository) Upload(_ context.Context, key string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(key, data, contentType, size)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.Objects[key] = buf.Bytes()
	m.ContentTypes[key] = contentType
	return key, nil
}

// Delete removes an object; missing keys are not an error
func (m *MockObjectRepository) Delete(_ context.Context, key string) error {
	delete(m.Objects, key)
	delete(m.ContentTypes, key)
	return nil
}

// PresignGet returns a fake download URL for key
func (m *MockObjectRepository) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if m.PresignFn != nil {
		return m.PresignFn(key, expiry)
	}
	return fmt.Sprintf("https://storage.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

// PublishedEvent is one event captured by MockPublisher
type PublishedEvent struct {
	UserID uuid.UUID
	Event  websocket.Event
}

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event
func (m *MockPublisher) Publish(userID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{UserID: userID, Event: event})
}

// Types returns the published event types in order, e.g. "loan.created"
func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}

// MockTokenIssuer issues predictable tokens
type MockTokenIssuer struct {
	TTL     time.Duration
	IssueFn func(userID uuid.UUID, email string) (string, time.Time, error)
}

// Issue returns "token-<userID>"
func (m *MockTokenIssuer) Issue(userID uuid.UUID, email string) (string, time.Time, error) {
	if m.IssueFn != nil {
		return m.IssueFn(userID, email)
	}
	ttl := m.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return "token-" + userID.String(), time.Now().Add(ttl), nil
}
