package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	masterItems        map[string]domain.MasterItem
	managerItems       map[string]domain.ManagerItem
	managerItemByKey   map[string]string
	billsByID          map[string]*domain.Bill
	billsByNumber      map[string]string
	employees          map[string]domain.Employee
	expenses           map[string]domain.Expense
	salaryPayments     map[string]domain.SalaryPayment
	paymentByUserMonth map[string]string
	notifications      map[string]domain.Notification
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		masterItems:        make(map[string]domain.MasterItem),
		managerItems:       make(map[string]domain.ManagerItem),
		managerItemByKey:   make(map[string]string),
		billsByID:          make(map[string]*domain.Bill),
		billsByNumber:      make(map[string]string),
		employees:          make(map[string]domain.Employee),
		expenses:           make(map[string]domain.Expense),
		salaryPayments:     make(map[string]domain.SalaryPayment),
		paymentByUserMonth: make(map[string]string),
		notifications:      make(map[string]domain.Notification),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_CEO_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_CASHIER_PASSWORD environment variables. If unset, hardcoded dev
// defaults are used with a warning printed to stdout. These credentials are
// never used in production (the backend uses PostgreSQL when DATABASE_URL
// is set).
func seedUsers() map[string]domain.UserAccount {
	ceoPwd := envOr("SEED_CEO_PASSWORD", "ceo123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_CEO_PASSWORD") == "" || os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_CEO_PASSWORD, SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"ceo", ceoPwd, domain.RoleCEO},
		{"manager", managerPwd, domain.RoleManager},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	items := []domain.MasterItem{
		{ID: "itm-beras-01", ProductName: "Beras Premium 5kg", BuyingPriceCents: 6200000, TotalQuantity: 200, MinStockLevel: 20, CreatedAt: now},
		{ID: "itm-minyak-01", ProductName: "Minyak Goreng 2L", BuyingPriceCents: 3400000, TotalQuantity: 150, MinStockLevel: 15, CreatedAt: now},
		{ID: "itm-gula-01", ProductName: "Gula Pasir 1kg", BuyingPriceCents: 1500000, TotalQuantity: 300, MinStockLevel: 30, CreatedAt: now},
		{ID: "itm-kopi-01", ProductName: "Kopi Bubuk 200g", BuyingPriceCents: 1200000, TotalQuantity: 120, MinStockLevel: 10, CreatedAt: now},
		{ID: "itm-tepung-01", ProductName: "Tepung Terigu 1kg", BuyingPriceCents: 1100000, TotalQuantity: 180, MinStockLevel: 20, CreatedAt: now},
	}
	for _, item := range items {
		s.masterItems[item.ID] = item
	}
	return s
}

func (s *Store) CreateMasterItem(_ context.Context, item domain.MasterItem) (*domain.MasterItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ProductName = strings.TrimSpace(item.ProductName)
	if item.ProductName == "" || item.BuyingPriceCents < 1 || item.TotalQuantity < 0 || item.MinStockLevel < 0 {
		return nil, store.ErrInvalidOperation
	}
	if item.ID == "" {
		item.ID = xid.New("itm")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.masterItems[item.ID]; exists {
		return nil, store.ErrInvalidOperation
	}

	s.masterItems[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) GetMasterItem(_ context.Context, id string) (*domain.MasterItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.masterItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListMasterItems(_ context.Context) ([]domain.MasterItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MasterItem, 0, len(s.masterItems))
	for _, item := range s.masterItems {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.MasterItem) int {
		return cmpString(a.ProductName, b.ProductName)
	})
	return items, nil
}

func (s *Store) UpdateMasterItem(_ context.Context, item domain.MasterItem) (*domain.MasterItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ProductName = strings.TrimSpace(item.ProductName)
	if item.ID == "" || item.ProductName == "" || item.BuyingPriceCents < 1 || item.MinStockLevel < 0 {
		return nil, store.ErrInvalidOperation
	}
	current, exists := s.masterItems[item.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	current.ProductName = item.ProductName
	current.BuyingPriceCents = item.BuyingPriceCents
	current.MinStockLevel = item.MinStockLevel
	s.masterItems[item.ID] = current
	updated := current
	return &updated, nil
}

func (s *Store) RestockMasterItem(_ context.Context, id string, qty int) (*domain.MasterItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.masterItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	item.TotalQuantity += qty
	s.masterItems[id] = item
	updated := item
	return &updated, nil
}

func (s *Store) TransferStock(_ context.Context, req domain.TransferRequest) (*domain.ManagerItem, error) {
	if req.ManagerID == "" || req.MasterItemID == "" || req.Quantity < 1 || req.SellingPriceCents < 1 {
		return nil, store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	master, exists := s.masterItems[req.MasterItemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if master.TotalQuantity < req.Quantity {
		return nil, store.ErrInsufficientStock
	}
	master.TotalQuantity -= req.Quantity
	s.masterItems[req.MasterItemID] = master

	now := time.Now().UTC()
	key := managerItemKey(req.ManagerID, req.MasterItemID)
	if itemID, exists := s.managerItemByKey[key]; exists {
		item := s.managerItems[itemID]
		item.CurrentQuantity += req.Quantity
		item.SellingPriceCents = req.SellingPriceCents
		item.LastUpdated = now
		s.managerItems[itemID] = item
		merged := item
		merged.ProductName = master.ProductName
		return &merged, nil
	}

	item := domain.ManagerItem{
		ID:                xid.New("mi"),
		ManagerID:         req.ManagerID,
		MasterItemID:      req.MasterItemID,
		SellingPriceCents: req.SellingPriceCents,
		CurrentQuantity:   req.Quantity,
		LastUpdated:       now,
	}
	s.managerItems[item.ID] = item
	s.managerItemByKey[key] = item.ID
	created := item
	created.ProductName = master.ProductName
	return &created, nil
}

func (s *Store) GetManagerItem(_ context.Context, id string) (*domain.ManagerItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.managerItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	if master, ok := s.masterItems[item.MasterItemID]; ok {
		copyItem.ProductName = master.ProductName
	}
	return &copyItem, nil
}

func (s *Store) ListManagerItems(_ context.Context, managerID string) ([]domain.ManagerItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ManagerItem, 0, len(s.managerItems))
	for _, item := range s.managerItems {
		if item.ManagerID != managerID {
			continue
		}
		if master, ok := s.masterItems[item.MasterItemID]; ok {
			item.ProductName = master.ProductName
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.ManagerItem) int {
		return cmpString(a.ProductName, b.ProductName)
	})
	return items, nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.BillNumber == "" || bill.CashierID == "" || bill.ManagerID == "" || len(bill.Lines) == 0 {
		return nil, store.ErrInvalidOperation
	}
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.BillDate.IsZero() {
		bill.BillDate = time.Now().UTC()
	}
	if bill.Status == "" {
		bill.Status = domain.BillStatusCompleted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.billsByNumber[bill.BillNumber]; exists {
		return nil, store.ErrInvalidOperation
	}

	total := int64(0)
	for _, line := range bill.Lines {
		if line.ManagerInventoryID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 || line.SubtotalCents < 0 {
			return nil, store.ErrInvalidOperation
		}
		total += line.SubtotalCents
	}
	bill.TotalAmountCents = total

	// Check every line before touching any row so a late failure cannot
	// leave a partial decrement behind.
	type decrement struct {
		itemID string
		qty    int
	}
	decrements := make([]decrement, 0, len(bill.Lines))
	pending := make(map[string]int, len(bill.Lines))
	for _, line := range bill.Lines {
		item, exists := s.managerItems[line.ManagerInventoryID]
		if !exists {
			return nil, store.ErrNotFound
		}
		pending[line.ManagerInventoryID] += line.Quantity
		if item.CurrentQuantity < pending[line.ManagerInventoryID] {
			return nil, store.ErrInsufficientStock
		}
		decrements = append(decrements, decrement{itemID: line.ManagerInventoryID, qty: line.Quantity})
	}

	now := time.Now().UTC()
	for _, dec := range decrements {
		item := s.managerItems[dec.itemID]
		item.CurrentQuantity -= dec.qty
		item.LastUpdated = now
		s.managerItems[dec.itemID] = item
	}

	saved := cloneBill(&bill)
	s.billsByID[bill.ID] = saved
	s.billsByNumber[bill.BillNumber] = bill.ID
	return cloneBill(saved), nil
}

func (s *Store) GetBillByNumber(_ context.Context, billNumber string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	billID, exists := s.billsByNumber[billNumber]
	if !exists {
		return nil, store.ErrNotFound
	}
	bill, exists := s.billsByID[billID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneBill(bill), nil
}

func (s *Store) ListBills(_ context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bill, 0, 64)
	for _, bill := range s.billsByID {
		if managerID != "" && bill.ManagerID != managerID {
			continue
		}
		if bill.BillDate.Before(from) || !bill.BillDate.Before(to) {
			continue
		}
		result = append(result, *cloneBill(bill))
	}
	slices.SortFunc(result, func(a, b domain.Bill) int {
		if a.BillDate.Equal(b.BillDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.BillDate.After(b.BillDate) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateEmployee(_ context.Context, emp domain.Employee) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp.Name = strings.TrimSpace(emp.Name)
	if emp.ManagerID == "" || emp.Name == "" || emp.BaseSalaryCents < 1 {
		return nil, store.ErrInvalidOperation
	}
	if emp.ID == "" {
		emp.ID = xid.New("emp")
	}
	if emp.Role == "" {
		emp.Role = domain.RoleCashier
	}
	if emp.JoinedAt.IsZero() {
		emp.JoinedAt = time.Now().UTC()
	}
	emp.Active = true

	s.employees[emp.ID] = emp
	created := emp
	return &created, nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emp, exists := s.employees[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyEmp := emp
	return &copyEmp, nil
}

func (s *Store) ListEmployees(_ context.Context, managerID string, activeOnly bool) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]domain.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		if managerID != "" && emp.ManagerID != managerID {
			continue
		}
		if activeOnly && !emp.Active {
			continue
		}
		employees = append(employees, emp)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return cmpString(a.Name, b.Name)
	})
	return employees, nil
}

func (s *Store) DeactivateEmployee(_ context.Context, id string, at time.Time) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, exists := s.employees[id]
	if !exists || !emp.Active {
		return nil, store.ErrNotFound
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	emp.Active = false
	emp.DeactivatedAt = &at
	s.employees[id] = emp
	updated := emp
	return &updated, nil
}

func (s *Store) CreateExpense(_ context.Context, exp domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createExpenseLocked(exp)
}

func (s *Store) createExpenseLocked(exp domain.Expense) (*domain.Expense, error) {
	exp.Description = strings.TrimSpace(exp.Description)
	if exp.ManagerID == "" || exp.Description == "" || exp.AmountCents < 1 {
		return nil, store.ErrInvalidOperation
	}
	if exp.ID == "" {
		exp.ID = xid.New("exp")
	}
	if exp.Category == "" {
		exp.Category = domain.ExpenseCategoryOther
	}
	if exp.ExpenseDate.IsZero() {
		exp.ExpenseDate = time.Now().UTC()
	}
	if exp.RecordedAt.IsZero() {
		exp.RecordedAt = time.Now().UTC()
	}
	s.expenses[exp.ID] = exp
	created := exp
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 64)
	for _, exp := range s.expenses {
		if managerID != "" && exp.ManagerID != managerID {
			continue
		}
		if exp.ExpenseDate.Before(from) || !exp.ExpenseDate.Before(to) {
			continue
		}
		result = append(result, exp)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.ExpenseDate.Equal(b.ExpenseDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.ExpenseDate.After(b.ExpenseDate) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) PaySalary(_ context.Context, payment domain.SalaryPayment, expense domain.Expense) (*domain.SalaryPayment, error) {
	if payment.UserID == "" || payment.AmountCents < 0 || !validMonth(payment.PaymentMonth) {
		return nil, store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	emp, exists := s.employees[payment.UserID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !emp.Active || monthKey(emp.JoinedAt) > payment.PaymentMonth {
		return nil, store.ErrNotEligible
	}
	key := paymentKey(payment.UserID, payment.PaymentMonth)
	if _, exists := s.paymentByUserMonth[key]; exists {
		return nil, store.ErrAlreadyPaid
	}

	if payment.ID == "" {
		payment.ID = xid.New("sal")
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	if payment.Status == "" {
		payment.Status = domain.SalaryStatusPaid
	}

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	expense.Category = domain.ExpenseCategorySalaries
	if expense.ExpenseDate.IsZero() {
		expense.ExpenseDate = payment.PaymentDate
	}
	if expense.RecordedAt.IsZero() {
		expense.RecordedAt = payment.PaymentDate
	}
	s.expenses[expense.ID] = expense

	s.salaryPayments[payment.ID] = payment
	s.paymentByUserMonth[key] = payment.ID
	saved := payment
	return &saved, nil
}

func (s *Store) ProcessMonthlySalaries(_ context.Context, managerID string, month string, createdBy string) (*domain.PayrollRun, error) {
	if managerID == "" || !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := &domain.PayrollRun{
		ManagerID:    managerID,
		PaymentMonth: month,
		Payments:     make([]domain.SalaryPayment, 0, 16),
	}

	employees := make([]domain.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		if emp.ManagerID != managerID || !emp.Active {
			continue
		}
		employees = append(employees, emp)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return cmpString(a.Name, b.Name)
	})

	now := time.Now().UTC()
	for _, emp := range employees {
		if monthKey(emp.JoinedAt) > month {
			run.SkippedNotEligible++
			continue
		}
		key := paymentKey(emp.ID, month)
		if _, exists := s.paymentByUserMonth[key]; exists {
			run.SkippedPaid++
			continue
		}

		payment := domain.SalaryPayment{
			ID:           xid.New("sal"),
			UserID:       emp.ID,
			AmountCents:  emp.BaseSalaryCents,
			PaymentMonth: month,
			PaymentDate:  now,
			Status:       domain.SalaryStatusPaid,
			CreatedBy:    createdBy,
		}
		s.salaryPayments[payment.ID] = payment
		s.paymentByUserMonth[key] = payment.ID
		run.PaidCount++
		run.TotalCents += payment.AmountCents
		run.Payments = append(run.Payments, payment)
	}

	if run.PaidCount > 0 {
		_, err := s.createExpenseLocked(domain.Expense{
			ManagerID:   managerID,
			Description: fmt.Sprintf("monthly salaries %s (%d employees)", month, run.PaidCount),
			AmountCents: run.TotalCents,
			Category:    domain.ExpenseCategorySalaries,
			ExpenseDate: now,
			RecordedAt:  now,
		})
		if err != nil {
			return nil, err
		}
	}

	return run, nil
}

func (s *Store) ListSalaryPayments(_ context.Context, month string, limit int) ([]domain.SalaryPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalaryPayment, 0, len(s.salaryPayments))
	for _, p := range s.salaryPayments {
		if month != "" && p.PaymentMonth != month {
			continue
		}
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.SalaryPayment) int {
		if a.PaymentDate.Equal(b.PaymentDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.PaymentDate.After(b.PaymentDate) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListUnpaidEmployees(_ context.Context, month string) ([]domain.Employee, error) {
	if !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		if !emp.Active || monthKey(emp.JoinedAt) > month {
			continue
		}
		if _, paid := s.paymentByUserMonth[paymentKey(emp.ID, month)]; paid {
			continue
		}
		result = append(result, emp)
	}
	slices.SortFunc(result, func(a, b domain.Employee) int {
		if a.ManagerID == b.ManagerID {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.ManagerID, b.ManagerID)
	})
	return result, nil
}

func (s *Store) GetSalesSummary(_ context.Context, managerID string, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{ManagerID: managerID}
	for _, bill := range s.billsByID {
		if managerID != "" && bill.ManagerID != managerID {
			continue
		}
		if bill.BillDate.Before(from) || !bill.BillDate.Before(to) {
			continue
		}
		if bill.Status != domain.BillStatusCompleted {
			continue
		}
		summary.BillCount++
		summary.RevenueCents += bill.TotalAmountCents
		for _, line := range bill.Lines {
			item, ok := s.managerItems[line.ManagerInventoryID]
			if !ok {
				continue
			}
			master, ok := s.masterItems[item.MasterItemID]
			if !ok {
				continue
			}
			summary.CostOfGoodsCents += int64(line.Quantity) * master.BuyingPriceCents
		}
	}
	summary.GrossMarginCents = summary.RevenueCents - summary.CostOfGoodsCents
	return summary, nil
}

func (s *Store) GetExpenseSummary(_ context.Context, managerID string, from time.Time, to time.Time) (domain.ExpenseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.ExpenseSummary{
		ManagerID:  managerID,
		ByCategory: make([]domain.ExpenseSummaryRow, 0, 4),
	}
	byCategory := map[string]*domain.ExpenseSummaryRow{}
	for _, exp := range s.expenses {
		if managerID != "" && exp.ManagerID != managerID {
			continue
		}
		if exp.ExpenseDate.Before(from) || !exp.ExpenseDate.Before(to) {
			continue
		}
		row := byCategory[exp.Category]
		if row == nil {
			row = &domain.ExpenseSummaryRow{Category: exp.Category}
			byCategory[exp.Category] = row
		}
		row.Count++
		row.TotalCents += exp.AmountCents
		summary.TotalCents += exp.AmountCents
	}
	for _, row := range byCategory {
		summary.ByCategory = append(summary.ByCategory, *row)
	}
	slices.SortFunc(summary.ByCategory, func(a, b domain.ExpenseSummaryRow) int {
		return cmpString(a.Category, b.Category)
	})
	return summary, nil
}

func (s *Store) CreateNotification(_ context.Context, n domain.Notification) error {
	if n.RecipientID == "" || strings.TrimSpace(n.Message) == "" {
		return store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = xid.New("ntf")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notifications[n.ID] = n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Notification, 0, 32)
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, n)
	}
	slices.SortFunc(result, func(a, b domain.Notification) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[id]
	if !exists {
		return store.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidOperation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidOperation
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidOperation
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func managerItemKey(managerID string, masterItemID string) string {
	return managerID + "::" + masterItemID
}

func paymentKey(userID string, month string) string {
	return userID + "::" + month
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneBill(src *domain.Bill) *domain.Bill {
	if src == nil {
		return nil
	}
	dup := *src
	lines := make([]domain.BillLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return &dup
}
