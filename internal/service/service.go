package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gudangpos/internal/cache"
	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Minimum markup over buying price for transferred stock, in percent.
const minMarkupPercent = 20

type Service struct {
	repo      store.Repository
	reports   cache.ReportCache
	reportTTL time.Duration
}

func New(repo store.Repository, reports cache.ReportCache, reportTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if reportTTL < time.Second {
		reportTTL = 5 * time.Minute
	}

	return &Service{
		repo:      repo,
		reports:   reports,
		reportTTL: reportTTL,
	}
}

func (s *Service) CreateMasterItem(ctx context.Context, req domain.MasterItemCreateRequest) (domain.MasterItem, error) {
	actor, err := requireRole(ctx, domain.RoleCEO)
	if err != nil {
		return domain.MasterItem{}, err
	}

	req.ProductName = strings.TrimSpace(req.ProductName)
	if req.ProductName == "" {
		return domain.MasterItem{}, store.ErrInvalidOperation
	}
	if req.BuyingPriceCents < 1 || req.InitialQuantity < 0 || req.MinStockLevel < 0 {
		return domain.MasterItem{}, store.ErrInvalidOperation
	}

	item := domain.MasterItem{
		ID:               xid.New("itm"),
		ProductName:      req.ProductName,
		BuyingPriceCents: req.BuyingPriceCents,
		TotalQuantity:    req.InitialQuantity,
		MinStockLevel:    req.MinStockLevel,
		CreatedAt:        time.Now().UTC(),
	}

	created, err := s.repo.CreateMasterItem(ctx, item)
	if err != nil {
		return domain.MasterItem{}, err
	}

	s.logAudit(ctx, "master_item_create", "master_item", created.ID, fmt.Sprintf("name=%s,buying=%d,qty=%d,by=%s", created.ProductName, created.BuyingPriceCents, created.TotalQuantity, actor.Username))
	return *created, nil
}

func (s *Service) GetMasterItem(ctx context.Context, id string) (domain.MasterItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MasterItem{}, store.ErrInvalidOperation
	}
	item, err := s.repo.GetMasterItem(ctx, id)
	if err != nil {
		return domain.MasterItem{}, err
	}
	return *item, nil
}

func (s *Service) ListMasterItems(ctx context.Context) ([]domain.MasterItem, error) {
	return s.repo.ListMasterItems(ctx)
}

func (s *Service) UpdateMasterItem(ctx context.Context, id string, req domain.MasterItemUpdateRequest) (domain.MasterItem, error) {
	if _, err := requireRole(ctx, domain.RoleCEO); err != nil {
		return domain.MasterItem{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MasterItem{}, store.ErrInvalidOperation
	}

	existing, err := s.repo.GetMasterItem(ctx, id)
	if err != nil {
		return domain.MasterItem{}, err
	}

	updated := *existing
	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name == "" {
			return domain.MasterItem{}, store.ErrInvalidOperation
		}
		updated.ProductName = name
	}
	if req.BuyingPriceCents != nil {
		if *req.BuyingPriceCents < 1 {
			return domain.MasterItem{}, store.ErrInvalidOperation
		}
		updated.BuyingPriceCents = *req.BuyingPriceCents
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.MasterItem{}, store.ErrInvalidOperation
		}
		updated.MinStockLevel = *req.MinStockLevel
	}

	saved, err := s.repo.UpdateMasterItem(ctx, updated)
	if err != nil {
		return domain.MasterItem{}, err
	}

	s.logAudit(ctx, "master_item_update", "master_item", saved.ID, fmt.Sprintf("name=%s,buying=%d,min_stock=%d", saved.ProductName, saved.BuyingPriceCents, saved.MinStockLevel))
	return *saved, nil
}

func (s *Service) RestockMasterItem(ctx context.Context, id string, req domain.RestockRequest) (domain.MasterItem, error) {
	if _, err := requireRole(ctx, domain.RoleCEO); err != nil {
		return domain.MasterItem{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" || req.Quantity < 1 {
		return domain.MasterItem{}, store.ErrInvalidOperation
	}

	item, err := s.repo.RestockMasterItem(ctx, id, req.Quantity)
	if err != nil {
		return domain.MasterItem{}, err
	}

	s.logAudit(ctx, "master_item_restock", "master_item", item.ID, fmt.Sprintf("qty=%d,total=%d", req.Quantity, item.TotalQuantity))
	return *item, nil
}

// TransferStock moves quantity from master inventory into a manager's
// inventory. Repeated transfers for the same manager and item merge into
// one row with the selling price taking the latest value.
func (s *Service) TransferStock(ctx context.Context, req domain.TransferRequest) (domain.TransferResponse, error) {
	if _, err := requireRole(ctx, domain.RoleCEO); err != nil {
		return domain.TransferResponse{}, err
	}

	req.ManagerID = strings.TrimSpace(req.ManagerID)
	req.MasterItemID = strings.TrimSpace(req.MasterItemID)
	if req.ManagerID == "" || req.MasterItemID == "" {
		return domain.TransferResponse{}, store.ErrInvalidOperation
	}
	if req.Quantity < 1 || req.SellingPriceCents < 1 {
		return domain.TransferResponse{}, store.ErrInvalidOperation
	}

	master, err := s.repo.GetMasterItem(ctx, req.MasterItemID)
	if err != nil {
		return domain.TransferResponse{}, err
	}
	if req.SellingPriceCents*100 < master.BuyingPriceCents*(100+minMarkupPercent) {
		return domain.TransferResponse{}, fmt.Errorf("%w: selling price below %d%% markup", store.ErrInvalidOperation, minMarkupPercent)
	}

	item, err := s.repo.TransferStock(ctx, req)
	if err != nil {
		return domain.TransferResponse{}, err
	}

	s.logAudit(ctx, "stock_transfer", "manager_item", item.ID, fmt.Sprintf("manager=%s,item=%s,qty=%d,selling=%d", req.ManagerID, req.MasterItemID, req.Quantity, req.SellingPriceCents))

	if remaining, err := s.repo.GetMasterItem(ctx, req.MasterItemID); err == nil {
		if remaining.TotalQuantity <= remaining.MinStockLevel {
			s.notifyLowStock(ctx, req.ManagerID, fmt.Sprintf("master stock low for %s: %d left (min %d)", remaining.ProductName, remaining.TotalQuantity, remaining.MinStockLevel))
		}
	}

	return domain.TransferResponse{ManagerItem: *item}, nil
}

func (s *Service) GetManagerItem(ctx context.Context, id string) (domain.ManagerItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ManagerItem{}, store.ErrInvalidOperation
	}
	item, err := s.repo.GetManagerItem(ctx, id)
	if err != nil {
		return domain.ManagerItem{}, err
	}
	return *item, nil
}

func (s *Service) ListManagerItems(ctx context.Context, managerID string) ([]domain.ManagerItem, error) {
	managerID = strings.TrimSpace(managerID)
	if managerID == "" {
		if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleManager {
			managerID = actor.Username
		}
	}
	return s.repo.ListManagerItems(ctx, managerID)
}

// CreateBill records a sale against manager inventory. Every line is
// decremented inside one transaction; any shortage rejects the whole bill.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.BillResponse, error) {
	actor, err := requireRole(ctx, domain.RoleCashier, domain.RoleManager)
	if err != nil {
		return domain.BillResponse{}, err
	}

	req.ManagerID = strings.TrimSpace(req.ManagerID)
	if req.ManagerID == "" && actor.Role == domain.RoleManager {
		req.ManagerID = actor.Username
	}
	if req.ManagerID == "" || len(req.Lines) == 0 {
		return domain.BillResponse{}, store.ErrInvalidOperation
	}

	lines := make([]domain.BillLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		line.ManagerInventoryID = strings.TrimSpace(line.ManagerInventoryID)
		if line.ManagerInventoryID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 {
			return domain.BillResponse{}, store.ErrInvalidOperation
		}
		line.SubtotalCents = int64(line.Quantity) * line.UnitPriceCents
		lines = append(lines, line)
	}

	req.RequestKey = strings.TrimSpace(req.RequestKey)
	if req.RequestKey != "" {
		if existing, err := s.repo.GetBillByNumber(ctx, req.RequestKey); err == nil {
			return domain.BillResponse{Bill: *existing}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.BillResponse{}, err
		}
	}

	now := time.Now().UTC()
	billNumber := req.RequestKey
	if billNumber == "" {
		billNumber = fmt.Sprintf("BILL-%s-%s", now.Format("20060102-150405"), xid.Suffix(4))
	}

	bill := domain.Bill{
		ID:         xid.New("bill"),
		BillNumber: billNumber,
		CashierID:  actor.Username,
		ManagerID:  req.ManagerID,
		BillDate:   now,
		Status:     domain.BillStatusCompleted,
		Lines:      lines,
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.BillResponse{}, err
	}

	s.logAudit(ctx, "bill_create", "bill", created.ID, fmt.Sprintf("number=%s,manager=%s,lines=%d,total=%d", created.BillNumber, created.ManagerID, len(created.Lines), created.TotalAmountCents))

	if err := s.reports.Invalidate(ctx, created.ManagerID); err != nil {
		log.Printf("[service] WARN: failed to invalidate sales report cache manager=%s: %v", created.ManagerID, err)
	}

	for _, line := range created.Lines {
		item, err := s.repo.GetManagerItem(ctx, line.ManagerInventoryID)
		if err != nil {
			continue
		}
		if item.CurrentQuantity <= item.MinStockLevel {
			s.notifyLowStock(ctx, item.ManagerID, fmt.Sprintf("stock low for %s: %d left (min %d)", item.ProductName, item.CurrentQuantity, item.MinStockLevel))
		}
	}

	return domain.BillResponse{Bill: *created}, nil
}

func (s *Service) GetBillByNumber(ctx context.Context, billNumber string) (domain.BillResponse, error) {
	billNumber = strings.TrimSpace(billNumber)
	if billNumber == "" {
		return domain.BillResponse{}, store.ErrInvalidOperation
	}
	bill, err := s.repo.GetBillByNumber(ctx, billNumber)
	if err != nil {
		return domain.BillResponse{}, err
	}
	return domain.BillResponse{Bill: *bill}, nil
}

func (s *Service) ListBills(ctx context.Context, managerID string, fromDate string, toDate string, limit int) (domain.BillListResponse, error) {
	from, to, err := parseDateRange(fromDate, toDate, 30)
	if err != nil {
		return domain.BillListResponse{}, err
	}
	if limit < 1 {
		limit = 100
	}

	bills, err := s.repo.ListBills(ctx, strings.TrimSpace(managerID), from, to, limit)
	if err != nil {
		return domain.BillListResponse{}, err
	}
	return domain.BillListResponse{Bills: bills}, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	actor, err := requireRole(ctx, domain.RoleManager, domain.RoleCEO)
	if err != nil {
		return domain.Employee{}, err
	}

	req.ManagerID = strings.TrimSpace(req.ManagerID)
	if actor.Role == domain.RoleManager {
		req.ManagerID = actor.Username
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.ManagerID == "" || req.Name == "" || req.Role == "" {
		return domain.Employee{}, store.ErrInvalidOperation
	}
	if req.BaseSalaryCents < 1 {
		return domain.Employee{}, store.ErrInvalidOperation
	}

	joinedAt := time.Now().UTC()
	if strings.TrimSpace(req.JoinedAt) != "" {
		parsed, err := time.Parse("2006-01-02", req.JoinedAt)
		if err != nil {
			return domain.Employee{}, store.ErrInvalidOperation
		}
		joinedAt = parsed.UTC()
	}

	emp := domain.Employee{
		ID:              xid.New("emp"),
		ManagerID:       req.ManagerID,
		Name:            req.Name,
		Role:            req.Role,
		BaseSalaryCents: req.BaseSalaryCents,
		JoinedAt:        joinedAt,
		Active:          true,
	}

	created, err := s.repo.CreateEmployee(ctx, emp)
	if err != nil {
		return domain.Employee{}, err
	}

	s.logAudit(ctx, "employee_create", "employee", created.ID, fmt.Sprintf("name=%s,role=%s,base=%d", created.Name, created.Role, created.BaseSalaryCents))
	return *created, nil
}

func (s *Service) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Employee{}, store.ErrInvalidOperation
	}
	emp, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	return *emp, nil
}

func (s *Service) ListEmployees(ctx context.Context, managerID string, activeOnly bool) ([]domain.Employee, error) {
	managerID = strings.TrimSpace(managerID)
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleManager {
		managerID = actor.Username
	}
	return s.repo.ListEmployees(ctx, managerID, activeOnly)
}

func (s *Service) DeactivateEmployee(ctx context.Context, id string) (domain.Employee, error) {
	if _, err := requireRole(ctx, domain.RoleManager, domain.RoleCEO); err != nil {
		return domain.Employee{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Employee{}, store.ErrInvalidOperation
	}

	emp, err := s.repo.DeactivateEmployee(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Employee{}, err
	}

	s.logAudit(ctx, "employee_deactivate", "employee", emp.ID, emp.Name)
	return *emp, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	actor, err := requireRole(ctx, domain.RoleManager, domain.RoleCEO)
	if err != nil {
		return domain.Expense{}, err
	}

	req.ManagerID = strings.TrimSpace(req.ManagerID)
	if actor.Role == domain.RoleManager {
		req.ManagerID = actor.Username
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.ManagerID == "" || req.Description == "" {
		return domain.Expense{}, store.ErrInvalidOperation
	}
	if req.AmountCents < 1 || !isExpenseCategory(req.Category) {
		return domain.Expense{}, store.ErrInvalidOperation
	}

	now := time.Now().UTC()
	expenseDate := now
	if strings.TrimSpace(req.ExpenseDate) != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			return domain.Expense{}, store.ErrInvalidOperation
		}
		expenseDate = parsed.UTC()
	}

	exp := domain.Expense{
		ID:          xid.New("exp"),
		ManagerID:   req.ManagerID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Category:    req.Category,
		ExpenseDate: expenseDate,
		RecordedAt:  now,
	}

	created, err := s.repo.CreateExpense(ctx, exp)
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("category=%s,amount=%d", created.Category, created.AmountCents))
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, managerID string, fromDate string, toDate string, limit int) ([]domain.Expense, error) {
	from, to, err := parseDateRange(fromDate, toDate, 30)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListExpenses(ctx, strings.TrimSpace(managerID), from, to, limit)
}

// PaySalary pays one employee for one month. The amount is base salary plus
// bonus plus adjustment, and the payment is always paired with a salaries
// expense in the same transaction. Paying the same employee twice for one
// month returns ErrAlreadyPaid.
func (s *Service) PaySalary(ctx context.Context, req domain.PaySalaryRequest) (domain.PaySalaryResponse, error) {
	actor, err := requireRole(ctx, domain.RoleManager, domain.RoleCEO)
	if err != nil {
		return domain.PaySalaryResponse{}, err
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.PaymentMonth = strings.TrimSpace(req.PaymentMonth)
	if req.UserID == "" || !validMonth(req.PaymentMonth) {
		return domain.PaySalaryResponse{}, store.ErrInvalidOperation
	}

	emp, err := s.repo.GetEmployee(ctx, req.UserID)
	if err != nil {
		return domain.PaySalaryResponse{}, err
	}

	amount := emp.BaseSalaryCents + req.BonusCents + req.AdjustmentCents
	if amount < 0 {
		return domain.PaySalaryResponse{}, fmt.Errorf("%w: negative salary amount", store.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	payment := domain.SalaryPayment{
		ID:           xid.New("sal"),
		UserID:       emp.ID,
		AmountCents:  amount,
		PaymentMonth: req.PaymentMonth,
		PaymentDate:  now,
		Status:       domain.SalaryStatusPaid,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedBy:    actor.Username,
	}
	expense := domain.Expense{
		ID:          xid.New("exp"),
		ManagerID:   emp.ManagerID,
		Description: fmt.Sprintf("salary %s for %s", req.PaymentMonth, emp.Name),
		AmountCents: amount,
		Category:    domain.ExpenseCategorySalaries,
		ExpenseDate: now,
		RecordedAt:  now,
	}

	paid, err := s.repo.PaySalary(ctx, payment, expense)
	if err != nil {
		return domain.PaySalaryResponse{}, err
	}

	s.logAudit(ctx, "salary_pay", "salary_payment", paid.ID, fmt.Sprintf("employee=%s,month=%s,amount=%d", emp.ID, paid.PaymentMonth, paid.AmountCents))
	return domain.PaySalaryResponse{Payment: *paid}, nil
}

// ProcessMonthlySalaries pays every eligible unpaid employee of one manager
// for the month in a single transaction, recording one aggregate expense.
func (s *Service) ProcessMonthlySalaries(ctx context.Context, req domain.PayrollRunRequest) (domain.PayrollRun, error) {
	actor, err := requireRole(ctx, domain.RoleManager, domain.RoleCEO)
	if err != nil {
		return domain.PayrollRun{}, err
	}

	req.ManagerID = strings.TrimSpace(req.ManagerID)
	if actor.Role == domain.RoleManager {
		req.ManagerID = actor.Username
	}
	req.PaymentMonth = strings.TrimSpace(req.PaymentMonth)
	if req.ManagerID == "" || !validMonth(req.PaymentMonth) {
		return domain.PayrollRun{}, store.ErrInvalidOperation
	}

	run, err := s.repo.ProcessMonthlySalaries(ctx, req.ManagerID, req.PaymentMonth, actor.Username)
	if err != nil {
		return domain.PayrollRun{}, err
	}

	s.logAudit(ctx, "payroll_run", "payroll", req.ManagerID, fmt.Sprintf("month=%s,paid=%d,skipped_paid=%d,skipped_not_eligible=%d,total=%d", run.PaymentMonth, run.PaidCount, run.SkippedPaid, run.SkippedNotEligible, run.TotalCents))
	return *run, nil
}

func (s *Service) ListSalaryPayments(ctx context.Context, month string, limit int) ([]domain.SalaryPayment, error) {
	month = strings.TrimSpace(month)
	if month != "" && !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSalaryPayments(ctx, month, limit)
}

func (s *Service) ListUnpaidEmployees(ctx context.Context, month string) ([]domain.Employee, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	if !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}
	return s.repo.ListUnpaidEmployees(ctx, month)
}

func (s *Service) SalesReport(ctx context.Context, managerID string, fromDate string, toDate string) (domain.SalesSummary, error) {
	managerID = strings.TrimSpace(managerID)
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleManager {
		managerID = actor.Username
	}
	from, to, err := parseDateRange(fromDate, toDate, 30)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	key := cache.SalesSummaryKey(managerID, from, to)
	if cached, ok, err := s.reports.GetSalesSummary(ctx, key); err != nil {
		log.Printf("[service] WARN: sales report cache read failed manager=%s: %v", managerID, err)
	} else if ok {
		return *cached, nil
	}

	summary, err := s.repo.GetSalesSummary(ctx, managerID, from, to)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary.From = from.Format("2006-01-02")
	summary.To = to.Format("2006-01-02")

	if err := s.reports.SetSalesSummary(ctx, key, &summary, s.reportTTL); err != nil {
		log.Printf("[service] WARN: sales report cache write failed manager=%s: %v", managerID, err)
	}

	return summary, nil
}

func (s *Service) ExpenseReport(ctx context.Context, managerID string, fromDate string, toDate string) (domain.ExpenseSummary, error) {
	managerID = strings.TrimSpace(managerID)
	if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleManager {
		managerID = actor.Username
	}
	from, to, err := parseDateRange(fromDate, toDate, 30)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}

	summary, err := s.repo.GetExpenseSummary(ctx, managerID, from, to)
	if err != nil {
		return domain.ExpenseSummary{}, err
	}
	summary.From = from.Format("2006-01-02")
	summary.To = to.Format("2006-01-02")
	return summary, nil
}

func (s *Service) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authentication required")
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListNotifications(ctx, actor.Username, unreadOnly, limit)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidOperation
	}
	return s.repo.MarkNotificationRead(ctx, id)
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireRole(ctx, domain.RoleCEO); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidOperation
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%s role required", strings.Join(roles, " or "))
}

func (s *Service) notifyLowStock(ctx context.Context, recipientID string, message string) {
	if err := s.repo.CreateNotification(ctx, domain.Notification{
		ID:          xid.New("ntf"),
		RecipientID: recipientID,
		Kind:        domain.NotificationLowStock,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to create low stock notification recipient=%s: %v", recipientID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func parseDateRange(fromDate string, toDate string, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	from := to.Add(-time.Duration(defaultDays) * 24 * time.Hour)

	if strings.TrimSpace(fromDate) != "" {
		parsed, err := time.Parse("2006-01-02", fromDate)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrInvalidOperation
		}
		from = parsed.UTC()
	}
	if strings.TrimSpace(toDate) != "" {
		parsed, err := time.Parse("2006-01-02", toDate)
		if err != nil {
			return time.Time{}, time.Time{}, store.ErrInvalidOperation
		}
		// End date is inclusive, the range itself is half-open.
		to = parsed.UTC().Add(24 * time.Hour)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, store.ErrInvalidOperation
	}
	return from, to, nil
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

func isExpenseCategory(category string) bool {
	switch category {
	case domain.ExpenseCategorySalaries, domain.ExpenseCategoryOperations, domain.ExpenseCategoryUtilities, domain.ExpenseCategoryOther:
		return true
	default:
		return false
	}
}
