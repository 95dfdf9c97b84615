package store

import (
	"context"
	"errors"
	"time"

	"gudangpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyPaid       = errors.New("salary already paid for month")
	ErrNotEligible       = errors.New("employee not eligible for month")
	ErrInvalidOperation  = errors.New("invalid operation")
)

type Repository interface {
	CreateMasterItem(ctx context.Context, item domain.MasterItem) (*domain.MasterItem, error)
	GetMasterItem(ctx context.Context, id string) (*domain.MasterItem, error)
	ListMasterItems(ctx context.Context) ([]domain.MasterItem, error)
	UpdateMasterItem(ctx context.Context, item domain.MasterItem) (*domain.MasterItem, error)
	RestockMasterItem(ctx context.Context, id string, qty int) (*domain.MasterItem, error)

	TransferStock(ctx context.Context, req domain.TransferRequest) (*domain.ManagerItem, error)
	GetManagerItem(ctx context.Context, id string) (*domain.ManagerItem, error)
	ListManagerItems(ctx context.Context, managerID string) ([]domain.ManagerItem, error)

	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBillByNumber(ctx context.Context, billNumber string) (*domain.Bill, error)
	ListBills(ctx context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Bill, error)

	CreateEmployee(ctx context.Context, emp domain.Employee) (*domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	ListEmployees(ctx context.Context, managerID string, activeOnly bool) ([]domain.Employee, error)
	DeactivateEmployee(ctx context.Context, id string, at time.Time) (*domain.Employee, error)

	CreateExpense(ctx context.Context, exp domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Expense, error)

	PaySalary(ctx context.Context, payment domain.SalaryPayment, expense domain.Expense) (*domain.SalaryPayment, error)
	ProcessMonthlySalaries(ctx context.Context, managerID string, month string, createdBy string) (*domain.PayrollRun, error)
	ListSalaryPayments(ctx context.Context, month string, limit int) ([]domain.SalaryPayment, error)
	ListUnpaidEmployees(ctx context.Context, month string) ([]domain.Employee, error)

	GetSalesSummary(ctx context.Context, managerID string, from time.Time, to time.Time) (domain.SalesSummary, error)
	GetExpenseSummary(ctx context.Context, managerID string, from time.Time, to time.Time) (domain.ExpenseSummary, error)

	CreateNotification(ctx context.Context, n domain.Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
