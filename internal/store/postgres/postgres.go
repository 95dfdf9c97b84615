package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateMasterItem(ctx context.Context, item domain.MasterItem) (*domain.MasterItem, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO master_inventory (id, product_name, buying_price_cents, total_quantity, min_stock_level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, item.ID, item.ProductName, item.BuyingPriceCents, item.TotalQuantity, item.MinStockLevel, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidOperation
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetMasterItem(ctx context.Context, id string) (*domain.MasterItem, error) {
	var item domain.MasterItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_name, buying_price_cents, total_quantity, min_stock_level, created_at
		FROM master_inventory
		WHERE id = $1
	`, id).Scan(&item.ID, &item.ProductName, &item.BuyingPriceCents, &item.TotalQuantity, &item.MinStockLevel, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) ListMasterItems(ctx context.Context) ([]domain.MasterItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_name, buying_price_cents, total_quantity, min_stock_level, created_at
		FROM master_inventory
		ORDER BY product_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MasterItem, 0, 128)
	for rows.Next() {
		var item domain.MasterItem
		if err := rows.Scan(&item.ID, &item.ProductName, &item.BuyingPriceCents, &item.TotalQuantity, &item.MinStockLevel, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateMasterItem(ctx context.Context, item domain.MasterItem) (*domain.MasterItem, error) {
	item.ProductName = strings.TrimSpace(item.ProductName)
	if item.ID == "" || item.ProductName == "" || item.BuyingPriceCents < 1 || item.MinStockLevel < 0 {
		return nil, store.ErrInvalidOperation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE master_inventory
		SET product_name = $2, buying_price_cents = $3, min_stock_level = $4, updated_at = now()
		WHERE id = $1
	`, item.ID, item.ProductName, item.BuyingPriceCents, item.MinStockLevel)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetMasterItem(ctx, item.ID)
}

func (s *Store) RestockMasterItem(ctx context.Context, id string, qty int) (*domain.MasterItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidOperation
	}

	var item domain.MasterItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE master_inventory
		SET total_quantity = total_quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING id, product_name, buying_price_cents, total_quantity, min_stock_level, created_at
	`, id, qty).Scan(&item.ID, &item.ProductName, &item.BuyingPriceCents, &item.TotalQuantity, &item.MinStockLevel, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) TransferStock(ctx context.Context, req domain.TransferRequest) (*domain.ManagerItem, error) {
	if req.ManagerID == "" || req.MasterItemID == "" || req.Quantity < 1 || req.SellingPriceCents < 1 {
		return nil, store.ErrInvalidOperation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE master_inventory
		SET total_quantity = total_quantity - $1, updated_at = now()
		WHERE id = $2 AND total_quantity >= $1
	`, req.Quantity, req.MasterItemID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM master_inventory WHERE id = $1)
		`, req.MasterItemID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrInsufficientStock
	}

	var item domain.ManagerItem
	err = tx.QueryRowContext(ctx, `
		INSERT INTO manager_inventory (id, manager_id, master_item_id, selling_price_cents, current_quantity, min_stock_level, last_updated)
		VALUES ($1,$2,$3,$4,$5,0,now())
		ON CONFLICT (manager_id, master_item_id)
		DO UPDATE SET
			current_quantity = manager_inventory.current_quantity + EXCLUDED.current_quantity,
			selling_price_cents = EXCLUDED.selling_price_cents,
			last_updated = now()
		RETURNING id, manager_id, master_item_id, selling_price_cents, current_quantity, min_stock_level, last_updated
	`, xid.New("mi"), req.ManagerID, req.MasterItemID, req.SellingPriceCents, req.Quantity).Scan(
		&item.ID,
		&item.ManagerID,
		&item.MasterItemID,
		&item.SellingPriceCents,
		&item.CurrentQuantity,
		&item.MinStockLevel,
		&item.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	item.LastUpdated = item.LastUpdated.UTC()
	return &item, nil
}

func (s *Store) GetManagerItem(ctx context.Context, id string) (*domain.ManagerItem, error) {
	var item domain.ManagerItem
	err := s.db.QueryRowContext(ctx, `
		SELECT mi.id, mi.manager_id, mi.master_item_id, m.product_name,
			mi.selling_price_cents, mi.current_quantity, mi.min_stock_level, mi.last_updated
		FROM manager_inventory mi
		JOIN master_inventory m ON m.id = mi.master_item_id
		WHERE mi.id = $1
	`, id).Scan(
		&item.ID,
		&item.ManagerID,
		&item.MasterItemID,
		&item.ProductName,
		&item.SellingPriceCents,
		&item.CurrentQuantity,
		&item.MinStockLevel,
		&item.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.LastUpdated = item.LastUpdated.UTC()
	return &item, nil
}

func (s *Store) ListManagerItems(ctx context.Context, managerID string) ([]domain.ManagerItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mi.id, mi.manager_id, mi.master_item_id, m.product_name,
			mi.selling_price_cents, mi.current_quantity, mi.min_stock_level, mi.last_updated
		FROM manager_inventory mi
		JOIN master_inventory m ON m.id = mi.master_item_id
		WHERE mi.manager_id = $1
		ORDER BY m.product_name ASC
	`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ManagerItem, 0, 64)
	for rows.Next() {
		var item domain.ManagerItem
		if err := rows.Scan(
			&item.ID,
			&item.ManagerID,
			&item.MasterItemID,
			&item.ProductName,
			&item.SellingPriceCents,
			&item.CurrentQuantity,
			&item.MinStockLevel,
			&item.LastUpdated,
		); err != nil {
			return nil, err
		}
		item.LastUpdated = item.LastUpdated.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
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

	total := int64(0)
	for _, line := range bill.Lines {
		if line.ManagerInventoryID == "" || line.Quantity < 1 || line.UnitPriceCents < 0 || line.SubtotalCents < 0 {
			return nil, store.ErrInvalidOperation
		}
		total += line.SubtotalCents
	}
	bill.TotalAmountCents = total

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, bill_number, cashier_id, manager_id, total_amount_cents, bill_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, bill.ID, bill.BillNumber, bill.CashierID, bill.ManagerID, bill.TotalAmountCents, bill.BillDate, bill.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidOperation
		}
		return nil, err
	}

	for _, line := range bill.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (bill_id, manager_inventory_id, quantity, unit_price_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, bill.ID, line.ManagerInventoryID, line.Quantity, line.UnitPriceCents, line.SubtotalCents)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, store.ErrNotFound
			}
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE manager_inventory
			SET current_quantity = current_quantity - $1, last_updated = now()
			WHERE id = $2 AND current_quantity >= $1
		`, line.Quantity, line.ManagerInventoryID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS (SELECT 1 FROM manager_inventory WHERE id = $1)
			`, line.ManagerInventoryID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInsufficientStock
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	saved := bill
	return &saved, nil
}

func (s *Store) GetBillByNumber(ctx context.Context, billNumber string) (*domain.Bill, error) {
	var bill domain.Bill
	err := s.db.QueryRowContext(ctx, `
		SELECT id, bill_number, cashier_id, manager_id, total_amount_cents, bill_date, status
		FROM bills
		WHERE bill_number = $1
	`, billNumber).Scan(
		&bill.ID,
		&bill.BillNumber,
		&bill.CashierID,
		&bill.ManagerID,
		&bill.TotalAmountCents,
		&bill.BillDate,
		&bill.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	bill.BillDate = bill.BillDate.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT manager_inventory_id, quantity, unit_price_cents, subtotal_cents
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY id ASC
	`, bill.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.BillLine, 0, 8)
	for rows.Next() {
		var line domain.BillLine
		if err := rows.Scan(&line.ManagerInventoryID, &line.Quantity, &line.UnitPriceCents, &line.SubtotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	bill.Lines = lines
	return &bill, nil
}

func (s *Store) ListBills(ctx context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Bill, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_number, cashier_id, manager_id, total_amount_cents, bill_date, status
		FROM bills
		WHERE ($1 = '' OR manager_id = $1)
			AND bill_date >= $2
			AND bill_date < $3
		ORDER BY bill_date DESC
		LIMIT $4
	`, managerID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, limit)
	for rows.Next() {
		var bill domain.Bill
		if err := rows.Scan(&bill.ID, &bill.BillNumber, &bill.CashierID, &bill.ManagerID, &bill.TotalAmountCents, &bill.BillDate, &bill.Status); err != nil {
			return nil, err
		}
		bill.BillDate = bill.BillDate.UTC()
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) CreateEmployee(ctx context.Context, emp domain.Employee) (*domain.Employee, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, manager_id, name, role, base_salary_cents, joined_at, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, emp.ID, emp.ManagerID, emp.Name, emp.Role, emp.BaseSalaryCents, emp.JoinedAt, emp.Active)
	if err != nil {
		return nil, err
	}
	created := emp
	return &created, nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var emp domain.Employee
	var deactivatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, manager_id, name, role, base_salary_cents, joined_at, active, deactivated_at
		FROM employees
		WHERE id = $1
	`, id).Scan(&emp.ID, &emp.ManagerID, &emp.Name, &emp.Role, &emp.BaseSalaryCents, &emp.JoinedAt, &emp.Active, &deactivatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	emp.JoinedAt = emp.JoinedAt.UTC()
	if deactivatedAt.Valid {
		at := deactivatedAt.Time.UTC()
		emp.DeactivatedAt = &at
	}
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, managerID string, activeOnly bool) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manager_id, name, role, base_salary_cents, joined_at, active, deactivated_at
		FROM employees
		WHERE ($1 = '' OR manager_id = $1)
			AND ($2 = false OR active = true)
		ORDER BY name ASC
	`, managerID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 32)
	for rows.Next() {
		var emp domain.Employee
		var deactivatedAt sql.NullTime
		if err := rows.Scan(&emp.ID, &emp.ManagerID, &emp.Name, &emp.Role, &emp.BaseSalaryCents, &emp.JoinedAt, &emp.Active, &deactivatedAt); err != nil {
			return nil, err
		}
		emp.JoinedAt = emp.JoinedAt.UTC()
		if deactivatedAt.Valid {
			at := deactivatedAt.Time.UTC()
			emp.DeactivatedAt = &at
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) DeactivateEmployee(ctx context.Context, id string, at time.Time) (*domain.Employee, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var emp domain.Employee
	var deactivatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE employees
		SET active = false, deactivated_at = $2
		WHERE id = $1 AND active = true
		RETURNING id, manager_id, name, role, base_salary_cents, joined_at, active, deactivated_at
	`, id, at).Scan(&emp.ID, &emp.ManagerID, &emp.Name, &emp.Role, &emp.BaseSalaryCents, &emp.JoinedAt, &emp.Active, &deactivatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	emp.JoinedAt = emp.JoinedAt.UTC()
	if deactivatedAt.Valid {
		t := deactivatedAt.Time.UTC()
		emp.DeactivatedAt = &t
	}
	return &emp, nil
}

func (s *Store) CreateExpense(ctx context.Context, exp domain.Expense) (*domain.Expense, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, manager_id, description, amount_cents, category, expense_date, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, exp.ID, exp.ManagerID, exp.Description, exp.AmountCents, exp.Category, exp.ExpenseDate, exp.RecordedAt)
	if err != nil {
		return nil, err
	}
	created := exp
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, managerID string, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manager_id, description, amount_cents, category, expense_date, recorded_at
		FROM expenses
		WHERE ($1 = '' OR manager_id = $1)
			AND expense_date >= $2
			AND expense_date < $3
		ORDER BY expense_date DESC
		LIMIT $4
	`, managerID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var exp domain.Expense
		if err := rows.Scan(&exp.ID, &exp.ManagerID, &exp.Description, &exp.AmountCents, &exp.Category, &exp.ExpenseDate, &exp.RecordedAt); err != nil {
			return nil, err
		}
		exp.ExpenseDate = exp.ExpenseDate.UTC()
		exp.RecordedAt = exp.RecordedAt.UTC()
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) PaySalary(ctx context.Context, payment domain.SalaryPayment, expense domain.Expense) (*domain.SalaryPayment, error) {
	if payment.UserID == "" || payment.AmountCents < 0 || !validMonth(payment.PaymentMonth) {
		return nil, store.ErrInvalidOperation
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var active bool
	var joinedAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT active, joined_at
		FROM employees
		WHERE id = $1
		FOR UPDATE
	`, payment.UserID).Scan(&active, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !active || monthKey(joinedAt) > payment.PaymentMonth {
		return nil, store.ErrNotEligible
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM salary_payments WHERE user_id = $1 AND payment_month = $2
		)
	`, payment.UserID, payment.PaymentMonth).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrAlreadyPaid
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO salary_payments (id, user_id, amount_cents, payment_month, payment_date, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, payment.ID, payment.UserID, payment.AmountCents, payment.PaymentMonth, payment.PaymentDate, payment.Status, nullIfEmpty(payment.Notes), payment.CreatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyPaid
		}
		return nil, err
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, manager_id, description, amount_cents, category, expense_date, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, expense.ID, expense.ManagerID, expense.Description, expense.AmountCents, expense.Category, expense.ExpenseDate, expense.RecordedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	saved := payment
	return &saved, nil
}

func (s *Store) ProcessMonthlySalaries(ctx context.Context, managerID string, month string, createdBy string) (*domain.PayrollRun, error) {
	if managerID == "" || !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}

	run := &domain.PayrollRun{
		ManagerID:    managerID,
		PaymentMonth: month,
		Payments:     make([]domain.SalaryPayment, 0, 16),
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, base_salary_cents, joined_at
		FROM employees
		WHERE manager_id = $1 AND active = true
		ORDER BY name ASC
		FOR UPDATE
	`, managerID)
	if err != nil {
		return nil, err
	}
	type payrollRow struct {
		id       string
		name     string
		salary   int64
		joinedAt time.Time
	}
	employees := make([]payrollRow, 0, 32)
	for rows.Next() {
		var row payrollRow
		if err := rows.Scan(&row.id, &row.name, &row.salary, &row.joinedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		employees = append(employees, row)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	now := time.Now().UTC()
	for _, emp := range employees {
		if monthKey(emp.joinedAt) > month {
			run.SkippedNotEligible++
			continue
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM salary_payments WHERE user_id = $1 AND payment_month = $2
			)
		`, emp.id, month).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if exists {
			run.SkippedPaid++
			continue
		}

		payment := domain.SalaryPayment{
			ID:           xid.New("sal"),
			UserID:       emp.id,
			AmountCents:  emp.salary,
			PaymentMonth: month,
			PaymentDate:  now,
			Status:       domain.SalaryStatusPaid,
			CreatedBy:    createdBy,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO salary_payments (id, user_id, amount_cents, payment_month, payment_date, status, notes, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,NULL,$7)
		`, payment.ID, payment.UserID, payment.AmountCents, payment.PaymentMonth, payment.PaymentDate, payment.Status, payment.CreatedBy)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrAlreadyPaid
			}
			return nil, err
		}

		run.PaidCount++
		run.TotalCents += payment.AmountCents
		run.Payments = append(run.Payments, payment)
	}

	if run.PaidCount > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expenses (id, manager_id, description, amount_cents, category, expense_date, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, xid.New("exp"), managerID, fmt.Sprintf("monthly salaries %s (%d employees)", month, run.PaidCount),
			run.TotalCents, domain.ExpenseCategorySalaries, now, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) ListSalaryPayments(ctx context.Context, month string, limit int) ([]domain.SalaryPayment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, payment_month, payment_date, status, COALESCE(notes,''), created_by
		FROM salary_payments
		WHERE ($1 = '' OR payment_month = $1)
		ORDER BY payment_date DESC
		LIMIT $2
	`, month, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.SalaryPayment, 0, limit)
	for rows.Next() {
		var p domain.SalaryPayment
		if err := rows.Scan(&p.ID, &p.UserID, &p.AmountCents, &p.PaymentMonth, &p.PaymentDate, &p.Status, &p.Notes, &p.CreatedBy); err != nil {
			return nil, err
		}
		p.PaymentDate = p.PaymentDate.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) ListUnpaidEmployees(ctx context.Context, month string) ([]domain.Employee, error) {
	if !validMonth(month) {
		return nil, store.ErrInvalidOperation
	}

	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, store.ErrInvalidOperation
	}
	joinCutoff := monthStart.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.manager_id, e.name, e.role, e.base_salary_cents, e.joined_at, e.active
		FROM employees e
		WHERE e.active = true
			AND e.joined_at < $2
			AND NOT EXISTS (
				SELECT 1 FROM salary_payments sp
				WHERE sp.user_id = e.id AND sp.payment_month = $1
			)
		ORDER BY e.manager_id, e.name ASC
	`, month, joinCutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 32)
	for rows.Next() {
		var emp domain.Employee
		if err := rows.Scan(&emp.ID, &emp.ManagerID, &emp.Name, &emp.Role, &emp.BaseSalaryCents, &emp.JoinedAt, &emp.Active); err != nil {
			return nil, err
		}
		emp.JoinedAt = emp.JoinedAt.UTC()
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) GetSalesSummary(ctx context.Context, managerID string, from time.Time, to time.Time) (domain.SalesSummary, error) {
	summary := domain.SalesSummary{ManagerID: managerID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::bigint, COALESCE(SUM(total_amount_cents),0)::bigint
		FROM bills
		WHERE ($1 = '' OR manager_id = $1)
			AND bill_date >= $2
			AND bill_date < $3
			AND status = $4
	`, managerID, from, to, domain.BillStatusCompleted).Scan(&summary.BillCount, &summary.RevenueCents)
	if err != nil {
		return summary, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(bi.quantity * m.buying_price_cents),0)::bigint
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		JOIN manager_inventory mi ON mi.id = bi.manager_inventory_id
		JOIN master_inventory m ON m.id = mi.master_item_id
		WHERE ($1 = '' OR b.manager_id = $1)
			AND b.bill_date >= $2
			AND b.bill_date < $3
			AND b.status = $4
	`, managerID, from, to, domain.BillStatusCompleted).Scan(&summary.CostOfGoodsCents)
	if err != nil {
		return summary, err
	}

	summary.GrossMarginCents = summary.RevenueCents - summary.CostOfGoodsCents
	return summary, nil
}

func (s *Store) GetExpenseSummary(ctx context.Context, managerID string, from time.Time, to time.Time) (domain.ExpenseSummary, error) {
	summary := domain.ExpenseSummary{
		ManagerID:  managerID,
		ByCategory: make([]domain.ExpenseSummaryRow, 0, 4),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)::bigint, COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE ($1 = '' OR manager_id = $1)
			AND expense_date >= $2
			AND expense_date < $3
		GROUP BY category
		ORDER BY category
	`, managerID, from, to)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.ExpenseSummaryRow
		if err := rows.Scan(&row.Category, &row.Count, &row.TotalCents); err != nil {
			return summary, err
		}
		summary.TotalCents += row.TotalCents
		summary.ByCategory = append(summary.ByCategory, row)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) error {
	if n.RecipientID == "" || strings.TrimSpace(n.Message) == "" {
		return store.ErrInvalidOperation
	}
	if n.ID == "" {
		n.ID = xid.New("ntf")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, kind, message, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, n.ID, n.RecipientID, n.Kind, n.Message, n.Read, n.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, kind, message, read, created_at
		FROM notifications
		WHERE recipient_id = $1
			AND ($2 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidOperation
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidOperation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidOperation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func validMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
