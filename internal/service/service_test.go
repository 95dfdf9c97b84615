package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
	"gudangpos/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.New(), nil, 5*time.Second)
}

func ceoCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "ceo", Role: "ceo"})
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager-a", Role: "manager"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir-1", Role: "cashier"})
}

func createTestItem(t *testing.T, svc *Service, qty int) domain.MasterItem {
	t.Helper()
	item, err := svc.CreateMasterItem(ceoCtx(), domain.MasterItemCreateRequest{
		ProductName:      "Beras Premium 5kg",
		BuyingPriceCents: 1000,
		InitialQuantity:  qty,
		MinStockLevel:    5,
	})
	if err != nil {
		t.Fatalf("create master item failed: %v", err)
	}
	return item
}

func TestTransferMovesStock(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 100)

	resp, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          30,
		SellingPriceCents: 1300,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if resp.ManagerItem.CurrentQuantity != 30 {
		t.Fatalf("expected manager quantity 30, got %d", resp.ManagerItem.CurrentQuantity)
	}

	master, err := svc.GetMasterItem(ceoCtx(), item.ID)
	if err != nil {
		t.Fatalf("get master item failed: %v", err)
	}
	if master.TotalQuantity != 70 {
		t.Fatalf("expected master quantity 70, got %d", master.TotalQuantity)
	}
}

func TestTransferMergesRepeatTransfers(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 100)

	first, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1300,
	})
	if err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}

	second, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          15,
		SellingPriceCents: 1400,
	})
	if err != nil {
		t.Fatalf("second transfer failed: %v", err)
	}

	if second.ManagerItem.ID != first.ManagerItem.ID {
		t.Fatalf("expected merge into the same manager inventory row")
	}
	if second.ManagerItem.CurrentQuantity != 25 {
		t.Fatalf("expected merged quantity 25, got %d", second.ManagerItem.CurrentQuantity)
	}
	if second.ManagerItem.SellingPriceCents != 1400 {
		t.Fatalf("expected latest selling price 1400, got %d", second.ManagerItem.SellingPriceCents)
	}

	items, err := svc.ListManagerItems(ceoCtx(), "manager-a")
	if err != nil {
		t.Fatalf("list manager items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one manager inventory row, got %d", len(items))
	}
}

func TestTransferRejectsInsufficientStock(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 20)

	_, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          21,
		SellingPriceCents: 1300,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	master, err := svc.GetMasterItem(ceoCtx(), item.ID)
	if err != nil {
		t.Fatalf("get master item failed: %v", err)
	}
	if master.TotalQuantity != 20 {
		t.Fatalf("expected master stock unchanged at 20, got %d", master.TotalQuantity)
	}
}

func TestTransferRejectsUnknownItem(t *testing.T) {
	svc := newTestService()

	_, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      "itm-missing",
		Quantity:          1,
		SellingPriceCents: 1300,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferEnforcesMarkupFloor(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 100)

	_, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1100,
	})
	if !errors.Is(err, store.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for markup below floor, got %v", err)
	}

	// Exactly 20 percent markup is allowed.
	_, err = svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1200,
	})
	if err != nil {
		t.Fatalf("expected transfer at exact markup floor to succeed: %v", err)
	}
}

func TestTransferRequiresCEO(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 100)

	_, err := svc.TransferStock(managerCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1300,
	})
	if err == nil {
		t.Fatalf("expected transfer by manager to fail")
	}

	_, err = svc.CreateMasterItem(managerCtx(), domain.MasterItemCreateRequest{
		ProductName:      "Gula 1kg",
		BuyingPriceCents: 500,
	})
	if err == nil {
		t.Fatalf("expected master item create by manager to fail")
	}
}

func transferForSale(t *testing.T, svc *Service, qty int) domain.ManagerItem {
	t.Helper()
	item := createTestItem(t, svc, qty*2)
	resp, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          qty,
		SellingPriceCents: 1500,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	return resp.ManagerItem
}

func TestCreateBillDecrementsStock(t *testing.T) {
	svc := newTestService()
	managerItem := transferForSale(t, svc, 50)

	resp, err := svc.CreateBill(cashierCtx(), domain.BillCreateRequest{
		ManagerID: "manager-a",
		Lines: []domain.BillLine{
			{ManagerInventoryID: managerItem.ID, Quantity: 5, UnitPriceCents: 1500},
		},
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if resp.Bill.TotalAmountCents != 7500 {
		t.Fatalf("expected bill total 7500, got %d", resp.Bill.TotalAmountCents)
	}
	if resp.Bill.CashierID != "kasir-1" {
		t.Fatalf("expected cashier kasir-1, got %s", resp.Bill.CashierID)
	}
	if resp.Bill.Status != domain.BillStatusCompleted {
		t.Fatalf("expected completed bill, got %s", resp.Bill.Status)
	}

	after, err := svc.GetManagerItem(cashierCtx(), managerItem.ID)
	if err != nil {
		t.Fatalf("get manager item failed: %v", err)
	}
	if after.CurrentQuantity != 45 {
		t.Fatalf("expected stock 45 after sale, got %d", after.CurrentQuantity)
	}
}

func TestCreateBillRejectsOversellAtomically(t *testing.T) {
	svc := newTestService()
	first := transferForSale(t, svc, 50)

	second := createTestItem(t, svc, 10)
	transferred, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      second.ID,
		Quantity:          3,
		SellingPriceCents: 1500,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	_, err = svc.CreateBill(cashierCtx(), domain.BillCreateRequest{
		ManagerID: "manager-a",
		Lines: []domain.BillLine{
			{ManagerInventoryID: first.ID, Quantity: 2, UnitPriceCents: 1500},
			{ManagerInventoryID: transferred.ManagerItem.ID, Quantity: 4, UnitPriceCents: 1500},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The whole bill is rejected, so the first line must not have decremented.
	one, err := svc.GetManagerItem(cashierCtx(), first.ID)
	if err != nil {
		t.Fatalf("get manager item failed: %v", err)
	}
	if one.CurrentQuantity != 50 {
		t.Fatalf("expected first item untouched at 50, got %d", one.CurrentQuantity)
	}

	bills, err := svc.ListBills(cashierCtx(), "manager-a", "", "", 10)
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(bills.Bills) != 0 {
		t.Fatalf("expected no bill recorded, got %d", len(bills.Bills))
	}
}

func TestCreateBillRequestKeyIsIdempotent(t *testing.T) {
	svc := newTestService()
	managerItem := transferForSale(t, svc, 50)

	req := domain.BillCreateRequest{
		ManagerID:  "manager-a",
		RequestKey: "BILL-CLIENT-0001",
		Lines: []domain.BillLine{
			{ManagerInventoryID: managerItem.ID, Quantity: 5, UnitPriceCents: 1500},
		},
	}

	first, err := svc.CreateBill(cashierCtx(), req)
	if err != nil {
		t.Fatalf("first create bill failed: %v", err)
	}

	second, err := svc.CreateBill(cashierCtx(), req)
	if err != nil {
		t.Fatalf("repeat create bill failed: %v", err)
	}
	if second.Bill.ID != first.Bill.ID {
		t.Fatalf("expected repeat submission to return the original bill")
	}

	after, err := svc.GetManagerItem(cashierCtx(), managerItem.ID)
	if err != nil {
		t.Fatalf("get manager item failed: %v", err)
	}
	if after.CurrentQuantity != 45 {
		t.Fatalf("expected stock decremented once to 45, got %d", after.CurrentQuantity)
	}
}

func TestCreateBillValidatesLines(t *testing.T) {
	svc := newTestService()
	managerItem := transferForSale(t, svc, 50)

	cases := []domain.BillCreateRequest{
		{ManagerID: "manager-a"},
		{ManagerID: "manager-a", Lines: []domain.BillLine{{ManagerInventoryID: managerItem.ID, Quantity: 0, UnitPriceCents: 1500}}},
		{ManagerID: "manager-a", Lines: []domain.BillLine{{ManagerInventoryID: "", Quantity: 1, UnitPriceCents: 1500}}},
		{ManagerID: "manager-a", Lines: []domain.BillLine{{ManagerInventoryID: managerItem.ID, Quantity: 1, UnitPriceCents: -1}}},
	}
	for i, req := range cases {
		if _, err := svc.CreateBill(cashierCtx(), req); !errors.Is(err, store.ErrInvalidOperation) {
			t.Fatalf("case %d: expected ErrInvalidOperation, got %v", i, err)
		}
	}
}

func createTestEmployee(t *testing.T, svc *Service, name string, baseCents int64) domain.Employee {
	t.Helper()
	emp, err := svc.CreateEmployee(managerCtx(), domain.EmployeeCreateRequest{
		Name:            name,
		Role:            "staff",
		BaseSalaryCents: baseCents,
		JoinedAt:        "2025-01-15",
	})
	if err != nil {
		t.Fatalf("create employee failed: %v", err)
	}
	return emp
}

func TestPaySalaryPairsExpense(t *testing.T) {
	svc := newTestService()
	emp := createTestEmployee(t, svc, "Budi", 100000)

	resp, err := svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:          emp.ID,
		PaymentMonth:    "2026-08",
		BonusCents:      10000,
		AdjustmentCents: -5000,
	})
	if err != nil {
		t.Fatalf("pay salary failed: %v", err)
	}
	if resp.Payment.AmountCents != 105000 {
		t.Fatalf("expected amount 105000, got %d", resp.Payment.AmountCents)
	}
	if resp.Payment.Status != domain.SalaryStatusPaid {
		t.Fatalf("expected paid status, got %s", resp.Payment.Status)
	}

	expenses, err := svc.ListExpenses(managerCtx(), "manager-a", "2000-01-01", "2100-01-01", 10)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected one paired expense, got %d", len(expenses))
	}
	if expenses[0].Category != domain.ExpenseCategorySalaries {
		t.Fatalf("expected salaries category, got %s", expenses[0].Category)
	}
	if expenses[0].AmountCents != 105000 {
		t.Fatalf("expected expense amount 105000, got %d", expenses[0].AmountCents)
	}

	_, err = svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:       emp.ID,
		PaymentMonth: "2026-08",
	})
	if !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid on repeat payment, got %v", err)
	}
}

func TestPaySalaryRejectsBeforeJoinMonth(t *testing.T) {
	svc := newTestService()
	emp, err := svc.CreateEmployee(managerCtx(), domain.EmployeeCreateRequest{
		Name:            "Siti",
		Role:            "staff",
		BaseSalaryCents: 90000,
		JoinedAt:        "2026-09-01",
	})
	if err != nil {
		t.Fatalf("create employee failed: %v", err)
	}

	_, err = svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:       emp.ID,
		PaymentMonth: "2026-08",
	})
	if !errors.Is(err, store.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible before join month, got %v", err)
	}

	// Join month itself is payable.
	_, err = svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:       emp.ID,
		PaymentMonth: "2026-09",
	})
	if err != nil {
		t.Fatalf("expected join-month salary to succeed: %v", err)
	}
}

func TestPaySalaryRejectsDeactivatedEmployee(t *testing.T) {
	svc := newTestService()
	emp := createTestEmployee(t, svc, "Agus", 80000)

	if _, err := svc.DeactivateEmployee(managerCtx(), emp.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	_, err := svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:       emp.ID,
		PaymentMonth: "2026-08",
	})
	if !errors.Is(err, store.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for inactive employee, got %v", err)
	}
}

func TestPaySalaryRejectsNegativeTotal(t *testing.T) {
	svc := newTestService()
	emp := createTestEmployee(t, svc, "Dewi", 50000)

	_, err := svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:          emp.ID,
		PaymentMonth:    "2026-08",
		AdjustmentCents: -60000,
	})
	if !errors.Is(err, store.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for negative total, got %v", err)
	}
}

func TestProcessMonthlySalaries(t *testing.T) {
	svc := newTestService()
	first := createTestEmployee(t, svc, "Budi", 100000)
	second := createTestEmployee(t, svc, "Citra", 120000)

	// Pre-pay one employee so the run skips it.
	if _, err := svc.PaySalary(managerCtx(), domain.PaySalaryRequest{
		UserID:       first.ID,
		PaymentMonth: "2026-08",
	}); err != nil {
		t.Fatalf("pre-pay failed: %v", err)
	}

	run, err := svc.ProcessMonthlySalaries(managerCtx(), domain.PayrollRunRequest{
		PaymentMonth: "2026-08",
	})
	if err != nil {
		t.Fatalf("payroll run failed: %v", err)
	}
	if run.PaidCount != 1 {
		t.Fatalf("expected 1 paid, got %d", run.PaidCount)
	}
	if run.SkippedPaid != 1 {
		t.Fatalf("expected 1 skipped as already paid, got %d", run.SkippedPaid)
	}
	if run.TotalCents != second.BaseSalaryCents {
		t.Fatalf("expected run total %d, got %d", second.BaseSalaryCents, run.TotalCents)
	}

	expenses, err := svc.ListExpenses(managerCtx(), "manager-a", "2000-01-01", "2100-01-01", 10)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	// One expense from the pre-payment plus one aggregate from the run.
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}

	// Running again is a no-op: everyone is paid, no new expense.
	rerun, err := svc.ProcessMonthlySalaries(managerCtx(), domain.PayrollRunRequest{
		PaymentMonth: "2026-08",
	})
	if err != nil {
		t.Fatalf("payroll rerun failed: %v", err)
	}
	if rerun.PaidCount != 0 || rerun.SkippedPaid != 2 {
		t.Fatalf("expected rerun to skip both, got paid=%d skipped=%d", rerun.PaidCount, rerun.SkippedPaid)
	}

	expenses, err = svc.ListExpenses(managerCtx(), "manager-a", "2000-01-01", "2100-01-01", 10)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected no new expense after no-op rerun, got %d", len(expenses))
	}
}

func TestSalesReportComputesMargin(t *testing.T) {
	svc := newTestService()
	managerItem := transferForSale(t, svc, 50)

	if _, err := svc.CreateBill(cashierCtx(), domain.BillCreateRequest{
		ManagerID: "manager-a",
		Lines: []domain.BillLine{
			{ManagerInventoryID: managerItem.ID, Quantity: 5, UnitPriceCents: 1500},
		},
	}); err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	summary, err := svc.SalesReport(managerCtx(), "", "", "")
	if err != nil {
		t.Fatalf("sales report failed: %v", err)
	}
	if summary.BillCount != 1 {
		t.Fatalf("expected 1 bill, got %d", summary.BillCount)
	}
	if summary.RevenueCents != 7500 {
		t.Fatalf("expected revenue 7500, got %d", summary.RevenueCents)
	}
	if summary.CostOfGoodsCents != 5000 {
		t.Fatalf("expected cogs 5000, got %d", summary.CostOfGoodsCents)
	}
	if summary.GrossMarginCents != 2500 {
		t.Fatalf("expected margin 2500, got %d", summary.GrossMarginCents)
	}
}

func TestExpenseReportGroupsByCategory(t *testing.T) {
	svc := newTestService()

	for _, req := range []domain.ExpenseCreateRequest{
		{Description: "listrik", AmountCents: 20000, Category: "utilities"},
		{Description: "air", AmountCents: 5000, Category: "utilities"},
		{Description: "plastik", AmountCents: 3000, Category: "operations"},
	} {
		if _, err := svc.CreateExpense(managerCtx(), req); err != nil {
			t.Fatalf("create expense failed: %v", err)
		}
	}

	summary, err := svc.ExpenseReport(managerCtx(), "", "", "")
	if err != nil {
		t.Fatalf("expense report failed: %v", err)
	}
	if summary.TotalCents != 28000 {
		t.Fatalf("expected total 28000, got %d", summary.TotalCents)
	}
	if len(summary.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(summary.ByCategory))
	}
}

func TestLowStockNotificationOnSale(t *testing.T) {
	svc := newTestService()

	item, err := svc.CreateMasterItem(ceoCtx(), domain.MasterItemCreateRequest{
		ProductName:      "Telur 1kg",
		BuyingPriceCents: 1000,
		InitialQuantity:  100,
		MinStockLevel:    0,
	})
	if err != nil {
		t.Fatalf("create master item failed: %v", err)
	}

	resp, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1500,
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// Selling down to zero crosses the low stock threshold.
	if _, err := svc.CreateBill(cashierCtx(), domain.BillCreateRequest{
		ManagerID: "manager-a",
		Lines: []domain.BillLine{
			{ManagerInventoryID: resp.ManagerItem.ID, Quantity: 10, UnitPriceCents: 1500},
		},
	}); err != nil {
		t.Fatalf("create bill failed: %v", err)
	}

	notifications, err := svc.ListNotifications(managerCtx(), true, 10)
	if err != nil {
		t.Fatalf("list notifications failed: %v", err)
	}
	found := false
	for _, n := range notifications {
		if n.Kind == domain.NotificationLowStock {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a low stock notification for the manager")
	}
}

func TestAuditLogRecordsTransfers(t *testing.T) {
	svc := newTestService()
	item := createTestItem(t, svc, 100)

	if _, err := svc.TransferStock(ceoCtx(), domain.TransferRequest{
		ManagerID:         "manager-a",
		MasterItemID:      item.ID,
		Quantity:          10,
		SellingPriceCents: 1300,
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ceoCtx(), "", 100)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "stock_transfer" && entry.ActorUsername == "ceo" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a stock_transfer audit entry")
	}
}
