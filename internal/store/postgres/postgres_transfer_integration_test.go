package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/store"
)

func TestTransferAndBillDecrementStock(t *testing.T) {
	databaseURL := os.Getenv("GUDANGPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set GUDANGPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("itm-it-%d", stamp)
	managerID := fmt.Sprintf("manager-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bill_items WHERE manager_inventory_id IN (SELECT id FROM manager_inventory WHERE manager_id = $1)`, managerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bills WHERE manager_id = $1`, managerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM manager_inventory WHERE manager_id = $1`, managerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM master_inventory WHERE id = $1`, itemID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO master_inventory (id, product_name, buying_price_cents, total_quantity, min_stock_level, created_at, updated_at)
		VALUES ($1, 'Integration Test Item', 1000, 100, 5, now(), now())
	`, itemID); err != nil {
		t.Fatalf("insert master item: %v", err)
	}

	managerItem, err := s.TransferStock(ctx, domain.TransferRequest{
		ManagerID:         managerID,
		MasterItemID:      itemID,
		Quantity:          30,
		SellingPriceCents: 1500,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if managerItem.CurrentQuantity != 30 {
		t.Fatalf("expected manager quantity 30, got %d", managerItem.CurrentQuantity)
	}

	var masterQty int
	if err := s.db.QueryRowContext(ctx, `
		SELECT total_quantity FROM master_inventory WHERE id = $1
	`, itemID).Scan(&masterQty); err != nil {
		t.Fatalf("query master stock: %v", err)
	}
	if masterQty != 70 {
		t.Fatalf("expected master stock 70 after transfer, got %d", masterQty)
	}

	// A repeat transfer merges into the same row and keeps the latest price.
	merged, err := s.TransferStock(ctx, domain.TransferRequest{
		ManagerID:         managerID,
		MasterItemID:      itemID,
		Quantity:          15,
		SellingPriceCents: 1600,
	})
	if err != nil {
		t.Fatalf("repeat transfer: %v", err)
	}
	if merged.ID != managerItem.ID {
		t.Fatalf("expected merge into row %s, got %s", managerItem.ID, merged.ID)
	}
	if merged.CurrentQuantity != 45 || merged.SellingPriceCents != 1600 {
		t.Fatalf("expected merged row qty 45 price 1600, got qty %d price %d", merged.CurrentQuantity, merged.SellingPriceCents)
	}

	bill, err := s.CreateBill(ctx, domain.Bill{
		ID:         fmt.Sprintf("bill-it-%d", stamp),
		BillNumber: fmt.Sprintf("BILL-IT-%d", stamp),
		CashierID:  "cashier-it",
		ManagerID:  managerID,
		BillDate:   time.Now().UTC(),
		Status:     domain.BillStatusCompleted,
		Lines: []domain.BillLine{
			{ManagerInventoryID: managerItem.ID, Quantity: 5, UnitPriceCents: 1600, SubtotalCents: 8000},
		},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.TotalAmountCents != 8000 {
		t.Fatalf("expected bill total 8000, got %d", bill.TotalAmountCents)
	}

	item, err := s.GetManagerItem(ctx, managerItem.ID)
	if err != nil {
		t.Fatalf("get manager item: %v", err)
	}
	if item.CurrentQuantity != 40 {
		t.Fatalf("expected stock 40 after sale, got %d", item.CurrentQuantity)
	}

	// An oversell must fail and leave the stock untouched.
	_, err = s.CreateBill(ctx, domain.Bill{
		ID:         fmt.Sprintf("bill-it-over-%d", stamp),
		BillNumber: fmt.Sprintf("BILL-IT-OVER-%d", stamp),
		CashierID:  "cashier-it",
		ManagerID:  managerID,
		BillDate:   time.Now().UTC(),
		Status:     domain.BillStatusCompleted,
		Lines: []domain.BillLine{
			{ManagerInventoryID: managerItem.ID, Quantity: 41, UnitPriceCents: 1600, SubtotalCents: 65600},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	item, err = s.GetManagerItem(ctx, managerItem.ID)
	if err != nil {
		t.Fatalf("get manager item after failed bill: %v", err)
	}
	if item.CurrentQuantity != 40 {
		t.Fatalf("expected stock unchanged at 40, got %d", item.CurrentQuantity)
	}
}
