package domain

import "time"

type MasterItem struct {
	ID               string    `json:"id"`
	ProductName      string    `json:"product_name"`
	BuyingPriceCents int64     `json:"buying_price_cents"`
	TotalQuantity    int       `json:"total_quantity"`
	MinStockLevel    int       `json:"min_stock_level"`
	CreatedAt        time.Time `json:"created_at"`
}

type MasterItemCreateRequest struct {
	ProductName      string `json:"product_name"`
	BuyingPriceCents int64  `json:"buying_price_cents"`
	InitialQuantity  int    `json:"initial_quantity"`
	MinStockLevel    int    `json:"min_stock_level"`
}

type MasterItemUpdateRequest struct {
	ProductName      *string `json:"product_name,omitempty"`
	BuyingPriceCents *int64  `json:"buying_price_cents,omitempty"`
	MinStockLevel    *int    `json:"min_stock_level,omitempty"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type ManagerItem struct {
	ID                string    `json:"id"`
	ManagerID         string    `json:"manager_id"`
	MasterItemID      string    `json:"master_item_id"`
	ProductName       string    `json:"product_name,omitempty"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	CurrentQuantity   int       `json:"current_quantity"`
	MinStockLevel     int       `json:"min_stock_level"`
	LastUpdated       time.Time `json:"last_updated"`
}

type TransferRequest struct {
	ManagerID         string `json:"manager_id"`
	MasterItemID      string `json:"master_item_id"`
	Quantity          int    `json:"quantity"`
	SellingPriceCents int64  `json:"selling_price_cents"`
}

type TransferResponse struct {
	ManagerItem ManagerItem `json:"manager_item"`
}

type BillLine struct {
	ManagerInventoryID string `json:"manager_inventory_id"`
	Quantity           int    `json:"quantity"`
	UnitPriceCents     int64  `json:"unit_price_cents"`
	SubtotalCents      int64  `json:"subtotal_cents"`
}

type BillCreateRequest struct {
	ManagerID  string     `json:"manager_id"`
	RequestKey string     `json:"request_key,omitempty"`
	Lines      []BillLine `json:"lines"`
}

type Bill struct {
	ID               string     `json:"id"`
	BillNumber       string     `json:"bill_number"`
	CashierID        string     `json:"cashier_id"`
	ManagerID        string     `json:"manager_id"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	BillDate         time.Time  `json:"bill_date"`
	Status           string     `json:"status"`
	Lines            []BillLine `json:"lines,omitempty"`
}

type BillResponse struct {
	Bill Bill `json:"bill"`
}

type BillListResponse struct {
	Bills []Bill `json:"bills"`
}

type Employee struct {
	ID              string     `json:"id"`
	ManagerID       string     `json:"manager_id"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	BaseSalaryCents int64      `json:"base_salary_cents"`
	JoinedAt        time.Time  `json:"joined_at"`
	Active          bool       `json:"active"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty"`
}

type EmployeeCreateRequest struct {
	ManagerID       string `json:"manager_id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	BaseSalaryCents int64  `json:"base_salary_cents"`
	JoinedAt        string `json:"joined_at"`
}

type Expense struct {
	ID          string    `json:"id"`
	ManagerID   string    `json:"manager_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	ExpenseDate time.Time `json:"expense_date"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type ExpenseCreateRequest struct {
	ManagerID   string `json:"manager_id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	ExpenseDate string `json:"expense_date,omitempty"`
}

type SalaryPayment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AmountCents  int64     `json:"amount_cents"`
	PaymentMonth string    `json:"payment_month"`
	PaymentDate  time.Time `json:"payment_date"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedBy    string    `json:"created_by"`
}

type PaySalaryRequest struct {
	UserID          string `json:"user_id"`
	PaymentMonth    string `json:"payment_month"`
	BonusCents      int64  `json:"bonus_cents"`
	AdjustmentCents int64  `json:"adjustment_cents"`
	Notes           string `json:"notes"`
}

type PaySalaryResponse struct {
	Payment SalaryPayment `json:"payment"`
}

type PayrollRunRequest struct {
	ManagerID    string `json:"manager_id"`
	PaymentMonth string `json:"payment_month"`
}

type PayrollRun struct {
	ManagerID          string          `json:"manager_id"`
	PaymentMonth       string          `json:"payment_month"`
	PaidCount          int             `json:"paid_count"`
	SkippedPaid        int             `json:"skipped_paid"`
	SkippedNotEligible int             `json:"skipped_not_eligible"`
	TotalCents         int64           `json:"total_cents"`
	Payments           []SalaryPayment `json:"payments"`
}

type SalesSummary struct {
	ManagerID        string `json:"manager_id"`
	From             string `json:"from"`
	To               string `json:"to"`
	BillCount        int64  `json:"bill_count"`
	RevenueCents     int64  `json:"revenue_cents"`
	CostOfGoodsCents int64  `json:"cost_of_goods_cents"`
	GrossMarginCents int64  `json:"gross_margin_cents"`
}

type ExpenseSummaryRow struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	TotalCents int64  `json:"total_cents"`
}

type ExpenseSummary struct {
	ManagerID  string              `json:"manager_id"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	TotalCents int64               `json:"total_cents"`
	ByCategory []ExpenseSummaryRow `json:"by_category"`
}

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RoleCEO     = "ceo"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

const (
	BillStatusCompleted = "completed"
)

const (
	SalaryStatusPaid = "paid"
)

const (
	ExpenseCategorySalaries   = "salaries"
	ExpenseCategoryOperations = "operations"
	ExpenseCategoryUtilities  = "utilities"
	ExpenseCategoryOther      = "other"
)

const (
	NotificationLowStock       = "low_stock"
	NotificationSalaryReminder = "salary_reminder"
)
