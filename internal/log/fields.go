package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldExpenseID = "expense_id"
	FieldBudgetID  = "budget_id"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldAction    = "action"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentExpense = "expense"
	ComponentBudget  = "budget"
	ComponentRates   = "rates"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCharts  = "charts"
)
