package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldCompanyID = "company_id"
	FieldPeriod    = "period"
	FieldAccountID = "account_id"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldAccounts  = "accounts"
	FieldWarnings  = "warnings"
	FieldFetches   = "ledger_fetches"
	FieldDriver    = "driver"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldFile      = "file"
	FieldEntries   = "entries"
)

// Components
const (
	ComponentApp      = "app"
	ComponentEngine   = "engine"
	ComponentStore    = "store"
	ComponentPublish  = "publish"
	ComponentImporter = "importer"
	ComponentCommand  = "command"
)
