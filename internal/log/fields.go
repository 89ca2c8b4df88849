package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldDriverID     = "driver_id"
	FieldRecordID     = "record_id"
	FieldCategory     = "category"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldLocale       = "locale"
	FieldAmount       = "amount"
	FieldExportID     = "export_id"
	FieldExportFormat = "export_format"
	FieldRoundStatus  = "round_status"
	FieldRowCount     = "row_count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentReport  = "report"
	ComponentExport  = "export"
	ComponentSafety  = "safety"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpExport   = "export"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
