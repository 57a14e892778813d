package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID    = "user_id"
	FieldStageName = "stage_name"

	// Queue
	FieldRoomID    = "room_id"
	FieldRoomType  = "room_type"
	FieldEntryID   = "entry_id"
	FieldEntryFrom = "from_status"
	FieldEntryTo   = "to_status"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
