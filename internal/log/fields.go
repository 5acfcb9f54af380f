package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldCommand   = "command"
	FieldArgs      = "args"
	FieldDuration  = "duration_ms"
	FieldSuccess   = "success"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldOperation = "operation"
	FieldTarget    = "target"
	FieldTitle     = "title"
	FieldTxType    = "tx_type"
	FieldAmount    = "amount"
	FieldNote      = "note"
	FieldRowRef    = "row_ref"
	FieldMessageID = "message_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentLedger  = "ledger"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentAuth    = "auth"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpRead     = "read"
	OpResolve  = "resolve"
	OpReport   = "report"
	OpAuth     = "authorize"
	OpMirror   = "mirror"
	OpRender   = "render"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeParse      = "parse_error"
	ErrorTypeUsage      = "usage_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCommand adds the chat command context
func (f LogFields) WithCommand(userID, chatID int64, command string) LogFields {
	f[FieldUserID] = userID
	f[FieldChatID] = chatID
	f[FieldCommand] = command
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(title, txType string, amount int64, note string) LogFields {
	f[FieldTitle] = title
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	f[FieldNote] = note
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
