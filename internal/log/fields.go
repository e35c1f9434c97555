package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldProfileID  = "profile_id"
	FieldIBAN       = "iban"
	FieldActionType = "action_type"
	FieldCandidates = "candidates"
	FieldAmount     = "amount"
	FieldCurrency   = "currency"
	FieldMediaKind  = "media_kind"
	FieldJobID      = "job_id"
	FieldUserAgent  = "user_agent"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentDirectory = "directory"
	ComponentPending   = "pending"
	ComponentResolver  = "resolver"
	ComponentAssistant = "assistant"
	ComponentExtract   = "extract"
	ComponentMedia     = "media"
	ComponentMessaging = "messaging"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpResolve  = "resolve"
	OpDispatch = "dispatch"
	OpSend     = "send"
	OpFetch    = "fetch"
	OpParse    = "parse"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

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

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

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

func (f LogFields) WithProfile(profileID string) LogFields {
	f[FieldProfileID] = profileID
	return f
}

// WithIBAN records an IBAN. Callers pass the masked form only.
func (f LogFields) WithIBAN(masked string) LogFields {
	f[FieldIBAN] = masked
	return f
}

func (f LogFields) WithAction(actionType string, candidates int) LogFields {
	f[FieldActionType] = actionType
	f[FieldCandidates] = candidates
	return f
}

func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
