package log

// Attribute keys. Keep these stable, dashboards and alerts match on them.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldUserID      = "user_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldUserAgent   = "user_agent"
	FieldReferer     = "referer"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldKind        = "kind"
	FieldEntityID    = "entity_id"
	FieldEntryID     = "entry_id"
	FieldAmountCents = "amount_cents"
	FieldEventType   = "event_type"
)

// Component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentAuth     = "auth"
	ComponentSecurity = "security"
	ComponentLedger   = "ledger"
	ComponentBackend  = "backend"
	ComponentWorker   = "worker"
)

// Operation names.
const (
	OpStartup  = "startup"
	OpShutdown = "shutdown"
	OpRecord   = "record"
)

// LogFields collects attributes for one record. The With methods mutate and
// return the receiver so calls chain.
type LogFields map[string]any

func NewFields() LogFields {
	return LogFields{}
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithLedgerEntry describes a committed ledger row. entityID is the category
// or goal whose counter moved, empty for a plain income.
func (f LogFields) WithLedgerEntry(kind, entityID, entryID string, amountCents int64) LogFields {
	f[FieldKind] = kind
	f[FieldEntityID] = entityID
	f[FieldEntryID] = entryID
	f[FieldAmountCents] = amountCents
	return f
}

// WithHTTPRequest skips empty values so completion records stay short.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	for k, v := range map[string]string{FieldQuery: query, FieldUserAgent: userAgent, FieldReferer: referer} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

func (f LogFields) WithHTTPResponse(status int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, 2*len(f))
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
