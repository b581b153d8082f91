package protocol

// Method names the router dispatches on (C6).
const (
	MethodInitialize         = "initialize"
	MethodListTools          = "list_tools"
	MethodCallTool           = "call_tool"
	MethodGetExecutionStatus = "get_execution_status"
	MethodCancelExecution    = "cancel_execution"
)

// Notification event names a connection may emit around a call_tool
// invocation.
const (
	EventToolStarted   = "tool_started"
	EventToolProgress  = "tool_progress"
	EventToolCompleted = "tool_completed"
	EventToolFailed    = "tool_failed"
)

// Envelope types.
const (
	TypeResponse     = "response"
	TypeError        = "error"
	TypeNotification = "notification"
)

// RequestFrame is a parsed request envelope. Params holds the raw bytes of
// the original "params" value (or nil if absent) — handlers re-probe it
// with ExtractField/ExtractObject for their own fields rather than being
// handed a decoded tree.
type RequestFrame struct {
	ID     string
	HasID  bool
	Method string
	Params []byte
}

// ParseRequest extracts id, method, and params from a raw request line.
// A missing method is reported via ok=false; a missing id is valid (the
// echoed response carries id:null).
func ParseRequest(line []byte) (RequestFrame, bool) {
	var f RequestFrame
	if id, ok := ExtractField(line, "id"); ok {
		f.ID = id
		f.HasID = true
	}
	method, ok := ExtractField(line, "method")
	if !ok || method == "" {
		return f, false
	}
	f.Method = method
	if params, ok := ExtractObject(line, "params"); ok {
		f.Params = params
	}
	return f, true
}

// Field extracts a string field from the request's params object.
func (f RequestFrame) Field(name string) (string, bool) {
	if f.Params == nil {
		return "", false
	}
	return ExtractField(f.Params, name)
}

// ResponseFrame builds outgoing envelopes. Exactly one of Result/Err/Event
// is meaningful per Type.
type ResponseFrame struct {
	ID      string
	HasID   bool
	Type    string
	Result  string // pre-built raw JSON object literal, e.g. `{"a":1}`
	Err     string
	Event   string
	Message string
}

func idLiteral(id string, hasID bool) string {
	if !hasID {
		return "null"
	}
	return `"` + EscapeString(id) + `"`
}

// Encode renders the envelope as a single JSON line, without the trailing
// newline — callers append it when writing to the socket.
func (r ResponseFrame) Encode() string {
	idPart := `"id":` + idLiteral(r.ID, r.HasID)
	switch r.Type {
	case TypeError:
		return `{` + idPart + `,"type":"error","error":"` + EscapeString(r.Err) + `"}`
	case TypeNotification:
		return `{` + idPart + `,"type":"notification","event":"` + EscapeString(r.Event) + `","message":"` + EscapeString(r.Message) + `"}`
	default:
		result := r.Result
		if result == "" {
			result = "{}"
		}
		return `{` + idPart + `,"type":"response","result":` + result + `}`
	}
}

// NewResponse builds a successful response envelope. result must be a
// raw JSON object/array literal (already encoded by the caller).
func NewResponse(id string, hasID bool, result string) ResponseFrame {
	return ResponseFrame{ID: id, HasID: hasID, Type: TypeResponse, Result: result}
}

// NewError builds an error envelope.
func NewError(id string, hasID bool, message string) ResponseFrame {
	return ResponseFrame{ID: id, HasID: hasID, Type: TypeError, Err: message}
}

// NewNotification builds a server-initiated notification envelope. These
// are never correlated to a request id (spec §3: "never awaited by the
// client"), so HasID is always false.
func NewNotification(event, message string) ResponseFrame {
	return ResponseFrame{Type: TypeNotification, Event: event, Message: message}
}

// ToolProperty describes one entry of a tool's inputSchema.properties.
type ToolProperty struct {
	Name        string
	Type        string // "string" | "integer" | "boolean"
	Description string
	Required    bool
}

// ToolDescriptor is one catalog entry, as returned by list_tools.
type ToolDescriptor struct {
	Name        string
	Description string
	Properties  []ToolProperty
}

// Encode renders the tool descriptor as a raw JSON object literal.
func (t ToolDescriptor) Encode() string {
	var b []byte
	b = append(b, `{"name":"`...)
	b = append(b, EscapeString(t.Name)...)
	b = append(b, `","description":"`...)
	b = append(b, EscapeString(t.Description)...)
	b = append(b, `","inputSchema":{"type":"object","properties":{`...)
	for i, p := range t.Properties {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '"')
		b = append(b, EscapeString(p.Name)...)
		b = append(b, `":{"type":"`...)
		b = append(b, p.Type...)
		b = append(b, `","description":"`...)
		b = append(b, EscapeString(p.Description)...)
		b = append(b, `"}`...)
	}
	b = append(b, `},"required":[`...)
	first := true
	for _, p := range t.Properties {
		if !p.Required {
			continue
		}
		if !first {
			b = append(b, ',')
		}
		first = false
		b = append(b, '"')
		b = append(b, EscapeString(p.Name)...)
		b = append(b, '"')
	}
	b = append(b, "]}}"...)
	return string(b)
}

// InferPropertyType classifies an argument's JSON-schema type from its
// name, per spec: *count/number/size/limit/max/min* -> integer;
// *flag/enable/disable/recursive* -> boolean; else string.
func InferPropertyType(argName string) string {
	lower := toLower(argName)
	intMarkers := []string{"count", "number", "size", "limit", "max", "min"}
	for _, m := range intMarkers {
		if contains(lower, m) {
			return "integer"
		}
	}
	boolMarkers := []string{"flag", "enable", "disable", "recursive"}
	for _, m := range boolMarkers {
		if contains(lower, m) {
			return "boolean"
		}
	}
	return "string"
}

// RequiredArgs scans a usage string (e.g. "export <name> <value>" or
// "ls [path] [recursive]") and reports which argument names are marked
// required with <name> versus optional with [name]. An argument absent
// from usage entirely is optional, matching the caller's zero-value
// default for names not present in the returned set.
func RequiredArgs(usage string) map[string]bool {
	b := []byte(usage)
	required := make(map[string]bool)
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '<':
			if end := indexByte(b[i:], '>'); end > 0 {
				required[string(b[i+1:i+end])] = true
				i += end
			}
		case '[':
			if end := indexByte(b[i:], ']'); end > 0 {
				i += end
			}
		}
	}
	return required
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
