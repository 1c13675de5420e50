package domain

// Method names a registered command handler. Names are case sensitive
// and must match exactly what remote callers invoke.
type Method string

const (
	MethodComponentClick  Method = "handleComponentClick"
	MethodScreenChange    Method = "handleScreenChange"
	MethodTranscribedText Method = "handleTranscribedText"
	MethodTaskStart       Method = "handleTaskStart"
	MethodTaskEnd         Method = "handleTaskEnd"
	MethodTaskSkip        Method = "handleTaskSkip"
)

// Methods lists every command the agent registers, in registration order.
func Methods() []Method {
	return []Method{
		MethodComponentClick,
		MethodScreenChange,
		MethodTranscribedText,
		MethodTaskStart,
		MethodTaskEnd,
		MethodTaskSkip,
	}
}

// Envelope is one inbound command invocation. Produced by the transport,
// consumed once by the router, never retained.
type Envelope struct {
	Method         Method         `json:"method"`
	Payload        map[string]any `json:"payload"`
	CallerIdentity string         `json:"callerIdentity,omitempty"`
	SessionID      string         `json:"sessionId"`
}

// ErrorInfo is the wire form of a dispatch failure. Classification is
// set only for persistence errors and carries the data client's verdict.
type ErrorInfo struct {
	Type           string `json:"type"`
	Classification string `json:"classification,omitempty"`
	Message        string `json:"message"`
}

// Response is the uniform result of a dispatch. Every dispatch produces
// one. A successful dispatch carries Result; a failed one carries Error.
// A persistence failure may carry both: the local effects were already
// applied, and Result reports them alongside the error.
type Response struct {
	OK     bool           `json:"ok"`
	Result map[string]any `json:"result,omitempty"`
	Error  *ErrorInfo     `json:"error,omitempty"`
}

// OKResponse wraps a handler result.
func OKResponse(result map[string]any) Response {
	return Response{OK: true, Result: result}
}

// ErrResponse classifies err into the wire taxonomy.
func ErrResponse(err error) Response {
	return Response{OK: false, Error: Classify(err)}
}
