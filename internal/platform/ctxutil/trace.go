package ctxutil

import "context"

type traceDataKey struct{}

// TraceData follows a request into the jobs it enqueues. Job payloads carry
// it as trace_id and request_id.
type TraceData struct {
	TraceID   string
	RequestID string
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []interface{} {
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	return kv
}

// Stamp copies the ids into payload without overwriting existing keys.
func (td *TraceData) Stamp(payload map[string]any) {
	if td == nil || payload == nil {
		return
	}
	if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
		payload["trace_id"] = td.TraceID
	}
	if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
		payload["request_id"] = td.RequestID
	}
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
