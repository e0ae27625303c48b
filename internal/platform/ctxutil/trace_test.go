package ctxutil

import (
	"context"
	"testing"
)

func TestStampKeepsExistingIDs(t *testing.T) {
	td := &TraceData{TraceID: "t-1", RequestID: "r-1"}
	payload := map[string]any{"trace_id": "upstream"}
	td.Stamp(payload)
	if payload["trace_id"] != "upstream" {
		t.Fatalf("trace_id overwritten: %v", payload["trace_id"])
	}
	if payload["request_id"] != "r-1" {
		t.Fatalf("request_id: want r-1 got %v", payload["request_id"])
	}
}

func TestTraceDataRoundTrip(t *testing.T) {
	if GetTraceData(context.Background()) != nil {
		t.Fatalf("expected no trace data on a bare context")
	}
	ctx := WithTraceData(nil, &TraceData{RequestID: "r-2"})
	td := GetTraceData(ctx)
	if td == nil || td.RequestID != "r-2" {
		t.Fatalf("round trip: got %+v", td)
	}
	if got := td.LogFields(); len(got) != 2 || got[0] != "request_id" {
		t.Fatalf("LogFields: got %v", got)
	}
}
