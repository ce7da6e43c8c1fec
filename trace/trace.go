package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"
)

// Context key stays unexported so callers go through this package.
type ctxKey string

const ctxKeyTrace ctxKey = "trace_info"

// Info carries tracing state for one HTTP request.
// RequestID is unique per request; spanSeq increments 1,2,3,... for each
// outbound call made while serving that request.
type Info struct {
	RequestID string
	spanSeq   int64
}

// GenerateID returns a random hex ID for tracing.
func GenerateID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Timestamp fallback keeps tracing alive if the rand source fails.
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return hex.EncodeToString(b[:])
}

// WithRequestAndSpan stores a request ID and initial span value (usually 0)
// in the context.
func WithRequestAndSpan(ctx context.Context, requestID string, initialSpan int64) context.Context {
	info := &Info{RequestID: requestID, spanSeq: initialSpan}
	return context.WithValue(ctx, ctxKeyTrace, info)
}

func infoFromContext(ctx context.Context) *Info {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKeyTrace).(*Info)
	return v
}

// RequestIDFromContext reads the request ID stored in the context, if any.
func RequestIDFromContext(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return ""
	}
	return info.RequestID
}

// CurrentSpanID returns the current span sequence as a string without
// incrementing it.
func CurrentSpanID(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return "0"
	}
	val := atomic.LoadInt64(&info.spanSeq)
	if val <= 0 {
		return "0"
	}
	return strconv.FormatInt(val, 10)
}

// NextSpanID increments the span sequence for the request in ctx and returns
// (requestID, spanID). Each upstream call made while serving one request gets
// the next span number.
func NextSpanID(ctx context.Context) (string, string) {
	info := infoFromContext(ctx)
	if info == nil {
		// Used outside the middleware: mint a standalone ID.
		reqID := GenerateID()
		return reqID, "1"
	}
	val := atomic.AddInt64(&info.spanSeq, 1)
	if val <= 0 {
		val = 1
	}
	return info.RequestID, strconv.FormatInt(val, 10)
}
