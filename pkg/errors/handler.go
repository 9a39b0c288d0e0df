package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler is the global error handler.
	// It defaults to LogHandler with verbose=false.
	DefaultHandler ErrorHandler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler configures the global error handler.
// Pass nil to restore the default LogHandler.
func SetHandler(h ErrorHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		DefaultHandler = &LogHandler{}
	} else {
		DefaultHandler = h
	}
}

// Handler returns the current global error handler.
func Handler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// Report sends a usage error to the global handler.
// If err.Timestamp is zero, it is set to the current time.
func Report(err *LifecycleError) {
	ReportTo(Handler(), err)
}

// ReportTo sends a usage error to h.
func ReportTo(h ErrorHandler, err *LifecycleError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h != nil {
		h.HandleError(err)
	}
}

// ReportPanic sends a panic error to the global handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if h := Handler(); h != nil {
		h.HandlePanic(err)
	}
}

// ReportHook sends a hook failure to the global handler.
func ReportHook(err *HookError) {
	ReportHookTo(Handler(), err)
}

// ReportHookTo sends a hook failure to h.
func ReportHookTo(h ErrorHandler, err *HookError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h != nil {
		h.HandleHookError(err)
	}
}

// Recover is a helper for deferred panic recovery.
// Usage: defer errors.Recover("operation.name")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(&PanicError{
			Op:         op,
			Value:      r,
			StackTrace: CaptureStack(),
			Timestamp:  time.Now(),
		})
	}
}

// CaptureStack returns the current call stack as a string.
// It skips the first few frames to exclude the CaptureStack call itself.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}

// CollectingHandler records every reported error. Harnesses install it to
// surface failures instead of printing them.
type CollectingHandler struct {
	mu     sync.Mutex
	usage  []*LifecycleError
	panics []*PanicError
	hooks  []*HookError
}

func (h *CollectingHandler) HandleError(err *LifecycleError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.usage = append(h.usage, err)
}

func (h *CollectingHandler) HandlePanic(err *PanicError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, err)
}

func (h *CollectingHandler) HandleHookError(err *HookError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, err)
}

// Usage returns the collected usage errors.
func (h *CollectingHandler) Usage() []*LifecycleError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*LifecycleError(nil), h.usage...)
}

// Panics returns the collected panics.
func (h *CollectingHandler) Panics() []*PanicError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*PanicError(nil), h.panics...)
}

// Hooks returns the collected hook failures.
func (h *CollectingHandler) Hooks() []*HookError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*HookError(nil), h.hooks...)
}
