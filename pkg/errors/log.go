package errors

import (
	"fmt"
	"io"
	"os"
)

// LogHandler is an ErrorHandler that logs errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Out overrides the destination; nil means stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandleError logs a usage error as a warning.
func (h *LogHandler) HandleError(err *LifecycleError) {
	if err == nil {
		return
	}
	fmt.Fprintf(h.out(), "[viewcycle warning] %s\n", err.Error())
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Op != "" {
		fmt.Fprintf(h.out(), "[viewcycle panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(h.out(), "[viewcycle panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(h.out(), "Stack trace:\n%s\n", err.StackTrace)
	}
}

// HandleHookError logs a hook failure.
func (h *LogHandler) HandleHookError(err *HookError) {
	if err == nil {
		return
	}
	if err.Position != "" {
		fmt.Fprintf(h.out(), "[viewcycle hook error] %s: %s\n", err.Position, err.Error())
	} else {
		fmt.Fprintf(h.out(), "[viewcycle hook error] %s\n", err.Error())
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(h.out(), "Stack trace:\n%s\n", err.StackTrace)
	}
}
