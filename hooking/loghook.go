package hooking

import (
	"fmt"
	"log"
)

// A LogHook is a hook that is resonsible for recording information from the
// running components.
type LogHook interface {
	Hook
}

// LogHookBase proovides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// Named is implemented by hookable domains that have a printable name.
type Named interface {
	Name() string
}

// Logger is a hook that prints every hook invocation it receives, optionally
// restricted to a set of positions.
type Logger struct {
	LogHookBase

	positions map[*HookPos]bool
}

// NewLogger returns a Logger that writes to logger. If positions are given,
// only those positions are printed.
func NewLogger(logger *log.Logger, positions ...*HookPos) *Logger {
	h := new(Logger)
	h.Logger = logger

	if len(positions) > 0 {
		h.positions = make(map[*HookPos]bool, len(positions))
		for _, p := range positions {
			h.positions[p] = true
		}
	}

	return h
}

// Func writes the hook information into the logger.
func (h *Logger) Func(ctx HookCtx) {
	if h.positions != nil && !h.positions[ctx.Pos] {
		return
	}

	where := "-"
	if n, ok := ctx.Domain.(Named); ok {
		where = n.Name()
	}

	pos := "?"
	if ctx.Pos != nil {
		pos = ctx.Pos.Name
	}

	line := fmt.Sprintf("[%s] %s: %v", where, pos, ctx.Item)
	if ctx.Detail != nil {
		line += fmt.Sprintf(" (%v)", ctx.Detail)
	}

	h.Logger.Print(line)
}
