package host

import "fmt"

// Stages of the host, reported in error messages.
const (
	StageMessage     = "message"
	StageCompile     = "compile"
	StageInstantiate = "instantiate"
	StageInit        = "init"
	StageRun         = "run"
)

// CompileError is reported when the payload is not a valid module.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile module: %v", e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// InstantiateError is reported when the module cannot be bound to the
// region, for example because its memory import does not match the region
// size.
type InstantiateError struct {
	Err error
}

func (e *InstantiateError) Error() string {
	return fmt.Sprintf("instantiate module: %v", e.Err)
}

func (e *InstantiateError) Unwrap() error {
	return e.Err
}

// InitError is reported when the module's initialization entry point fails.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize module: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// RunError is reported when the module's run entry point fails.
type RunError struct {
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run module: %v", e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func stageOf(err error) string {
	switch err.(type) {
	case *CompileError:
		return StageCompile
	case *InstantiateError:
		return StageInstantiate
	case *InitError:
		return StageInit
	case *RunError:
		return StageRun
	default:
		return StageMessage
	}
}
