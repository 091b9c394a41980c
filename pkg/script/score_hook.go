// Package script evaluates user-supplied Starlark scoring hooks. A hook
// script defines an adjust(report) function that returns a numeric delta
// applied to a family's raw total score, letting hosts tune selection policy
// without recompiling.
package script

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/selection"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// DefaultEvalTimeout bounds one hook invocation.
const DefaultEvalTimeout = 2 * time.Second

// hookFunction is the function a hook script must define.
const hookFunction = "adjust"

// Evaluator compiles and runs a Starlark scoring hook. The script is parsed
// once at construction; each invocation runs on its own thread with a
// timeout, so a runaway script is abandoned rather than stalling a probe.
type Evaluator struct {
	program *starlark.Program
	timeout time.Duration
	log     *telemetry.Logger
}

// NewEvaluator compiles the hook script. The script must define
// adjust(report) at the top level.
func NewEvaluator(source string, timeout time.Duration, log *telemetry.Logger) (*Evaluator, error) {
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}
	if log == nil {
		log = telemetry.FromContext(context.Background())
	}

	_, program, err := starlark.SourceProgram("score_hook.star", source, starlark.StringDict{}.Has)
	if err != nil {
		return nil, fmt.Errorf("failed to compile score hook: %w", err)
	}

	ev := &Evaluator{
		program: program,
		timeout: timeout,
		log:     log.NewComponentLogger("script"),
	}

	// Verify the hook function exists up front so a misnamed script fails
	// at load time, not mid-selection.
	globals, err := ev.run()
	if err != nil {
		return nil, err
	}
	if _, ok := globals[hookFunction]; !ok {
		return nil, fmt.Errorf("score hook does not define %s()", hookFunction)
	}
	if _, ok := globals[hookFunction].(starlark.Callable); !ok {
		return nil, fmt.Errorf("%s is not callable", hookFunction)
	}

	return ev, nil
}

// run executes the program's top level and returns its globals.
func (e *Evaluator) run() (starlark.StringDict, error) {
	thread := &starlark.Thread{
		Name: "gfxsel",
		Print: func(_ *starlark.Thread, msg string) {
			// Suppress print for security
		},
	}
	globals, err := e.program.Init(thread, starlark.StringDict{})
	if err != nil {
		return nil, fmt.Errorf("score hook execution failed: %w", err)
	}
	return globals, nil
}

// Adjust invokes adjust(report) and returns the score delta. Every failure
// mode, including timeout, returns an error; callers decide whether to treat
// that as a zero delta.
func (e *Evaluator) Adjust(ctx context.Context, report backend.CapabilityReport) (float64, error) {
	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultCh := make(chan float64, 1)
	errCh := make(chan error, 1)

	go func() {
		delta, err := e.adjustSync(report)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- delta
	}()

	select {
	case <-evalCtx.Done():
		return 0, fmt.Errorf("score hook timeout after %v", e.timeout)
	case err := <-errCh:
		return 0, err
	case delta := <-resultCh:
		return delta, nil
	}
}

// adjustSync performs one synchronous hook invocation.
func (e *Evaluator) adjustSync(report backend.CapabilityReport) (float64, error) {
	globals, err := e.run()
	if err != nil {
		return 0, err
	}

	fn, ok := globals[hookFunction].(starlark.Callable)
	if !ok {
		return 0, fmt.Errorf("%s is not callable", hookFunction)
	}

	thread := &starlark.Thread{
		Name: "gfxsel",
		Print: func(_ *starlark.Thread, msg string) {
		},
	}

	arg, err := reportToStarlark(report)
	if err != nil {
		return 0, err
	}

	value, err := starlark.Call(thread, fn, starlark.Tuple{arg}, nil)
	if err != nil {
		return 0, fmt.Errorf("score hook failed: %w", err)
	}

	switch v := value.(type) {
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return 0, fmt.Errorf("score hook returned integer out of range")
		}
		return float64(i), nil
	case starlark.Float:
		return float64(v), nil
	case starlark.NoneType:
		return 0, nil
	default:
		return 0, fmt.Errorf("score hook must return a number, got %s", value.Type())
	}
}

// Hook returns a selection.ScoreHook closure over the evaluator. Hook errors
// are logged and treated as a zero delta so a broken script never fails a
// probe.
func (e *Evaluator) Hook() selection.ScoreHook {
	return func(report backend.CapabilityReport) float64 {
		delta, err := e.Adjust(context.Background(), report)
		if err != nil {
			e.log.WithError(err).Warn("score hook error, ignoring adjustment")
			return 0
		}
		return delta
	}
}

// reportToStarlark converts a capability report to the dict the hook sees.
func reportToStarlark(report backend.CapabilityReport) (starlark.Value, error) {
	features := starlark.NewDict(len(report.Features))
	for level, supported := range report.Features {
		if err := features.SetKey(starlark.String(level.String()), starlark.Bool(supported)); err != nil {
			return nil, err
		}
	}

	dict := starlark.NewDict(9)
	entries := []struct {
		key   string
		value starlark.Value
	}{
		{"device_name", starlark.String(report.DeviceName)},
		{"vendor_name", starlark.String(report.VendorName)},
		{"driver_version", starlark.String(report.DriverVersion)},
		{"features", features},
		{"persistent_mapping", starlark.Bool(report.PersistentMapping)},
		{"max_compute_work_group_size", starlark.MakeInt64(int64(report.MaxComputeWorkGroupSize))},
		{"max_indirect_draw_count", starlark.MakeInt64(int64(report.MaxIndirectDrawCount))},
		{"dedicated_video_memory_mb", starlark.MakeInt64(report.DedicatedVideoMemoryMB)},
		{"shared_system_memory_mb", starlark.MakeInt64(report.SharedSystemMemoryMB)},
	}
	for _, e := range entries {
		if err := dict.SetKey(starlark.String(e.key), e.value); err != nil {
			return nil, err
		}
	}
	return dict, nil
}
