package mcpserver

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/ushell-mcp/internal/safeexec"
	"github.com/nextlevelbuilder/ushell-mcp/internal/tracker"
	"github.com/nextlevelbuilder/ushell-mcp/pkg/protocol"
)

// specialTools are dispatched to C9 rather than the safe-exec pipeline.
var specialTools = map[string]bool{
	"get_shell_info":    true,
	"get_history":       true,
	"get_shell_context": true,
	"search_commands":   true,
	"suggest_command":   true,
}

// handleCallTool implements the call_tool algorithm of spec.md §4.6.
func (rt *router) handleCallTool(ctx context.Context, req protocol.RequestFrame) protocol.ResponseFrame {
	tool, ok := req.Field("tool")
	if !ok || tool == "" {
		return protocol.NewError(req.ID, req.HasID, "Missing tool parameter")
	}

	if specialTools[tool] {
		return rt.dispatchSpecialTool(req, tool)
	}

	if rateLimited(rt.limiter) {
		return protocol.NewError(req.ID, req.HasID, "rate limit exceeded")
	}

	text, _ := req.Field("text")
	resolvedName := safeexec.ResolveAlias(tool)

	// History records every attempted invocation, whitelisted or not
	// (shellstate.Provider.RecordCommand's contract; SPEC_FULL.md §4.10),
	// so this must run ahead of the whitelist/blacklist gate below.
	rt.srv.shell.RecordCommand(resolvedName + " " + text)

	if !safeexec.IsSafeCommand(resolvedName) {
		return protocol.NewError(req.ID, req.HasID, fmt.Sprintf("command not found or not allowed: %s", resolvedName))
	}

	rt.notify(protocol.NewNotification(protocol.EventToolStarted, "starting "+resolvedName))

	cwd, _ := rt.srv.shell.Cwd()
	execID, outcome, spawned, execErr := rt.runTracked(ctx, cwd, resolvedName, text)

	if execErr != nil {
		// Sanitization and tracker-capacity failures never reach
		// safeexec.Start: no child is ever forked, so they are Validation
		// errors with no side effects (spec.md §7 Taxonomy item 2) — no
		// audit record, no tool_failed notification. Only a genuine
		// spawn attempt (fork/exec failure past that point) counts as
		// "exec has begun" for §4.6's tool_failed rule.
		if spawned {
			rt.notify(protocol.NewNotification(protocol.EventToolFailed, execErr.Error()))
			rt.recordAudit(resolvedName, text, -1, false)
		}
		return protocol.NewError(req.ID, req.HasID, execErr.Error())
	}

	success := outcome.ExitCode == 0
	rt.recordAudit(resolvedName, text, outcome.ExitCode, success)

	result := fmt.Sprintf(
		`{"tool":"%s","output":"%s","exit_code":%d,"execution_id":"%s"}`,
		protocol.EscapeString(resolvedName),
		protocol.EscapeString(outcome.Stdout+outcome.Stderr),
		outcome.ExitCode,
		protocol.EscapeString(execID),
	)

	if success {
		rt.notify(protocol.NewNotification(protocol.EventToolCompleted, resolvedName+" completed"))
	} else {
		rt.notify(protocol.NewNotification(protocol.EventToolFailed, fmt.Sprintf("%s exited %d", resolvedName, outcome.ExitCode)))
	}

	return protocol.NewResponse(req.ID, req.HasID, result)
}

// runTracked spawns the command through the safe-exec pipeline, tracing
// the call and pre-registering the execution record immediately after
// spawn succeeds so cancel_execution can observe it mid-run (the
// pre-registration resolution of SPEC_FULL.md §9, open question 2).
//
// spawned reports whether a fork/exec was actually attempted: false for
// the pre-spawn validation failures (bad sanitization, tracker at
// capacity), true from the point safeexec.Start is called onward — the
// caller uses this to decide whether a failure gets an audit record and
// a tool_failed notification.
func (rt *router) runTracked(ctx context.Context, cwd, name, text string) (execID string, outcome safeexec.Outcome, spawned bool, err error) {
	spanCtx, span := rt.srv.tr.StartCallTool(ctx, name)
	defer span.End()

	sanitized, err := safeexec.SanitizeArg(text)
	if err != nil {
		span.SetError(err)
		return "", safeexec.Outcome{}, false, err
	}
	args := splitArgs(sanitized)

	if !rt.srv.track.HasCapacity() {
		err = fmt.Errorf("tracking full")
		span.SetError(err)
		return "", safeexec.Outcome{}, false, err
	}

	proc, err := safeexec.Start(spanCtx, cwd, name, args)
	if err != nil {
		span.SetError(err)
		return "", safeexec.Outcome{}, true, err
	}

	// Pre-register immediately after spawn, before blocking on Wait, so
	// cancel_execution can already find and signal this pid.
	execID, trackErr := rt.srv.track.Track(name, rt.connID, proc.Pid)
	if trackErr != nil {
		execID = ""
	}

	outcome = proc.Wait()

	status := tracker.StatusCompleted
	if outcome.ExitCode != 0 {
		status = tracker.StatusFailed
	}
	if execID != "" {
		rt.srv.track.Update(execID, status)
		// The child has now been reaped by Wait(); free the slot
		// (spec.md §3: "removed only after the child has been reaped").
		// A cancelled execution is reaped right here too, since the
		// goroutine blocked in Wait() above is what observes the
		// SIGTERM-induced exit.
		rt.srv.track.Cleanup(execID)
	}

	span.SetExitCode(outcome.ExitCode)
	span.SetTimedOut(outcome.TimedOut)
	return execID, outcome, true, nil
}

func splitArgs(s string) []string {
	var args []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				args = append(args, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		args = append(args, s[start:])
	}
	return args
}

func (rt *router) recordAudit(command, firstArg string, exitCode int, success bool) {
	if rt.srv.aud == nil {
		return
	}
	arg := firstArg
	if i := indexOfSpace(firstArg); i >= 0 {
		arg = firstArg[:i]
	}
	rt.srv.aud.Record(rt.remote, command, arg, exitCode, success)
}

func indexOfSpace(s string) int {
	for i, r := range s {
		if r == ' ' {
			return i
		}
	}
	return -1
}

// handleGetExecutionStatus implements spec.md §4.6's get_execution_status.
func (rt *router) handleGetExecutionStatus(req protocol.RequestFrame) protocol.ResponseFrame {
	execID, ok := req.Field("execution_id")
	if !ok || execID == "" {
		return protocol.NewError(req.ID, req.HasID, "Missing execution_id parameter")
	}

	rec, ok := rt.srv.track.Find(execID)
	if !ok {
		return protocol.NewError(req.ID, req.HasID, "Unknown execution_id")
	}

	status := "running"
	switch rec.Status {
	case tracker.StatusCompleted:
		status = "completed"
	case tracker.StatusFailed:
		status = "failed"
	}
	elapsed := time.Since(rec.StartTime).Seconds()
	result := fmt.Sprintf(
		`{"execution_id":"%s","tool":"%s","status":"%s","elapsed_time":%f,"pid":%d}`,
		protocol.EscapeString(execID), protocol.EscapeString(rec.ToolName), status, elapsed, rec.ChildPID,
	)
	return protocol.NewResponse(req.ID, req.HasID, result)
}

// handleCancelExecution implements spec.md §4.6's cancel_execution: send
// SIGTERM, mark the record terminal, and emit tool_failed. There is no
// escalation to SIGKILL (spec.md §5 Cancellation).
func (rt *router) handleCancelExecution(req protocol.RequestFrame) protocol.ResponseFrame {
	execID, ok := req.Field("execution_id")
	if !ok || execID == "" {
		return protocol.NewError(req.ID, req.HasID, "Missing execution_id parameter")
	}

	rec, ok := rt.srv.track.Find(execID)
	if !ok {
		return protocol.NewError(req.ID, req.HasID, "Unknown execution_id")
	}

	proc, err := os.FindProcess(rec.ChildPID)
	if err != nil {
		return protocol.NewError(req.ID, req.HasID, "Process not found")
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return protocol.NewError(req.ID, req.HasID, "Failed to signal process: "+err.Error())
	}

	rt.srv.track.Update(execID, tracker.StatusFailed)
	rt.notify(protocol.NewNotification(protocol.EventToolFailed, rec.ToolName+" cancelled"))

	result := fmt.Sprintf(`{"execution_id":"%s","status":"cancelled"}`, protocol.EscapeString(execID))
	return protocol.NewResponse(req.ID, req.HasID, result)
}
