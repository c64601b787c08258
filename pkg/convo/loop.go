package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/halo/pkg/directive"
	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/format"
	"github.com/harunnryd/halo/pkg/llm"
	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/prompt"
	"github.com/harunnryd/halo/pkg/tools"
)

// Config bounds one conversation turn.
type Config struct {
	Model             string
	SystemOverride    string
	MaxToolIterations int
	ModelTimeout      time.Duration
}

const (
	defaultMaxToolIterations = 3
	defaultModelTimeout      = 30 * time.Second
)

// Outcome is the result of one user turn.
type Outcome struct {
	State      State
	Answer     string
	Err        error
	Iterations int
}

// Loop drives the model/tool round trip for a turn. The tool set is
// snapshotted once per turn so registration during a turn cannot change the
// advertised tools mid-flight.
type Loop struct {
	Client    llm.Client
	Registry  *tools.Registry
	Prompts   *prompt.Builder
	Exec      *tools.Executor
	Formatter *format.Formatter
	Obs       metrics.Observer
	Log       *slog.Logger
	Cfg       Config
}

// Turn runs one user utterance to completion.
func (l *Loop) Turn(ctx context.Context, cc *Context, userText string) Outcome {
	cfg := l.cfg()
	snap := l.Registry.Snapshot()
	system := l.Prompts.System(snap, cfg.SystemOverride)
	st := newTurnState()

	cc.Append(RoleUser, userText)
	l.record("turn_start", nil, map[string]any{"tools": snap.Len()})

	promptText := transcript(cc.Messages())
	iterations := 0
	toolSucceeded := false
	var results []string

	for {
		reply, err := l.generate(ctx, cfg, system, promptText)
		if err != nil {
			return l.fail(st, iterations, err)
		}
		l.record("model_reply_received", nil, map[string]any{"chars": len(reply.Text)})
		cc.Append(RoleAssistant, reply.Text)

		if snap.Empty() {
			return l.finish(st, iterations, reply.Text, toolSucceeded)
		}

		inv, _, perr := directive.Parse(reply.Text)
		if perr != nil {
			// A malformed directive fails open: the reply is served as a
			// plain answer rather than ending the turn in an error.
			l.logger().Warn("directive_parse_error", slog.String("error", perr.Error()))
			return l.finish(st, iterations, reply.Text, toolSucceeded)
		}
		if inv == nil {
			return l.finish(st, iterations, reply.Text, toolSucceeded)
		}

		iterations++
		if iterations > cfg.MaxToolIterations {
			err := errorsx.Wrap(
				fmt.Errorf("tool iteration limit %d exceeded", cfg.MaxToolIterations),
				errorsx.ReasonIterationLimit)
			return l.fail(st, iterations, err)
		}
		if err := st.Transition(StateToolCallDetected); err != nil {
			return l.fail(st, iterations, err)
		}
		l.record("tool_call_detected", map[string]string{"tool": inv.Tool}, map[string]any{"iteration": iterations})

		if err := st.Transition(StateToolExecuting); err != nil {
			return l.fail(st, iterations, err)
		}
		resultLine, ok, err := l.invoke(ctx, snap, inv)
		if err != nil {
			return l.fail(st, iterations, err)
		}
		toolSucceeded = toolSucceeded || ok

		cc.Append(RoleTool, resultLine)
		if err := st.Transition(StateAwaitingModel); err != nil {
			return l.fail(st, iterations, err)
		}
		// Every result so far goes into the follow-up; a model that reads two
		// sensors must see both readings when it composes the final answer.
		results = append(results, resultLine)
		promptText = l.Prompts.FollowUp(userText, results)
	}
}

// invoke binds and executes one directive. Tool-data failures come back as a
// feedback line for the model; only cancellation is terminal.
func (l *Loop) invoke(ctx context.Context, snap *tools.Snapshot, inv *directive.Invocation) (string, bool, error) {
	tool, found := snap.Lookup(inv.Tool)
	var res tools.Result
	if !found {
		res = l.Exec.Execute(ctx, snap, inv.Tool, nil)
	} else {
		args, bindErr := directive.Bind(inv.RawParams, tool)
		if bindErr != nil {
			res = tools.Result{Tool: inv.Tool, Status: tools.StatusError, Err: bindErr}
		} else {
			res = l.Exec.Execute(ctx, snap, inv.Tool, args)
		}
	}
	l.record("tool_executed", map[string]string{"tool": inv.Tool, "status": res.Status}, nil)
	if res.OK {
		return inv.Tool + ": " + res.Value, true, nil
	}
	if reason := errorsx.Reason(res.Err); errorsx.ToolDataReason(reason) || reason == errorsx.ReasonParse {
		return l.Formatter.ToolFeedback(inv.Tool, res.Err), false, nil
	}
	return "", false, res.Err
}

func (l *Loop) generate(ctx context.Context, cfg Config, system, promptText string) (llm.Reply, error) {
	genCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
	defer cancel()
	reply, err := l.Client.Generate(genCtx, llm.Request{
		Model:  cfg.Model,
		System: system,
		Prompt: promptText,
	})
	if err != nil {
		if ctx.Err() != nil {
			return llm.Reply{}, errorsx.Wrap(ctx.Err(), errorsx.ReasonCancelled)
		}
		if genCtx.Err() == context.DeadlineExceeded {
			return llm.Reply{}, errorsx.Wrap(fmt.Errorf("model did not answer in %s", cfg.ModelTimeout), errorsx.ReasonConnection)
		}
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonUnknown)
	}
	return reply, nil
}

func (l *Loop) finish(st *turnState, iterations int, text string, toolSucceeded bool) Outcome {
	if err := st.Transition(StateFinalAnswer); err != nil {
		return l.fail(st, iterations, err)
	}
	answer := strings.TrimSpace(text)
	if answer == "" && toolSucceeded {
		answer = l.Formatter.SuccessAck()
	} else {
		answer = l.Formatter.FinalAnswer(answer)
	}
	l.record("turn_done", nil, map[string]any{
		"iterations":  iterations,
		"duration_ms": time.Since(st.started).Milliseconds(),
	})
	return Outcome{State: StateFinalAnswer, Answer: answer, Iterations: iterations}
}

func (l *Loop) fail(st *turnState, iterations int, err error) Outcome {
	st.current = StateFailed
	l.logger().Error("turn_failed",
		slog.String("reason", string(errorsx.Reason(err))),
		slog.String("error", err.Error()))
	l.record("turn_failed", map[string]string{"reason": string(errorsx.Reason(err))}, map[string]any{
		"iterations":  iterations,
		"duration_ms": time.Since(st.started).Milliseconds(),
	})
	return Outcome{
		State:      StateFailed,
		Answer:     l.Formatter.FailureText(err),
		Err:        err,
		Iterations: iterations,
	}
}

func (l *Loop) cfg() Config {
	cfg := l.Cfg
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = defaultMaxToolIterations
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	return cfg
}

func (l *Loop) record(name string, tags map[string]string, fields map[string]any) {
	if l.Obs == nil {
		return
	}
	l.Obs.RecordEvent(metrics.Event(name, tags, fields))
}

func (l *Loop) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

func transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func roleLabel(r Role) string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}
