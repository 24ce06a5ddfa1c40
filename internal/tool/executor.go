package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salesagent/internal/llm"
	"salesagent/internal/logger"

	"golang.org/x/time/rate"
)

// EmptyOutputPlaceholder is returned when a tool produces no output, since
// model APIs reject empty tool content
const EmptyOutputPlaceholder = "(Tool executed successfully with no output)"

// Executor runs registry tools one at a time, throttled and logged.
type Executor struct {
	registry *Registry
	limiter  *rate.Limiter
	log      *logger.Logger
}

func NewExecutor(registry *Registry, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		registry: registry,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		log:      log,
	}
}

// SetRateLimit caps tool executions per minute. Zero removes the cap.
func (e *Executor) SetRateLimit(perMinute int) {
	if perMinute <= 0 {
		e.limiter.SetLimit(rate.Inf)
		return
	}
	e.limiter.SetLimit(rate.Every(time.Minute / time.Duration(perMinute)))
}

// Execute runs each tool call in order. It only fails when ctx ends; tool
// failures are reported in the results.
func (e *Executor) Execute(ctx context.Context, toolCalls []*llm.ToolCall) ([]*CallResult, error) {
	results := make([]*CallResult, 0, len(toolCalls))
	for _, tc := range toolCalls {
		res, err := e.Run(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
		if err != nil {
			return nil, err
		}
		res.CallID = tc.ID
		results = append(results, res)
	}
	return results, nil
}

// Run executes a single tool by name
func (e *Executor) Run(ctx context.Context, name string, params json.RawMessage) (*CallResult, error) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	call := &CallResult{ToolName: name, Params: params, StartTime: time.Now()}

	e.log.ToolCall(name, string(params))

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting to run %s: %w", name, err)
	}

	call.Result = e.execute(ctx, name, params)
	call.EndTime = time.Now()

	e.log.ToolResult(name, call.Result.Success, call.Result.Text(), call.Duration())
	return call, nil
}

func (e *Executor) execute(ctx context.Context, name string, params json.RawMessage) *Result {
	t, err := e.registry.Get(name)
	if err != nil {
		return Failure("%v", err)
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		return Failure("execution error: %v", err)
	}
	if result == nil {
		return Failure("tool %s returned no result", name)
	}
	if result.Success && result.Output == "" {
		result.Output = EmptyOutputPlaceholder
	}
	return result
}
