package executor

import (
	"context"
	"errors"
)

var (
	ErrFinished   = errors.New("executor finished")
	ErrNotStarted = errors.New("executor is not running")
)

// Executor runs steps in the order they were added, one per Tick(), on the caller's goroutine.
// After every step the sink gets an ExecutorUpdate with the step's result. A failing step does
// not stop the executor; whoever drives Tick() decides what a failure means.
// Tick() returns ErrFinished once it ran out of steps, ErrNotStarted if Start() was never called.
type Executor struct {
	Steps       []*Step
	currentstep int
	ctx         context.Context
	running     bool
	sink        func(*ExecutorUpdate)
}

type ExecutorUpdate struct {
	CurrentStep string
	Index       int // zero-based index of the step that just ran
	Total       int
	Err         error
}

func NewExecutor() *Executor {
	return &Executor{currentstep: 0, ctx: context.Background(), running: false, Steps: make([]*Step, 0)}
}

func (e *Executor) SetContext(ctx context.Context) {
	if !e.running {
		e.ctx = ctx
	}
}

func (e *Executor) AddStep(step *Step) {
	if !e.running {
		e.Steps = append(e.Steps, step)
	}
}

func (e *Executor) Start(sink func(*ExecutorUpdate)) {
	if e.running {
		return
	}
	e.running = true
	e.currentstep = 0
	e.sink = sink
}

func (e *Executor) IsRunning() bool {
	return e.running
}

func (e *Executor) Tick() error {
	if !e.running {
		return ErrNotStarted
	}
	if e.currentstep >= len(e.Steps) {
		e.running = false
		return ErrFinished
	}
	step := e.Steps[e.currentstep]
	err := step.Exec(e.ctx)
	if e.sink != nil {
		e.sink(&ExecutorUpdate{CurrentStep: step.Id, Index: e.currentstep, Total: len(e.Steps), Err: err})
	}
	e.currentstep++
	return nil
}

// Run ticks until the executor finishes.
func (e *Executor) Run(sink func(*ExecutorUpdate)) {
	e.Start(sink)
	for e.Tick() == nil {
	}
}
