package executor

import "context"

// Step is one unit of a task. Id shows up in every update the step produces.
type Step struct {
	Id string
	F  func(ctx context.Context) error
}

func NewStep(id string, f func(ctx context.Context) error) *Step {
	return &Step{Id: id, F: f}
}

func (s *Step) Exec(ctx context.Context) error {
	return s.F(ctx)
}
