package configurator

import (
	"errors"
	"fmt"
	"time"

	"github.com/sergds/dnschanger/internal/adapters/dns"
)

const (
	OpApply = "apply"
	OpClear = "clear"
)

type AdapterResult struct {
	Adapter dns.Adapter
	Err     error
}

// ApplyReport lists what happened to every adapter, in enumeration order.
type ApplyReport struct {
	Op        string
	Addresses []string
	Results   []AdapterResult
	Started   time.Time
	Finished  time.Time
}

func (r *ApplyReport) Succeeded() []dns.Adapter {
	var out []dns.Adapter
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res.Adapter)
		}
	}
	return out
}

func (r *ApplyReport) Failed() []AdapterResult {
	var out []AdapterResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every adapter failure, nil when all adapters took the change.
func (r *ApplyReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Adapter, res.Err))
	}
	return errors.Join(errs...)
}
