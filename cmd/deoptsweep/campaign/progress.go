package campaign

import (
	"fmt"
	"io"
	"sync"

	"github.com/flarebyte/deopt-sweep/internal/jobexec"
	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

// progressReporter prints one line per finished job.
type progressReporter struct {
	enabled bool
	w       io.Writer

	mu       sync.Mutex
	failures int
}

func newProgressReporter(enabled bool, w io.Writer) *progressReporter {
	return &progressReporter{enabled: enabled && w != nil, w: w}
}

func (p *progressReporter) JobStarted(int, int, sweep.JobDescriptor) {}

func (p *progressReporter) JobFinished(index, total int, _ sweep.JobDescriptor, out jobexec.Outcome) {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !out.OK() {
		p.failures++
	}
	_, _ = fmt.Fprintf(p.w, "progress job=%d/%d failures=%d\n", index, total, p.failures)
}
