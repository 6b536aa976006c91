package sweep

import "github.com/flarebyte/deopt-sweep/internal/jobexec"

// Observer is notified around every job. index is 1-based.
type Observer interface {
	JobStarted(index, total int, job JobDescriptor)
	JobFinished(index, total int, job JobDescriptor, out jobexec.Outcome)
}

type nopObserver struct{}

func (nopObserver) JobStarted(int, int, JobDescriptor)                   {}
func (nopObserver) JobFinished(int, int, JobDescriptor, jobexec.Outcome) {}
