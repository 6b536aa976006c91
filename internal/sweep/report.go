package sweep

import (
	"time"

	"github.com/google/uuid"

	"github.com/flarebyte/deopt-sweep/internal/hook"
	"github.com/flarebyte/deopt-sweep/internal/jobexec"
	"github.com/flarebyte/deopt-sweep/internal/provenance"
)

// Entry pairs a job with its outcome.
type Entry struct {
	Job     JobDescriptor   `json:"job" yaml:"job"`
	Outcome jobexec.Outcome `json:"outcome" yaml:"outcome"`
}

// Settings is the report view of Parameters.
type Settings struct {
	SeedDir         string   `json:"seedDir" yaml:"seedDir"`
	OutputDir       string   `json:"outputDir" yaml:"outputDir"`
	MinDepth        int      `json:"minDepth" yaml:"minDepth"`
	MaxMutations    int      `json:"maxMutations" yaml:"maxMutations"`
	PipelineType    int      `json:"pipelineType" yaml:"pipelineType"`
	RepeatTimes     int      `json:"repeatTimes" yaml:"repeatTimes"`
	Executable      string   `json:"executable" yaml:"executable"`
	LDPreload       string   `json:"ldPreload" yaml:"ldPreload"`
	ScriptPath      string   `json:"scriptPath,omitempty" yaml:"scriptPath,omitempty"`
	TimeoutMs       int64    `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	CaptureMaxBytes int      `json:"captureMaxBytes,omitempty" yaml:"captureMaxBytes,omitempty"`
	Exclude         []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	SeedFilter      string   `json:"seedFilter,omitempty" yaml:"seedFilter,omitempty"`
}

// Summary counts outcomes by status.
type Summary struct {
	Total              int `json:"total" yaml:"total"`
	Succeeded          int `json:"succeeded" yaml:"succeeded"`
	ProcessFailures    int `json:"processFailures" yaml:"processFailures"`
	UnexpectedFailures int `json:"unexpectedFailures" yaml:"unexpectedFailures"`
	TimedOut           int `json:"timedOut" yaml:"timedOut"`
	Cancelled          int `json:"cancelled" yaml:"cancelled"`
}

// Failed is the number of jobs that did not succeed.
func (s Summary) Failed() int { return s.Total - s.Succeeded }

// Report is the ordered record of one campaign.
type Report struct {
	CampaignID string           `json:"campaignId" yaml:"campaignId"`
	Mode       Mode             `json:"mode" yaml:"mode"`
	Settings   Settings         `json:"settings" yaml:"settings"`
	Provenance *provenance.Info `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	StartedAt  time.Time        `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt" yaml:"finishedAt"`
	Skipped    []SkippedEntry   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Entries    []Entry          `json:"entries" yaml:"entries"`
	Hook       *hook.Outcome    `json:"hook,omitempty" yaml:"hook,omitempty"`
	Cancelled  bool             `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Summary    Summary          `json:"summary" yaml:"summary"`
}

func newReport(p Parameters, startedAt time.Time) *Report {
	return &Report{
		CampaignID: uuid.NewString(),
		Mode:       p.Mode,
		Settings:   settingsOf(p),
		StartedAt:  startedAt.UTC(),
		Entries:    []Entry{},
	}
}

func settingsOf(p Parameters) Settings {
	return Settings{
		SeedDir:         p.SeedDir,
		OutputDir:       p.OutputDir,
		MinDepth:        MinDepth,
		MaxMutations:    p.MaxMutations,
		PipelineType:    p.PipelineType,
		RepeatTimes:     p.RepeatTimes,
		Executable:      p.Executable,
		LDPreload:       p.LDPreload,
		ScriptPath:      p.ScriptPath,
		TimeoutMs:       p.Timeout.Milliseconds(),
		CaptureMaxBytes: p.CaptureMaxBytes,
		Exclude:         append([]string(nil), p.Exclude...),
		SeedFilter:      p.SeedFilter,
	}
}

func (r *Report) add(job JobDescriptor, out jobexec.Outcome) {
	r.Entries = append(r.Entries, Entry{Job: job, Outcome: out})
	r.Summary.Total++
	switch out.Status {
	case jobexec.StatusSuccess:
		r.Summary.Succeeded++
	case jobexec.StatusProcessFailure:
		r.Summary.ProcessFailures++
	case jobexec.StatusUnexpectedFailure:
		r.Summary.UnexpectedFailures++
	case jobexec.StatusTimedOut:
		r.Summary.TimedOut++
	case jobexec.StatusCancelled:
		r.Summary.Cancelled++
	}
}

func (r *Report) finish(at time.Time) {
	r.FinishedAt = at.UTC()
}
