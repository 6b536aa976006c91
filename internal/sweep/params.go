package sweep

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the loop shape and output layout of a campaign.
type Mode string

const (
	ModeDepthSweep Mode = "depth-sweep"
	ModeFlatRepeat Mode = "flat-repeat"
)

const (
	// MinDepth is the fixed lower bound of the depth sweep.
	MinDepth = 6

	// PreloadEnvVar is the only environment key a job overrides.
	PreloadEnvVar = "LD_PRELOAD"

	DefaultMaxMutations = 15
	DefaultPipelineType = 1
	DefaultRepeatTimes  = 1
	DefaultExecutable   = "./build/deoptgen"
	DefaultLDPreload    = "/home/kayasa/gcc131/lib64/libstdc++.so.6"
)

// Parameters configure one campaign and do not change while it runs.
// In flat-repeat mode MaxMutations is the single depth used for every job.
type Parameters struct {
	Mode            Mode
	SeedDir         string
	OutputDir       string
	MaxMutations    int
	PipelineType    int
	RepeatTimes     int
	Executable      string
	LDPreload       string
	ScriptPath      string
	Timeout         time.Duration
	CaptureMaxBytes int
	Exclude         []string
	SeedFilter      string
}

// DefaultParameters returns the conventional campaign settings for mode.
func DefaultParameters(mode Mode) Parameters {
	return Parameters{
		Mode:         mode,
		MaxMutations: DefaultMaxMutations,
		PipelineType: DefaultPipelineType,
		RepeatTimes:  DefaultRepeatTimes,
		Executable:   DefaultExecutable,
		LDPreload:    DefaultLDPreload,
	}
}

// Validate checks the parameters for internal consistency. It does not touch
// the filesystem; see CheckPreconditions for that.
func (p Parameters) Validate() error {
	switch p.Mode {
	case ModeDepthSweep, ModeFlatRepeat:
	default:
		return fmt.Errorf("unknown campaign mode: %q", p.Mode)
	}
	if p.SeedDir == "" {
		return errors.New("missing seed directory")
	}
	if p.OutputDir == "" {
		return errors.New("missing output directory")
	}
	if p.Executable == "" {
		return errors.New("missing executable")
	}
	if p.RepeatTimes < 0 {
		return fmt.Errorf("invalid repeat times: %d (must be >= 0)", p.RepeatTimes)
	}
	if p.MaxMutations < 0 {
		return fmt.Errorf("invalid max mutations: %d (must be >= 0)", p.MaxMutations)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", p.Timeout)
	}
	if p.CaptureMaxBytes < 0 {
		return fmt.Errorf("invalid capture max bytes: %d", p.CaptureMaxBytes)
	}
	if p.Mode == ModeFlatRepeat && p.ScriptPath == "" {
		return errors.New("missing required script path for flat-repeat")
	}
	return nil
}

// DepthCount is the number of depth values one execution covers.
func (p Parameters) DepthCount() int {
	if p.Mode == ModeFlatRepeat {
		return 1
	}
	if p.MaxMutations < MinDepth {
		return 0
	}
	return p.MaxMutations - MinDepth + 1
}
