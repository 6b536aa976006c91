package campaign

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/deopt-sweep/internal/config"
	"github.com/flarebyte/deopt-sweep/internal/jobexec"
	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

// flagValues holds the raw values of the campaign flags of one command.
type flagValues struct {
	maxMutations    int
	pipelineType    int
	repeatTimes     int
	executable      string
	ldPreload       string
	scriptPath      string
	timeout         time.Duration
	captureMaxBytes int
	exclude         []string
	seedFilter      string
	configPath      string
	reportPath      string
	progress        bool
}

func bindFlags(cmd *cobra.Command, mode sweep.Mode, fv *flagValues) {
	f := cmd.Flags()
	f.IntVar(&fv.maxMutations, "max-mutations", sweep.DefaultMaxMutations, "Maximum mutation depth (flat-repeat: the depth of every job)")
	f.IntVar(&fv.pipelineType, "pipeline-type", sweep.DefaultPipelineType, "Pipeline type passed to the mutator")
	f.IntVar(&fv.repeatTimes, "repeat-times", sweep.DefaultRepeatTimes, "Number of executions")
	f.StringVar(&fv.executable, "executable", sweep.DefaultExecutable, "Path to the mutator executable")
	f.StringVar(&fv.ldPreload, "ld-preload", sweep.DefaultLDPreload, "LD_PRELOAD value for mutator runs")
	f.DurationVar(&fv.timeout, "timeout", 0, "Per-job timeout (0 disables)")
	f.IntVar(&fv.captureMaxBytes, "capture-max-bytes", jobexec.DefaultCaptureMaxBytes, "Maximum captured bytes per output stream")
	f.StringArrayVar(&fv.exclude, "exclude", nil, "Gitignore-style pattern of seed entries to skip (repeatable)")
	f.StringVar(&fv.seedFilter, "seed-filter", "", "Lua expression over name, stem, ext and size selecting seeds")
	f.StringVarP(&fv.configPath, "config", "c", "", "Path to config file (.cue)")
	if mode == sweep.ModeFlatRepeat {
		f.StringVar(&fv.scriptPath, "script-path", "", "Post-campaign script run on the seed and output directories")
	}
}

// dirArgs accepts either both positional directories or none.
func dirArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || len(args) == 2 {
		return nil
	}
	return fmt.Errorf("expected <seed_dir> <output_dir>, or none when the config provides them (got %d args)", len(args))
}

// resolveParameters merges defaults, the config file, positional args and
// explicitly set flags, in increasing precedence.
func resolveParameters(cmd *cobra.Command, mode sweep.Mode, fv *flagValues, args []string) (sweep.Parameters, error) {
	p := sweep.DefaultParameters(mode)
	p.CaptureMaxBytes = jobexec.DefaultCaptureMaxBytes

	if fv.configPath != "" {
		c, err := config.Load(fv.configPath)
		if err != nil {
			return sweep.Parameters{}, err
		}
		applyConfig(&p, c)
	}
	if len(args) == 2 {
		p.SeedDir, p.OutputDir = args[0], args[1]
	}

	f := cmd.Flags()
	if f.Changed("max-mutations") {
		p.MaxMutations = fv.maxMutations
	}
	if f.Changed("pipeline-type") {
		p.PipelineType = fv.pipelineType
	}
	if f.Changed("repeat-times") {
		p.RepeatTimes = fv.repeatTimes
	}
	if f.Changed("executable") {
		p.Executable = fv.executable
	}
	if f.Changed("ld-preload") {
		p.LDPreload = fv.ldPreload
	}
	if f.Changed("timeout") {
		p.Timeout = fv.timeout
	}
	if f.Changed("capture-max-bytes") {
		p.CaptureMaxBytes = fv.captureMaxBytes
	}
	if f.Changed("exclude") {
		p.Exclude = append([]string(nil), fv.exclude...)
	}
	if f.Changed("seed-filter") {
		p.SeedFilter = fv.seedFilter
	}
	if f.Changed("script-path") {
		p.ScriptPath = fv.scriptPath
	}
	if mode != sweep.ModeFlatRepeat {
		p.ScriptPath = ""
	}

	if err := p.Validate(); err != nil {
		return sweep.Parameters{}, err
	}
	return p, nil
}

func applyConfig(p *sweep.Parameters, c config.Campaign) {
	if c.HasSeedDir {
		p.SeedDir = c.SeedDir
	}
	if c.HasOutputDir {
		p.OutputDir = c.OutputDir
	}
	if c.HasMaxMutations {
		p.MaxMutations = c.MaxMutations
	}
	if c.HasPipelineType {
		p.PipelineType = c.PipelineType
	}
	if c.HasRepeatTimes {
		p.RepeatTimes = c.RepeatTimes
	}
	if c.HasExecutable {
		p.Executable = c.Executable
	}
	if c.HasLDPreload {
		p.LDPreload = c.LDPreload
	}
	if c.HasScriptPath {
		p.ScriptPath = c.ScriptPath
	}
	if c.HasTimeoutMs {
		p.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	}
	if c.HasCaptureMaxBytes {
		p.CaptureMaxBytes = c.CaptureMaxBytes
	}
	if c.HasExclude {
		p.Exclude = append([]string(nil), c.Exclude...)
	}
	if c.HasSeedFilter {
		p.SeedFilter = c.SeedFilter
	}
}
