package sweep

import (
	"strconv"

	"github.com/flarebyte/deopt-sweep/internal/jobexec"
)

// JobDescriptor is one point of the sweep, ready to run. Env is the full
// process environment of the job and is kept out of reports.
type JobDescriptor struct {
	Seed       SeedFile          `json:"seed" yaml:"seed"`
	Execution  int               `json:"execution" yaml:"execution"`
	Depth      int               `json:"depth" yaml:"depth"`
	OutputPath string            `json:"outputPath" yaml:"outputPath"`
	Args       []string          `json:"args" yaml:"args"`
	Env        map[string]string `json:"-" yaml:"-"`
}

// Command converts the descriptor into an executor command.
func (j JobDescriptor) Command() jobexec.Command {
	return jobexec.Command{Args: append([]string(nil), j.Args...), Env: j.Env}
}

// Build derives the descriptor for (seed, execution, depth). It is pure:
// environ is the ambient environment to copy and the output directory is
// left for the caller to create.
func Build(s Strategy, seed SeedFile, execution, depth int, p Parameters, environ []string) JobDescriptor {
	out := s.OutputPath(p.OutputDir, seed, execution, depth)
	return JobDescriptor{
		Seed:       seed,
		Execution:  execution,
		Depth:      depth,
		OutputPath: out,
		Args:       MutatorArgs(p.Executable, p.PipelineType, depth, seed.Path, out),
		Env:        jobexec.MergeEnv(environ, map[string]string{PreloadEnvVar: p.LDPreload}),
	}
}

// MutatorArgs renders the mutator command line. The mix of "-flag=value"
// and "-flag value" is what the mutator's parser accepts.
func MutatorArgs(executable string, pipelineType, depth int, seedPath, outputPath string) []string {
	return []string{
		executable,
		"-pipeline-type=" + strconv.Itoa(pipelineType),
		"-m", strconv.Itoa(depth),
		seedPath,
		"-o", outputPath,
	}
}
