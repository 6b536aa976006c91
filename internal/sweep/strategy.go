package sweep

import (
	"fmt"
	"path/filepath"
)

// Point is one (seed, execution, depth) combination in loop order.
type Point struct {
	Seed      SeedFile
	Execution int
	Depth     int
}

// Strategy supplies the loop shape and the output naming rule of a mode.
type Strategy interface {
	Mode() Mode
	// Points returns every job of the campaign, execution outermost.
	Points(p Parameters, seeds []SeedFile) []Point
	OutputPath(root string, seed SeedFile, execution, depth int) string
	// RunsHook reports whether the post-campaign hook follows the sweep.
	RunsHook() bool
}

// DepthSweep runs every seed at every depth in [MinDepth, MaxMutations],
// nesting outputs by seed stem.
type DepthSweep struct{}

func (DepthSweep) Mode() Mode { return ModeDepthSweep }

func (DepthSweep) Points(p Parameters, seeds []SeedFile) []Point {
	out := make([]Point, 0, len(seeds)*p.RepeatTimes*p.DepthCount())
	for exec := 1; exec <= p.RepeatTimes; exec++ {
		for depth := MinDepth; depth <= p.MaxMutations; depth++ {
			for _, s := range seeds {
				out = append(out, Point{Seed: s, Execution: exec, Depth: depth})
			}
		}
	}
	return out
}

// OutputPath is <root>/<stem>/execution_<i>_mutant_<d>_<name>.
func (DepthSweep) OutputPath(root string, seed SeedFile, execution, depth int) string {
	return filepath.Join(root, seed.Stem, fmt.Sprintf("execution_%d_mutant_%d_%s", execution, depth, seed.Name))
}

func (DepthSweep) RunsHook() bool { return false }

// FlatRepeat runs every seed once per execution at a single depth.
type FlatRepeat struct{}

func (FlatRepeat) Mode() Mode { return ModeFlatRepeat }

func (FlatRepeat) Points(p Parameters, seeds []SeedFile) []Point {
	out := make([]Point, 0, len(seeds)*p.RepeatTimes)
	for exec := 1; exec <= p.RepeatTimes; exec++ {
		for _, s := range seeds {
			out = append(out, Point{Seed: s, Execution: exec, Depth: p.MaxMutations})
		}
	}
	return out
}

// OutputPath is <root>/execution_<i>/mutant_<d>_<name>.
func (FlatRepeat) OutputPath(root string, seed SeedFile, execution, depth int) string {
	return filepath.Join(root, fmt.Sprintf("execution_%d", execution), fmt.Sprintf("mutant_%d_%s", depth, seed.Name))
}

func (FlatRepeat) RunsHook() bool { return true }

// StrategyFor returns the strategy implementing mode.
func StrategyFor(mode Mode) (Strategy, error) {
	switch mode {
	case ModeDepthSweep:
		return DepthSweep{}, nil
	case ModeFlatRepeat:
		return FlatRepeat{}, nil
	}
	return nil, fmt.Errorf("unknown campaign mode: %q", mode)
}
