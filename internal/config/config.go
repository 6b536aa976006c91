// Package config loads campaign settings from a CUE file.
package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// Campaign holds the optional campaign settings of a config file. Each
// field has a presence flag so callers can tell "unset" from a zero value.
type Campaign struct {
	ConfigVersion string

	SeedDir         string
	OutputDir       string
	MaxMutations    int
	PipelineType    int
	RepeatTimes     int
	Executable      string
	LDPreload       string
	ScriptPath      string
	TimeoutMs       int
	CaptureMaxBytes int
	Exclude         []string
	SeedFilter      string

	HasSeedDir         bool
	HasOutputDir       bool
	HasMaxMutations    bool
	HasPipelineType    bool
	HasRepeatTimes     bool
	HasExecutable      bool
	HasLDPreload       bool
	HasScriptPath      bool
	HasTimeoutMs       bool
	HasCaptureMaxBytes bool
	HasExclude         bool
	HasSeedFilter      bool
}

// Load compiles the CUE file at path and extracts the campaign settings.
// configVersion is required and must be supported.
func Load(path string) (Campaign, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Campaign{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Campaign{}, err
	}
	var c Campaign
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&c.ConfigVersion); err != nil {
		return Campaign{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if !IsSupportedConfigVersion(c.ConfigVersion) {
		return Campaign{}, fmt.Errorf("unsupported configVersion: %q (supported: %s)", c.ConfigVersion, SupportedConfigVersionsCSV())
	}

	strs := []struct {
		name string
		dst  *string
		has  *bool
	}{
		{"seedDir", &c.SeedDir, &c.HasSeedDir},
		{"outputDir", &c.OutputDir, &c.HasOutputDir},
		{"executable", &c.Executable, &c.HasExecutable},
		{"ldPreload", &c.LDPreload, &c.HasLDPreload},
		{"scriptPath", &c.ScriptPath, &c.HasScriptPath},
		{"seedFilter", &c.SeedFilter, &c.HasSeedFilter},
	}
	for _, f := range strs {
		if *f.has, err = optionalString(v, f.name, f.dst); err != nil {
			return Campaign{}, err
		}
	}

	ints := []struct {
		name string
		dst  *int
		has  *bool
	}{
		{"maxMutations", &c.MaxMutations, &c.HasMaxMutations},
		{"pipelineType", &c.PipelineType, &c.HasPipelineType},
		{"repeatTimes", &c.RepeatTimes, &c.HasRepeatTimes},
		{"timeoutMs", &c.TimeoutMs, &c.HasTimeoutMs},
		{"captureMaxBytes", &c.CaptureMaxBytes, &c.HasCaptureMaxBytes},
	}
	for _, f := range ints {
		if *f.has, err = optionalInt(v, f.name, f.dst); err != nil {
			return Campaign{}, err
		}
	}

	if c.HasExclude, err = optionalStringList(v, "exclude", &c.Exclude); err != nil {
		return Campaign{}, err
	}
	return c, nil
}
