package jobexec

import (
	"sort"
	"strings"
)

// MergeEnv parses a KEY=VALUE list (as returned by os.Environ) into a map and
// applies overlay on top of it. Entries without a key are dropped.
func MergeEnv(base []string, overlay map[string]string) map[string]string {
	m := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		m[kv[:i]] = kv[i+1:]
	}
	for k, v := range overlay {
		m[k] = v
	}
	return m
}

// EnvList renders an environment map as a sorted KEY=VALUE list.
func EnvList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
