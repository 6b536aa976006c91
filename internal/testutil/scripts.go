package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// RequirePOSIXShell skips tests that spawn /bin/sh scripts.
func RequirePOSIXShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests require POSIX shell")
	}
}

// WriteScript writes an executable /bin/sh script and returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", p, err)
	}
	return p
}

// WriteSeeds creates a seed directory containing the named files.
func WriteSeeds(t *testing.T, dir string, names ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("seed "+n+"\n"), 0o644); err != nil {
			t.Fatalf("write seed %s: %v", n, err)
		}
	}
	return dir
}

// FakeMutator writes a stand-in for the mutator. Every invocation appends
// "<args> | LD_PRELOAD=<value>" to logPath, then copies the seed to the -o
// path. Seeds whose path contains failOn exit with status 3 instead.
func FakeMutator(t *testing.T, dir, logPath, failOn string) string {
	t.Helper()
	fail := ""
	if failOn != "" {
		fail = fmt.Sprintf("case \"$seed\" in *%s*) echo \"rejected $seed\" >&2; exit 3 ;; esac\n", failOn)
	}
	body := strings.Join([]string{
		fmt.Sprintf("echo \"$* | LD_PRELOAD=$LD_PRELOAD\" >> '%s'", logPath),
		`out=""`,
		`seed=""`,
		`while [ $# -gt 0 ]; do`,
		`  case "$1" in`,
		`    -o) out="$2"; shift 2 ;;`,
		`    -m) shift 2 ;;`,
		`    -pipeline-type=*) shift ;;`,
		`    *) seed="$1"; shift ;;`,
		`  esac`,
		`done`,
		fail + `cp "$seed" "$out"`,
		`echo "mutated $seed"`,
		``,
	}, "\n")
	return WriteScript(t, dir, "deoptgen", body)
}

// ReadLines returns the non-empty lines of a file, or nil if it is missing.
func ReadLines(t *testing.T, p string) []string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read %s: %v", p, err)
	}
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
