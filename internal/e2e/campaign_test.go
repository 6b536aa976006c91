package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarebyte/deopt-sweep/internal/testutil"
)

type fixture struct {
	dir     string
	seeds   string
	out     string
	exe     string
	calls   string
	scripts string
}

func newFixture(t *testing.T, failOn string, seeds ...string) fixture {
	t.Helper()
	testutil.RequirePOSIXShell(t)
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		seeds:   testutil.WriteSeeds(t, filepath.Join(dir, "seeds"), seeds...),
		out:     filepath.Join(dir, "out"),
		calls:   filepath.Join(dir, "calls.log"),
		scripts: filepath.Join(dir, "scripts"),
	}
	f.exe = testutil.FakeMutator(t, filepath.Join(dir, "bin"), f.calls, failOn)
	return f
}

func (f fixture) postScript(t *testing.T, exitStatus int) (script, log string) {
	t.Helper()
	log = filepath.Join(f.dir, "post.log")
	body := fmt.Sprintf("echo \"$1\" >> '%s'\nexit %d\n", log, exitStatus)
	return testutil.WriteScript(t, f.scripts, "post.sh", body), log
}

func TestDepthSweep_EndToEnd(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "b.bin", "a.bin", "b.bin")
	reportPath := filepath.Join(f.dir, "report.yaml")

	res := runCmd(t, bin, "--log-format", "json", "depth-sweep", f.seeds, f.out,
		"--max-mutations", "7", "--executable", f.exe, "--report", reportPath, "--progress")
	if res.code != 0 {
		t.Fatalf("exit %d\nstderr: %s", res.code, res.stderr)
	}
	got := treeContents(t, f.out)
	want := map[string]string{
		"a/execution_1_mutant_6_a.bin": "seed a.bin\n",
		"a/execution_1_mutant_7_a.bin": "seed a.bin\n",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outputs: %v", got)
	}
	if n := len(testutil.ReadLines(t, f.calls)); n != 4 {
		t.Fatalf("expected 4 mutator calls, got %d", n)
	}
	if !strings.Contains(string(res.stderr), "progress job=4/4 failures=2") {
		t.Fatalf("missing progress line:\n%s", res.stderr)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep struct {
		Summary struct {
			Total           int `yaml:"total"`
			ProcessFailures int `yaml:"processFailures"`
		} `yaml:"summary"`
	}
	if err := yaml.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Summary.Total != 4 || rep.Summary.ProcessFailures != 2 {
		t.Fatalf("unexpected summary: %+v", rep.Summary)
	}
}

func TestFlatRepeat_EndToEndWithHook(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin", "b.bin")
	script, postLog := f.postScript(t, 0)

	res := runCmd(t, bin, "flat-repeat", f.seeds, f.out, "--repeat-times", "2",
		"--max-mutations", "10", "--executable", f.exe, "--script-path", script)
	if res.code != 0 {
		t.Fatalf("exit %d\nstderr: %s", res.code, res.stderr)
	}
	got := treeContents(t, f.out)
	for _, p := range []string{
		"execution_1/mutant_10_a.bin", "execution_1/mutant_10_b.bin",
		"execution_2/mutant_10_a.bin", "execution_2/mutant_10_b.bin",
	} {
		if _, ok := got[p]; !ok {
			t.Fatalf("missing %s in %v", p, got)
		}
	}
	if lines := testutil.ReadLines(t, postLog); !reflect.DeepEqual(lines, []string{f.seeds, f.out}) {
		t.Fatalf("unexpected hook calls: %v", lines)
	}
	var summary struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(res.stdout, &summary); err != nil || summary.Total != 4 {
		t.Fatalf("unexpected summary %q: %v", res.stdout, err)
	}
}

func TestFlatRepeat_HookFailureExitsOne(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin")
	script, postLog := f.postScript(t, 5)

	res := runCmd(t, bin, "flat-repeat", f.seeds, f.out, "--executable", f.exe, "--script-path", script)
	if res.code != 1 {
		t.Fatalf("expected exit 1, got %d\nstderr: %s", res.code, res.stderr)
	}
	if !strings.Contains(string(res.stderr), "post-campaign script failed") {
		t.Fatalf("unexpected stderr: %s", res.stderr)
	}
	if lines := testutil.ReadLines(t, postLog); len(lines) != 1 {
		t.Fatalf("second hook call must be skipped: %v", lines)
	}
	if _, err := os.Stat(filepath.Join(f.out, "execution_1", "mutant_15_a.bin")); err != nil {
		t.Fatalf("job output must stay in place: %v", err)
	}
}

func TestFlatRepeat_MissingScriptPath(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin")
	res := runCmd(t, bin, "flat-repeat", f.seeds, f.out, "--executable", f.exe)
	if res.code != 1 || string(res.stderr) != "missing required script path for flat-repeat\n" {
		t.Fatalf("exit %d stderr %q", res.code, res.stderr)
	}
}

func TestPreconditions_ZeroJobs(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin")

	res := runCmd(t, bin, "depth-sweep", filepath.Join(f.dir, "missing"), f.out, "--executable", f.exe)
	if res.code != 1 {
		t.Fatalf("missing seed dir: exit %d", res.code)
	}
	res = runCmd(t, bin, "depth-sweep", f.seeds, f.out, "--executable", filepath.Join(f.dir, "nope"))
	if res.code != 1 {
		t.Fatalf("missing executable: exit %d", res.code)
	}
	if lines := testutil.ReadLines(t, f.calls); len(lines) != 0 {
		t.Fatalf("mutator must not run: %v", lines)
	}
	if _, err := os.Stat(f.out); !os.IsNotExist(err) {
		t.Fatalf("output root must not be created: %v", err)
	}
}

func TestConfigFileProvidesDirectories(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.js", "b.wasm")
	cfg := filepath.Join(f.dir, "campaign.cue")
	body := fmt.Sprintf(`{
  configVersion: "1"
  seedDir: %q
  outputDir: %q
  executable: %q
  maxMutations: 6
  seedFilter: "ext == \".js\""
}
`, f.seeds, f.out, f.exe)
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	res := runCmd(t, bin, "depth-sweep", "--config", cfg)
	if res.code != 0 {
		t.Fatalf("exit %d\nstderr: %s", res.code, res.stderr)
	}
	got := treeContents(t, f.out)
	if !reflect.DeepEqual(got, map[string]string{"a/execution_1_mutant_6_a.js": "seed a.js\n"}) {
		t.Fatalf("unexpected outputs: %v", got)
	}
}

func TestRerunIsIdempotent(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin", "b.bin")
	script, _ := f.postScript(t, 0)

	second := filepath.Join(f.dir, "seeds-copy")
	if err := testutil.CopyTree(f.seeds, second); err != nil {
		t.Fatalf("copy: %v", err)
	}
	args := []string{"--max-mutations", "8", "--repeat-times", "2", "--executable", f.exe, "--script-path", script}
	for i := 0; i < 2; i++ {
		res := runCmd(t, bin, append([]string{"flat-repeat", f.seeds, f.out}, args...)...)
		if res.code != 0 {
			t.Fatalf("run %d: exit %d\nstderr: %s", i, res.code, res.stderr)
		}
	}
	otherOut := filepath.Join(f.dir, "out-copy")
	if res := runCmd(t, bin, append([]string{"flat-repeat", second, otherOut}, args...)...); res.code != 0 {
		t.Fatalf("copy run: exit %d\nstderr: %s", res.code, res.stderr)
	}

	a, b := treeContents(t, f.out), treeContents(t, otherOut)
	if len(a) != 4 || !reflect.DeepEqual(a, b) {
		t.Fatalf("reruns diverged:\n%v\n%v", a, b)
	}
}

func TestInterruptExits130(t *testing.T) {
	bin := buildDeoptsweep(t)
	f := newFixture(t, "", "a.bin", "b.bin")
	slow := testutil.WriteScript(t, filepath.Join(f.dir, "slowbin"), "deoptgen",
		fmt.Sprintf("echo started >> '%s'\nsleep 30\n", f.calls))

	cmd, _, stderr := command(bin, "depth-sweep", f.seeds, f.out, "--executable", slow)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for len(testutil.ReadLines(t, f.calls)) == 0 {
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("mutator never started")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("signal: %v", err)
	}
	err := cmd.Wait()
	if code := exitCode(err); code != 130 {
		t.Fatalf("expected exit 130, got %d\nstderr: %s", code, stderr.String())
	}
	if n := len(testutil.ReadLines(t, f.calls)); n != 1 {
		t.Fatalf("no job may start after the interrupt, got %d", n)
	}
}

func TestVersion(t *testing.T) {
	bin := buildDeoptsweep(t)
	res := runCmd(t, bin, "version")
	if res.code != 0 || !strings.HasPrefix(string(res.stdout), "deoptsweep ") {
		t.Fatalf("exit %d stdout %q", res.code, res.stdout)
	}
}
