package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"buildpack/internal/provision"
)

const testIndex = `{
  "node": [
    {"version": "18.19.0", "url": "https://nodejs.org/dist/v{version}/node-v{version}-{platform}.tar.gz"},
    {"version": "20.11.1", "url": "https://nodejs.org/dist/v{version}/node-v{version}-{platform}.tar.gz"}
  ],
  "yarn": [
    {"version": "1.22.22", "url": "https://registry.npmjs.org/yarn/-/yarn-{version}.tgz"}
  ]
}`

// resetFlags restores the persistent flag variables after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	prevConfig, prevJSON, prevProgress, prevDebug := configPath, outputJSON, noProgress, debugLog
	t.Cleanup(func() {
		configPath, outputJSON, noProgress, debugLog = prevConfig, prevJSON, prevProgress, prevDebug
	})
	configPath, outputJSON, noProgress, debugLog = "", false, true, false
}

// writeIndexConfig writes a release index and a config selecting it, and
// returns the config path for --config.
func writeIndexConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.json")
	if err := os.WriteFile(indexPath, []byte(testIndex), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	cfg := "resolver:\n  backend: index\n  index_file: " + indexPath + "\n"
	cfgPath := filepath.Join(dir, "buildpack.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

// execute runs args through the root command, as the binary does.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDetectCommand(t *testing.T) {
	resetFlags(t)

	dir := t.TempDir()
	_, _, err := execute(t, "detect", dir)
	if err == nil {
		t.Fatal("expected error without package.json")
	}
	if code := provision.ExitCode(err); code != provision.ExitPrecondition {
		t.Fatalf("exit code = %d, want %d", code, provision.ExitPrecondition)
	}

	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"app"}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	stdout, _, err := execute(t, "detect", dir)
	if err != nil {
		t.Fatalf("detect returned error: %v", err)
	}
	if strings.TrimSpace(stdout) != "Node.js" {
		t.Fatalf("stdout = %q, want Node.js", stdout)
	}
}

func TestResolveCommandPrintsVersion(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)

	stdout, _, err := execute(t, "resolve", "node", "20.x", "--config", cfg)
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	fields := strings.Fields(stdout)
	if len(fields) != 2 || fields[0] != "20.11.1" {
		t.Fatalf("unexpected output %q", stdout)
	}
	if !strings.Contains(fields[1], "node-v20.11.1-") {
		t.Fatalf("expected expanded url, got %q", fields[1])
	}
}

func TestResolveCommandUnsatisfiable(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)

	_, stderr, err := execute(t, "resolve", "node", ">=99", "--config", cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := provision.ExitCode(err); code != provision.ExitUnsatisfiable {
		t.Fatalf("exit code = %d, want %d", code, provision.ExitUnsatisfiable)
	}
	want := "Could not find Node version corresponding to version requirement: >=99"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
	if strings.Contains(stderr, "retrying") {
		t.Fatalf("unsatisfiable constraint must not be retried, stderr %q", stderr)
	}
}

func TestResolveCommandJSON(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)

	stdout, _, err := execute(t, "resolve", "yarn", "1.x", "--config", cfg, "--json")
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	var payload resolveJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if payload.Version != "1.22.22" || payload.Outcome != "resolved" || payload.Attempts != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestResolveCommandUnknownTool(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)

	_, _, err := execute(t, "resolve", "bun", "1.x", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "unknown tool: bun") {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)

	stdout, _, err := execute(t, "config", "--config", cfg)
	if err != nil {
		t.Fatalf("config returned error: %v", err)
	}
	for _, want := range []string{"backend: index", "script: build", "runtime_field: engines.node"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestConfigCommandMissingExplicitFile(t *testing.T) {
	resetFlags(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := execute(t, "config", "--config", missing)
	if err == nil || !strings.Contains(err.Error(), "config file does not exist") {
		t.Fatalf("expected missing config error, got %v", err)
	}
}

func TestStatusCommandEmptyBuild(t *testing.T) {
	resetFlags(t)
	build := t.TempDir()
	cacheDir := t.TempDir()

	stdout, _, err := execute(t, "status", build, cacheDir)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	for _, want := range []string{"TOOL", "node", "yarn", "(missing)", "Cache signature: (none)"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestStatusCommandJSON(t *testing.T) {
	resetFlags(t)
	build := t.TempDir()
	cacheDir := t.TempDir()

	sigDir := filepath.Join(cacheDir, "node")
	if err := os.MkdirAll(sigDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sig := `{"version":1,"runtime":"20.11.1","manager":"npm","saved_at":"2024-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(sigDir, "signature.json"), []byte(sig), 0o644); err != nil {
		t.Fatalf("write signature: %v", err)
	}

	stdout, _, err := execute(t, "status", build, cacheDir, "--json")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	var payload struct {
		Tools []struct {
			Tool      string `json:"tool"`
			Installed bool   `json:"installed"`
		} `json:"tools"`
		Signature *struct {
			Runtime string `json:"runtime"`
		} `json:"signature"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if len(payload.Tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(payload.Tools))
	}
	for _, tool := range payload.Tools {
		if tool.Installed {
			t.Fatalf("%s reported installed in an empty build", tool.Tool)
		}
	}
	if payload.Signature == nil || payload.Signature.Runtime != "20.11.1" {
		t.Fatalf("unexpected signature %+v", payload.Signature)
	}
}

func TestCompileWithoutManifest(t *testing.T) {
	resetFlags(t)
	build := t.TempDir()
	cacheDir := t.TempDir()

	stdout, _, err := execute(t, "compile", build, cacheDir, "--no-progress")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := provision.ExitCode(err); code != provision.ExitPrecondition {
		t.Fatalf("exit code = %d, want %d", code, provision.ExitPrecondition)
	}
	if !strings.Contains(stdout, "Build failed") || strings.Count(stdout, "no manifest") != 1 {
		t.Fatalf("expected one failure block, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "Usage:") {
		t.Fatalf("usage must not follow a build failure:\n%s", stdout)
	}
	var final bytes.Buffer
	if code := exitStatus(err, &final); code != provision.ExitPrecondition {
		t.Fatalf("exit status = %d, want %d", code, provision.ExitPrecondition)
	}
	if final.Len() != 0 {
		t.Fatalf("failure already in the build log was printed again: %q", final.String())
	}

	logs, err := os.ReadDir(filepath.Join(cacheDir, "node", "logs"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one build log, got %v (%v)", logs, err)
	}
}

func TestCompileMissingScriptJSON(t *testing.T) {
	resetFlags(t)
	cfg := writeIndexConfig(t)
	build := t.TempDir()
	cacheDir := t.TempDir()

	manifest := `{"name":"app","engines":{"node":"18.x"},"scripts":{"start":"node index.js"}}`
	if err := os.WriteFile(filepath.Join(build, "package.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	stdout, stderr, err := execute(t, "compile", build, cacheDir, "--config", cfg, "--json")
	if err == nil {
		t.Fatal("expected error")
	}

	var payload compileJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if payload.State != provision.StateNoScript {
		t.Fatalf("state = %s, want %s", payload.State, provision.StateNoScript)
	}
	if payload.ExitCode != provision.ExitPrecondition {
		t.Fatalf("exit code = %d, want %d", payload.ExitCode, provision.ExitPrecondition)
	}
	if payload.Runtime == nil || payload.Runtime.Number != "18.19.0" {
		t.Fatalf("unexpected runtime %+v", payload.Runtime)
	}
	if !strings.Contains(stderr, "engines.node (package.json): 18.x") {
		t.Fatalf("expected build log on stderr, got:\n%s", stderr)
	}

	if _, err := os.Stat(filepath.Join(build, "vendor", "node")); !os.IsNotExist(err) {
		t.Fatalf("runtime must not be installed without a build script (stat err %v)", err)
	}
}

func TestExitStatusPrintsUnreportedError(t *testing.T) {
	var stderr bytes.Buffer
	err := &provision.PreconditionError{State: provision.StateNoManifest, Message: "no manifest"}

	if code := exitStatus(err, &stderr); code != provision.ExitPrecondition {
		t.Fatalf("exit status = %d, want %d", code, provision.ExitPrecondition)
	}
	if stderr.String() != "error: no manifest\n" {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
