package harness

import (
	"bytes"
	"os"
	"os/exec"
	"sort"
	"strings"
	"testing"
)

// Run executes the CLI in the provided working directory. AGENTPLAN_*
// variables from the caller's environment are cleared so runs are isolated.
func Run(t *testing.T, binPath, workDir string, args []string) (string, string, int) {
	t.Helper()
	return run(t, binPath, workDir, args, isolatedEnv)
}

var isolatedEnv = map[string]string{
	"AGENTPLAN_WORKSPACE":  "",
	"AGENTPLAN_AUDIT_DB":   "",
	"AGENTPLAN_LOG_LEVEL":  "warn",
	"AGENTPLAN_LOG_FORMAT": "text",
}

// RunWithEnv executes the CLI with environment overrides.
func RunWithEnv(t *testing.T, binPath, workDir string, args []string, env map[string]string) (string, string, int) {
	t.Helper()
	merged := make(map[string]string, len(isolatedEnv)+len(env))
	for k, v := range isolatedEnv {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	return run(t, binPath, workDir, args, merged)
}

// RunStdin executes the CLI feeding stdin to the process.
func RunStdin(t *testing.T, binPath, workDir string, args []string, stdin string) (string, string, int) {
	t.Helper()
	return runInput(t, binPath, workDir, args, isolatedEnv, stdin)
}

func run(t *testing.T, binPath, workDir string, args []string, env map[string]string) (string, string, int) {
	t.Helper()
	return runInput(t, binPath, workDir, args, env, "")
}

func runInput(t *testing.T, binPath, workDir string, args []string, env map[string]string, stdin string) (string, string, int) {
	t.Helper()

	cmd := exec.Command(binPath, args...)
	cmd.Dir = workDir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if len(env) > 0 {
		cmd.Env = mergeEnv(env)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			t.Fatalf("run %s: %v", binPath, err)
		}
	}

	return stdout.String(), stderr.String(), exitCode
}

func mergeEnv(overrides map[string]string) []string {
	env := make(map[string]string, len(overrides))
	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		key := parts[0]
		val := ""
		if len(parts) > 1 {
			val = parts[1]
		}
		env[key] = val
	}

	for k, v := range overrides {
		env[k] = v
	}

	merged := make([]string, 0, len(env))
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	sort.Strings(merged)
	return merged
}
