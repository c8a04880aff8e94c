package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentplan/internal/audit"
	"agentplan/internal/planner"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, ws string, args ...string) cliResult {
	t.Helper()
	t.Setenv("AGENTPLAN_AUDIT_DB", "")
	t.Setenv("AGENTPLAN_LOG_LEVEL", "warn")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--workspace", ws}, args...))
	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func mustRun(t *testing.T, ws string, args ...string) string {
	t.Helper()
	res := runCLI(t, ws, args...)
	if res.err != nil {
		t.Fatalf("%s: %v\nstderr: %s", strings.Join(args, " "), res.err, res.stderr)
	}
	return res.stdout
}

func initWorkspace(t *testing.T) string {
	t.Helper()
	ws := filepath.Join(t.TempDir(), "ws")
	mustRun(t, ws, "init")
	return ws
}

func listPlans(t *testing.T, ws string) []planner.AgentPlan {
	t.Helper()
	var plans []planner.AgentPlan
	if err := json.Unmarshal([]byte(mustRun(t, ws, "list", "--json")), &plans); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return plans
}

func TestInitWritesStarterForm(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "ws")
	out := mustRun(t, ws, "init")
	if !strings.Contains(out, "Starter form:") {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, err := os.Stat(filepath.Join(ws, "inputs", "plan.yml")); err != nil {
		t.Fatalf("expected starter form: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, "data", "library.sqlite")); err != nil {
		t.Fatalf("expected library db: %v", err)
	}

	out = mustRun(t, ws, "init")
	if !strings.Contains(out, "Kept existing form") {
		t.Fatalf("expected re-init to keep the form, got %q", out)
	}
}

func TestCommandsRequireWorkspace(t *testing.T) {
	ws := filepath.Join(t.TempDir(), "missing")
	res := runCLI(t, ws, "list")
	if res.err == nil || !strings.Contains(res.err.Error(), "init") {
		t.Fatalf("expected init hint, got %v", res.err)
	}
}

func TestGenerateListShowAndPrompt(t *testing.T) {
	ws := initWorkspace(t)

	out := mustRun(t, ws, "generate")
	if !strings.Contains(out, "Launch Sprint") || !strings.Contains(out, "3 channels") {
		t.Fatalf("unexpected generate output:\n%s", out)
	}

	plans := listPlans(t, ws)
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	id := plans[0].ID

	var shown planner.AgentPlan
	if err := json.Unmarshal([]byte(mustRun(t, ws, "show", "--json")), &shown); err != nil {
		t.Fatalf("decode show: %v", err)
	}
	if shown.ID != id {
		t.Fatalf("expected active plan %s, got %s", id, shown.ID)
	}

	prompt := mustRun(t, ws, "prompt", "--persona", "Busy founder")
	if !strings.Contains(prompt, "Plan: Launch Sprint") || !strings.Contains(prompt, "Busy founder") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}

	if out := mustRun(t, ws, "list", "--query", "zzzz"); !strings.Contains(out, "No plans yet") {
		t.Fatalf("expected no matches, got:\n%s", out)
	}
}

func TestGenerateDryRunDoesNotStore(t *testing.T) {
	ws := initWorkspace(t)
	var plan planner.AgentPlan
	if err := json.Unmarshal([]byte(mustRun(t, ws, "generate", "--dry-run")), &plan); err != nil {
		t.Fatalf("decode dry run: %v", err)
	}
	if plan.ID == "" {
		t.Fatalf("expected generated plan")
	}
	if plans := listPlans(t, ws); len(plans) != 0 {
		t.Fatalf("expected empty library, got %d plans", len(plans))
	}
}

func TestGenerateReportsInvalidForm(t *testing.T) {
	ws := initWorkspace(t)
	bad := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(bad, []byte("name: x\nchannels: []\n"), 0o644); err != nil {
		t.Fatalf("write form: %v", err)
	}
	res := runCLI(t, ws, "generate", "--input", bad)
	if res.err == nil || !strings.Contains(res.err.Error(), "invalid") {
		t.Fatalf("expected invalid form error, got %v", res.err)
	}
	if !strings.Contains(res.stderr, "Select at least one channel") {
		t.Fatalf("expected field errors on stderr, got %q", res.stderr)
	}
}

func TestExportResetImport(t *testing.T) {
	ws := initWorkspace(t)
	mustRun(t, ws, "generate")
	id := listPlans(t, ws)[0].ID

	out := mustRun(t, ws, "export")
	exportPath := filepath.Join(ws, "exports", "Launch-Sprint-agent-plan.json")
	if !strings.Contains(out, exportPath) {
		t.Fatalf("expected export path in output, got %q", out)
	}

	if res := runCLI(t, ws, "reset"); res.err == nil {
		t.Fatalf("expected reset without --yes to fail")
	}
	mustRun(t, ws, "reset", "--yes")
	if plans := listPlans(t, ws); len(plans) != 0 {
		t.Fatalf("expected empty library after reset")
	}

	out = mustRun(t, ws, "import", exportPath)
	if !strings.Contains(out, "1 new, 0 replaced") {
		t.Fatalf("unexpected import output %q", out)
	}
	plans := listPlans(t, ws)
	if len(plans) != 1 || plans[0].ID != id {
		t.Fatalf("expected %s restored, got %+v", id, plans)
	}

	out = mustRun(t, ws, "import", exportPath)
	if !strings.Contains(out, "0 new, 1 replaced") {
		t.Fatalf("unexpected re-import output %q", out)
	}

	events, err := audit.NewLogger(filepath.Join(ws, "audit", "audit.sqlite")).Recent(100)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	seen := make(map[string]bool)
	for _, ev := range events {
		seen[ev.Type] = true
	}
	for _, want := range []string{
		"workspace_init_started", "plan_generate_finished", "plan_export_finished",
		"library_reset_finished", "plan_import_started", "plan_import_finished",
	} {
		if !seen[want] {
			t.Fatalf("missing audit event %s", want)
		}
	}
}

func TestCheckAndStrictImport(t *testing.T) {
	ws := initWorkspace(t)
	mustRun(t, ws, "generate")
	plan := listPlans(t, ws)[0]
	plan.ID = "broken"
	plan.Channels[0].CadencePerWeek = 99

	data, err := json.Marshal([]planner.AgentPlan{plan})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	file := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report := filepath.Join(ws, "reports", "check.json")
	res := runCLI(t, ws, "check", file, "--report", report)
	if res.err == nil || !strings.Contains(res.stderr, "cadencePerWeek") {
		t.Fatalf("expected cadence violation, got %v / %q", res.err, res.stderr)
	}
	if _, err := os.Stat(report); err != nil {
		t.Fatalf("expected report file: %v", err)
	}

	if res := runCLI(t, ws, "import", file, "--strict"); res.err == nil {
		t.Fatalf("expected strict import to fail")
	}
	if len(listPlans(t, ws)) != 1 {
		t.Fatalf("expected strict import to leave the library untouched")
	}
	mustRun(t, ws, "import", file)
	if len(listPlans(t, ws)) != 2 {
		t.Fatalf("expected lenient import to add the plan")
	}
}

func TestUpdateShowRevisionsAndDiff(t *testing.T) {
	ws := initWorkspace(t)
	mustRun(t, ws, "generate")
	original := listPlans(t, ws)[0]

	formPath := filepath.Join(ws, "inputs", "plan.yml")
	data, err := os.ReadFile(formPath)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	renamed := filepath.Join(ws, "inputs", "renamed.yml")
	if err := os.WriteFile(renamed, bytes.Replace(data, []byte("Launch Sprint"), []byte("Autumn Push"), 1), 0o644); err != nil {
		t.Fatalf("write form: %v", err)
	}

	mustRun(t, ws, "update", original.ID, "--input", renamed)
	plans := listPlans(t, ws)
	if len(plans) != 1 || plans[0].ID != original.ID || plans[0].Name != "Autumn Push" {
		t.Fatalf("unexpected plans after update %+v", plans)
	}

	out := mustRun(t, ws, "show", original.ID, "--revisions")
	if !strings.Contains(out, `-  "name": "Launch Sprint",`) || !strings.Contains(out, `+  "name": "Autumn Push",`) {
		t.Fatalf("expected revision diff, got:\n%s", out)
	}

	exportPath := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(exportPath, mustMarshal(t, original), 0o644); err != nil {
		t.Fatalf("write old plan: %v", err)
	}
	diff := mustRun(t, ws, "diff", original.ID, exportPath)
	if !strings.Contains(diff, "--- library/"+original.ID) {
		t.Fatalf("unexpected diff:\n%s", diff)
	}
}

func TestDeleteAndSelect(t *testing.T) {
	ws := initWorkspace(t)
	mustRun(t, ws, "generate")
	mustRun(t, ws, "generate")
	plans := listPlans(t, ws)

	mustRun(t, ws, "select", plans[1].ID)
	var shown planner.AgentPlan
	if err := json.Unmarshal([]byte(mustRun(t, ws, "show", "--json")), &shown); err != nil {
		t.Fatalf("decode show: %v", err)
	}
	if shown.ID != plans[1].ID {
		t.Fatalf("expected %s selected, got %s", plans[1].ID, shown.ID)
	}

	mustRun(t, ws, "delete", plans[1].ID)
	if res := runCLI(t, ws, "delete", plans[1].ID); res.err == nil {
		t.Fatalf("expected deleting a missing plan to fail")
	}
	if res := runCLI(t, ws, "select", "nope"); res.err == nil {
		t.Fatalf("expected selecting a missing plan to fail")
	}
}

func TestPromptWithEmptyLibrary(t *testing.T) {
	ws := initWorkspace(t)
	out := mustRun(t, ws, "prompt")
	if strings.TrimSpace(out) != planner.NoPlanPrompt {
		t.Fatalf("expected placeholder prompt, got %q", out)
	}
}

func TestChannelsAndHistory(t *testing.T) {
	ws := initWorkspace(t)
	out := mustRun(t, ws, "channels")
	if !strings.Contains(out, "X / Twitter") || !strings.Contains(out, "newsletter") {
		t.Fatalf("unexpected channels output:\n%s", out)
	}

	out = mustRun(t, ws, "history", "--limit", "5")
	if !strings.Contains(out, "workspace_init_finished") {
		t.Fatalf("expected init events in history:\n%s", out)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestWatchOnceAddsThenUpdates(t *testing.T) {
	ws := initWorkspace(t)

	out := mustRun(t, ws, "watch", "--once", "--interval", "10ms")
	if !strings.Contains(out, "Launch Sprint") {
		t.Fatalf("unexpected watch output:\n%s", out)
	}
	plans := listPlans(t, ws)
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}

	mustRun(t, ws, "watch", "--once", "--interval", "10ms", "--plan", plans[0].ID)
	after := listPlans(t, ws)
	if len(after) != 1 || after[0].ID != plans[0].ID {
		t.Fatalf("expected plan %s updated in place, got %+v", plans[0].ID, after)
	}
	revisions := mustRun(t, ws, "show", plans[0].ID, "--revisions")
	if !strings.Contains(revisions, "revision@") {
		t.Fatalf("expected a stored revision, got:\n%s", revisions)
	}

	if res := runCLI(t, ws, "watch", "--once", "--plan", "missing"); res.err == nil {
		t.Fatalf("expected unknown plan to fail")
	}

	events, err := audit.NewLogger(filepath.Join(ws, "audit", "audit.sqlite")).Recent(100)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	for _, ev := range events {
		if ev.Type != "plan_watch_finished" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if hash, _ := payload["form_hash"].(string); len(hash) != 64 {
			t.Fatalf("expected form hash in watch audit payload, got %v", payload)
		}
		return
	}
	t.Fatalf("missing plan_watch_finished event")
}

func TestFormRoundTripsThroughUpdate(t *testing.T) {
	ws := initWorkspace(t)
	mustRun(t, ws, "generate")
	plan := listPlans(t, ws)[0]

	out := mustRun(t, ws, "form", plan.ID, "--out", "inputs/edit.yml")
	if !strings.Contains(out, "edit.yml") {
		t.Fatalf("unexpected form output %q", out)
	}
	mustRun(t, ws, "update", plan.ID, "--input", filepath.Join(ws, "inputs", "edit.yml"))

	updated := listPlans(t, ws)[0]
	if updated.ID != plan.ID || updated.DeliverableSummary != plan.DeliverableSummary {
		t.Fatalf("expected same content after round trip, got %+v", updated)
	}

	yml := mustRun(t, ws, "form")
	if !strings.Contains(yml, "name: Launch Sprint") {
		t.Fatalf("expected selected plan form on stdout, got:\n%s", yml)
	}
}
