package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"agentplan/internal/audit"
	"agentplan/internal/form"
	"agentplan/internal/library"
	"agentplan/internal/planner"
	"agentplan/internal/render"
	"agentplan/internal/workspace"
)

const starterFormName = "plan.yml"

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace and a starter plan form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := workspace.Init(opts.cfg.Workspace)
			if err != nil {
				return err
			}
			a := &app{cfg: opts.cfg, ws: ws, audit: audit.NewLogger(auditPath(opts.cfg, ws))}
			inv := a.start("workspace_init", nil)

			formPath := filepath.Join(ws.InputsDir, starterFormName)
			created, err := writeStarterForm(formPath)
			if err == nil {
				var store *library.Store
				store, err = a.openStore()
				if err == nil {
					err = store.Close()
				}
			}
			inv.finish(err, map[string]any{"form": formPath, "form_created": created})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workspace ready: %s\n", ws.Root)
			if created {
				fmt.Fprintf(out, "Starter form: %s\n", formPath)
			} else {
				fmt.Fprintf(out, "Kept existing form: %s\n", formPath)
			}
			return nil
		},
	}
}

func writeStarterForm(path string) (bool, error) {
	data, err := form.MarshalYAML(form.Default())
	if err != nil {
		return false, err
	}
	return writeFileIfMissing(path, data)
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var input string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a plan from a form and add it to the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			formPath, err := a.inputPath(input)
			if err != nil {
				return err
			}
			in, err := loadForm(cmd.ErrOrStderr(), formPath)
			if err != nil {
				return err
			}

			plan := planner.NewGenerator().Generate(in)
			if dryRun {
				return writeJSON(cmd.OutOrStdout(), plan)
			}

			inv := a.start("plan_generate", map[string]any{"form": formPath})
			err = a.withStore(func(store *library.Store) error {
				return store.Add(plan)
			})
			inv.finish(err, map[string]any{"plan_id": plan.ID, "name": plan.Name})
			if err != nil {
				return err
			}
			slog.Info("plan generated", "plan_id", plan.ID, "channels", len(plan.Channels))

			fmt.Fprintln(cmd.OutOrStdout(), render.Card(plan, true, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Plan form YAML/JSON (default: <workspace>/inputs/plan.yml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the generated plan as JSON without storing it")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Regenerate a stored plan from a form, keeping its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			formPath, err := a.inputPath(input)
			if err != nil {
				return err
			}
			in, err := loadForm(cmd.ErrOrStderr(), formPath)
			if err != nil {
				return err
			}

			var plan planner.AgentPlan
			inv := a.start("plan_update", map[string]any{"plan_id": args[0], "form": formPath})
			err = a.withStore(func(store *library.Store) error {
				existing, err := store.Get(args[0])
				if err != nil {
					return err
				}
				plan = planner.NewGenerator().Regenerate(existing, in)
				return store.Update(plan)
			})
			inv.finish(err, nil)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.Card(plan, true, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Plan form YAML/JSON (default: <workspace>/inputs/plan.yml)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var query string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			var plans []planner.AgentPlan
			var selected string
			err = a.withStore(func(store *library.Store) error {
				if plans, err = store.List(); err != nil {
					return err
				}
				selected, err = store.Selected()
				return err
			})
			if err != nil {
				return err
			}
			plans = library.Search(plans, query)

			out := cmd.OutOrStdout()
			if asJSON {
				if plans == nil {
					plans = []planner.AgentPlan{}
				}
				return writeJSON(out, plans)
			}
			if len(plans) == 0 {
				fmt.Fprintf(out, "No plans yet. Run `%s generate` to create one.\n", appName)
				return nil
			}
			now := time.Now()
			for _, p := range plans {
				fmt.Fprintln(out, render.Card(p, p.ID == selected, now))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Fuzzy filter on plan name, audience and goal")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print plans as JSON")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	var revisions bool

	cmd := &cobra.Command{
		Use:   "show [ID]",
		Short: "Show a plan (default: the selected plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			var plan planner.AgentPlan
			var revs []library.Revision
			err = a.withStore(func(store *library.Store) error {
				if plan, err = lookupPlan(store, args); err != nil {
					return err
				}
				if revisions {
					revs, err = store.Revisions(plan.ID)
				}
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, plan)
			}
			fmt.Fprint(out, render.Detail(plan))
			if !revisions {
				return nil
			}
			if len(revs) == 0 {
				fmt.Fprintln(out, "\nNo previous revisions.")
				return nil
			}
			newer, newerLabel := plan, "current"
			for _, rev := range revs {
				label := "revision@" + rev.ReplacedAt.UTC().Format(time.RFC3339)
				diff, err := planner.Diff(rev.Plan, newer, label, newerLabel)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s", diff)
				newer, newerLabel = rev.Plan, label
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	cmd.Flags().BoolVar(&revisions, "revisions", false, "Show diffs against previous revisions")
	return cmd
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select ID",
		Short: "Mark a plan as the selected plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			inv := a.start("plan_select", map[string]any{"plan_id": args[0]})
			err = a.withStore(func(store *library.Store) error {
				return store.Select(args[0])
			})
			inv.finish(err, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", args[0])
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Remove a plan from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			var removed bool
			inv := a.start("plan_delete", map[string]any{"plan_id": args[0]})
			err = a.withStore(func(store *library.Store) error {
				removed, err = store.Remove(args[0])
				return err
			})
			if err == nil && !removed {
				err = fmt.Errorf("%w: %s", library.ErrNotFound, args[0])
			}
			inv.finish(err, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every plan from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every plan; pass --yes to confirm")
			}
			a, err := opts.app()
			if err != nil {
				return err
			}
			inv := a.start("library_reset", nil)
			err = a.withStore(func(store *library.Store) error {
				return store.Reset()
			})
			inv.finish(err, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Library cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every plan")
	return cmd
}

func (a *app) withStore(fn func(*library.Store) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	err = fn(store)
	if closeErr := store.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close library: %w", closeErr)
	}
	return err
}

func (a *app) inputPath(input string) (string, error) {
	if input == "" {
		return filepath.Join(a.ws.InputsDir, starterFormName), nil
	}
	return a.ws.ResolvePath(input)
}

// lookupPlan returns the plan named by args[0], or the active plan.
func lookupPlan(store *library.Store, args []string) (planner.AgentPlan, error) {
	if len(args) > 0 && args[0] != "" {
		return store.Get(args[0])
	}
	return store.Active()
}

func loadForm(stderr io.Writer, path string) (planner.Input, error) {
	in, err := form.LoadFile(path)
	var ves form.ValidationErrors
	if errors.As(err, &ves) {
		for _, ve := range ves {
			fmt.Fprintf(stderr, "  %s\n", ve.Error())
		}
		return planner.Input{}, fmt.Errorf("form %s is invalid (%d problems)", path, len(ves))
	}
	return in, err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFormCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "form [ID]",
		Short: "Write an editable form for a stored plan (default: the selected plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			var plan planner.AgentPlan
			err = a.withStore(func(store *library.Store) error {
				plan, err = lookupPlan(store, args)
				return err
			})
			if err != nil {
				return err
			}
			data, err := form.MarshalYAML(form.FromPlan(plan))
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			path, err := a.ws.ResolvePath(out)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create form dir: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write form: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Form for %s written to %s\n", plan.ID, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
