package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"agentplan/internal/guardrails"
	"agentplan/internal/library"
	"agentplan/internal/planner"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [ID]",
		Short: "Write a plan export envelope (default: the selected plan)",
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

			now := time.Now()
			if out == "-" {
				data, err := planner.MarshalExport(planner.NewExport(plan, now))
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}

			path := filepath.Join(a.ws.ExportsDir, planner.ExportFileName(plan, "-agent-plan.json"))
			if out != "" {
				if path, err = a.ws.ResolvePath(out); err != nil {
					return fmt.Errorf("resolve --out: %w", err)
				}
			}

			inv := a.start("plan_export", map[string]any{"plan_id": plan.ID})
			err = planner.WriteExport(path, plan, now)
			inv.finish(err, map[string]any{"path": path})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", plan.ID, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, or - for stdout (default: <workspace>/exports/<name>-agent-plan.json)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import plans from an export, a plan, or an array of plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			plans, err := readPlans(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if strict {
				if vs := guardrails.CheckPlans(plans); len(vs) > 0 {
					printViolations(cmd.ErrOrStderr(), vs)
					return fmt.Errorf("import rejected: %d guardrail violations", len(vs))
				}
			}

			var result library.ImportResult
			var diffs []string
			inv := a.start("plan_import", map[string]any{"source": args[0], "count": len(plans), "strict": strict})
			err = a.withStore(func(store *library.Store) error {
				if showDiff {
					if diffs, err = importDiffs(store, plans); err != nil {
						return err
					}
				}
				result, err = store.Import(plans)
				return err
			})
			inv.finish(err, map[string]any{"added": result.Added, "replaced": result.Replaced})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range diffs {
				fmt.Fprint(out, d)
			}
			fmt.Fprintf(out, "Imported %d plans (%d new, %d replaced)\n",
				len(result.Added)+len(result.Replaced), len(result.Added), len(result.Replaced))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject the import if any plan violates guardrails")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print a diff for every plan that replaces a stored one")
	return cmd
}

func importDiffs(store *library.Store, plans []planner.AgentPlan) ([]string, error) {
	var diffs []string
	for _, p := range plans {
		existing, err := store.Get(p.ID)
		if err != nil {
			continue
		}
		d, err := planner.Diff(existing, p, "library/"+p.ID, "import/"+p.ID)
		if err != nil {
			return nil, err
		}
		if d != "" {
			diffs = append(diffs, d)
		}
	}
	return diffs, nil
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var report string

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check plans in a file against the plan guardrails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := readPlans(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			vs := guardrails.CheckPlans(plans)
			if report != "" {
				if err := guardrails.WriteReport(report, vs); err != nil {
					return err
				}
			}
			if len(vs) > 0 {
				printViolations(cmd.ErrOrStderr(), vs)
				return fmt.Errorf("%d guardrail violations in %d plans", len(vs), len(plans))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d plans OK\n", len(plans))
			return nil
		},
	}
	cmd.Flags().StringVar(&report, "report", "", "Also write violations to this JSON file")
	return cmd
}

func newDiffCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff ID FILE",
		Short: "Diff a stored plan against a plan file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			plans, err := readPlans(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			other := plans[0]
			for _, p := range plans {
				if p.ID == args[0] {
					other = p
					break
				}
			}

			var stored planner.AgentPlan
			err = a.withStore(func(store *library.Store) error {
				stored, err = store.Get(args[0])
				return err
			})
			if err != nil {
				return err
			}

			diff, err := planner.Diff(stored, other, "library/"+stored.ID, args[1])
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

// readPlans parses plans from path, or from stdin when path is "-".
func readPlans(stdin io.Reader, path string) ([]planner.AgentPlan, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	plans, err := planner.ParseImport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plans, nil
}

func printViolations(w io.Writer, vs guardrails.Violations) {
	for _, v := range vs {
		fmt.Fprintf(w, "  %s\n", v.String())
	}
}
