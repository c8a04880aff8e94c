package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agentplan/internal/library"
	"agentplan/internal/planner"
	"agentplan/internal/render"
	"agentplan/internal/watch"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		input    string
		planID   string
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate a plan whenever its form changes",
		Long: `watch polls a plan form and regenerates a library plan each time the
file's contents change. The first valid version adds a new plan unless
--plan names an existing one; later versions update that plan in place.
Invalid edits are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			formPath, err := a.inputPath(input)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if planID != "" {
				if _, err := store.Get(planID); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			gen := planner.NewGenerator()
			out := cmd.OutOrStdout()
			applied := 0

			inv := a.start("plan_watch", map[string]any{"form": formPath, "plan_id": planID})
			fmt.Fprintf(out, "Watching %s\n", formPath)
			poller := watch.New(formPath, interval)
			err = poller.Run(ctx, func(ctx context.Context, st watch.State) error {
				if st.Hash == "" {
					slog.Warn("form removed", "path", formPath)
					return nil
				}
				in, err := loadForm(cmd.ErrOrStderr(), formPath)
				if err != nil {
					slog.Warn("skipping form change", "path", formPath, "error", err)
					return nil
				}
				plan, err := applyWatchedForm(store, gen, planID, in)
				if err != nil {
					return err
				}
				planID = plan.ID
				applied++
				slog.Info("plan regenerated", "plan_id", plan.ID, "hash", st.Hash[:12])
				fmt.Fprintln(out, render.Card(plan, true, time.Now()))
				if once {
					cancel()
				}
				return nil
			})
			inv.finish(err, map[string]any{
				"plan_id":   planID,
				"applied":   applied,
				"form_hash": poller.Last().Hash,
			})
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Plan form YAML/JSON (default: <workspace>/inputs/plan.yml)")
	cmd.Flags().StringVar(&planID, "plan", "", "Update this plan instead of adding a new one")
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultInterval, "Polling interval")
	cmd.Flags().BoolVar(&once, "once", false, "Exit after the first applied change")
	return cmd
}

func applyWatchedForm(store *library.Store, gen *planner.Generator, planID string, in planner.Input) (planner.AgentPlan, error) {
	if planID == "" {
		plan := gen.Generate(in)
		return plan, store.Add(plan)
	}
	existing, err := store.Get(planID)
	if err != nil {
		return planner.AgentPlan{}, err
	}
	plan := gen.Regenerate(existing, in)
	return plan, store.Update(plan)
}
