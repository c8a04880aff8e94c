package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"agentplan/internal/library"
	"agentplan/internal/planner"
	"agentplan/internal/server"
)

func newPromptCmd(opts *rootOptions) *cobra.Command {
	var in planner.PromptInput

	cmd := &cobra.Command{
		Use:   "prompt [ID]",
		Short: "Compose an agent prompt from a plan (default: the selected plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			err = a.withStore(func(store *library.Store) error {
				in.Plan, err = lookupPlan(store, args)
				return err
			})
			if errors.Is(err, library.ErrNotFound) && len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), planner.NoPlanPrompt)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), planner.ComposePrompt(in))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Persona, "persona", planner.DefaultPersona, "Agent persona")
	cmd.Flags().StringVar(&in.Angle, "angle", planner.DefaultAngle, "Campaign angle")
	cmd.Flags().StringVar(&in.CallToAction, "cta", planner.DefaultCallToAction, "Call to action")
	return cmd
}

func newChannelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the channel defaults used for new plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHANNEL\tLABEL\tCADENCE\tAUTOMATION\tCALL TO ACTION")
			for _, ch := range planner.Channels() {
				def := planner.DefaultsFor(ch)
				fmt.Fprintf(tw, "%s\t%s\t%d/wk\t%s\t%s\n",
					ch, planner.ChannelLabel(ch), def.CadencePerWeek, def.AutomationLevel, def.PrimaryCallToAction)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			events, err := a.audit.Recent(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit events")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTOR\tEVENT\tSESSION\tPAYLOAD")
			for _, ev := range events {
				session := ev.SessionID
				if len(session) > 8 {
					session = session[:8]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.Actor, ev.Type, session, ev.Payload)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plan library as a local JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Addr
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inv := a.start("serve", map[string]any{"addr": addr})
			err = server.New(store, planner.NewGenerator(), a.audit, nil).ListenAndServe(ctx, addr)
			inv.finish(err, nil)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: $AGENTPLAN_ADDR or 127.0.0.1:8787)")
	return cmd
}
