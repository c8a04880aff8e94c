package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"agentplan/internal/audit"
	"agentplan/internal/config"
	"agentplan/internal/library"
	"agentplan/internal/logging"
	"agentplan/internal/workspace"
)

const appName = "agentplan"

type rootOptions struct {
	workspace string
	logLevel  string
	logFormat string
	cfg       *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Build and manage AI agent campaign plans",
		Long: `agentplan turns a short campaign brief into per-channel guardrails
(cadence, tone, pillars, call-to-action, asset formats) and keeps the
resulting plans in a local library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(func(cfg *config.Config) {
				if opts.workspace != "" {
					cfg.Workspace = opts.workspace
				}
				if opts.logLevel != "" {
					cfg.LogLevel = opts.logLevel
				}
				if opts.logFormat != "" {
					cfg.LogFormat = opts.logFormat
				}
			})
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat))
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.workspace, "workspace", "",
		"Path to workspace root (default: $AGENTPLAN_WORKSPACE or ~/.agentplan)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "",
		"Log format: text, json")

	cmd.AddCommand(
		newInitCmd(opts),
		newGenerateCmd(opts),
		newUpdateCmd(opts),
		newFormCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newSelectCmd(opts),
		newDeleteCmd(opts),
		newResetCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newCheckCmd(opts),
		newDiffCmd(opts),
		newPromptCmd(opts),
		newChannelsCmd(opts),
		newHistoryCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// app bundles the resolved workspace and its audit logger for one command.
type app struct {
	cfg   *config.Config
	ws    *workspace.Workspace
	audit *audit.Logger
}

func (o *rootOptions) app() (*app, error) {
	cfg := o.cfg
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	root, err := workspace.ResolveRoot(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workspace %s does not exist; run `%s init` first", root, appName)
		}
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, ws: ws, audit: audit.NewLogger(auditPath(cfg, ws))}, nil
}

func auditPath(cfg *config.Config, ws *workspace.Workspace) string {
	if strings.TrimSpace(cfg.AuditDB) != "" {
		if resolved, err := ws.ResolvePath(cfg.AuditDB); err == nil {
			return resolved
		}
	}
	return ws.AuditDBPath
}

func (a *app) openStore() (*library.Store, error) {
	store, err := library.Open(a.ws.LibraryDBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("library opened", "path", store.DBPath)
	return store, nil
}

// invocation pairs a <name>_started audit event with its <name>_finished event.
type invocation struct {
	logger *audit.Logger
	name   string
	id     string
}

func (a *app) start(name string, payload map[string]any) *invocation {
	inv := &invocation{logger: a.audit, name: name, id: uuid.NewString()}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["invocation_id"] = inv.id
	payload["workspace"] = a.ws.Root
	if err := inv.logger.LogEvent("cli", name+"_started", payload); err != nil {
		slog.Warn("audit log failed", "event", name+"_started", "error", err)
	}
	return inv
}

func (inv *invocation) finish(err error, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["invocation_id"] = inv.id
	if err != nil {
		payload["error"] = err.Error()
	}
	if logErr := inv.logger.LogEvent("cli", inv.name+"_finished", payload); logErr != nil {
		slog.Warn("audit log failed", "event", inv.name+"_finished", "error", logErr)
	}
}

func writeFileIfMissing(path string, contents []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
