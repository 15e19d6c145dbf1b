// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/katistix/narratives/internal/async"
	"github.com/katistix/narratives/internal/fixture"
	"github.com/katistix/narratives/internal/kbase"
	"github.com/katistix/narratives/internal/logging"
	"github.com/katistix/narratives/internal/narrative"
)

// errOperationFailed marks a failure that was already rendered to the user.
var errOperationFailed = errors.New("operation failed")

// app carries what every command needs once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     Config
	log     *zap.Logger
	backend backend
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "narratives",
		Short:         "Browse Narratives and link them to Organizations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/narratives/config.yaml)")
	flags.String("fixture", "", "serve everything from a YAML fixture instead of the platform")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", `log file ("-" for stderr)`)
	_ = a.v.BindPFlag("fixture.path", flags.Lookup("fixture"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.file", flags.Lookup("log-file"))

	root.AddCommand(newOrgsCmd(a), newLinkCmd(a), newIconCmd(a))
	return root
}

// setup loads config, builds the logger and picks the backend.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}
	if opts.File == "" && cmd != cmd.Root() {
		// Subcommands do not own the terminal.
		opts.File = logging.Stderr
	}
	if a.log, err = logging.New(opts); err != nil {
		return err
	}

	a.backend, err = newBackend(cfg, a.log)
	return err
}

func newBackend(cfg Config, log *zap.Logger) (backend, error) {
	if cfg.Fixture.Path != "" {
		fx, err := fixture.Load(cfg.Fixture.Path)
		if err != nil {
			return backend{}, err
		}
		log.Info("using fixture backend", zap.String("path", cfg.Fixture.Path))
		return backend{catalog: fx, perms: fx, groups: fx, icons: fx}, nil
	}

	svc := kbase.New(kbase.Endpoints{
		Auth:      cfg.Services.AuthURL,
		Workspace: cfg.Services.WorkspaceURL,
		Groups:    cfg.Services.GroupsURL,
		NMS:       cfg.Services.NMSURL,
		NMSImages: cfg.Services.NMSImageURL,
	}, kbase.Options{
		Token:   cfg.Auth.Token,
		Timeout: cfg.Services.Timeout,
		Logger:  log.Named("kbase"),
	})
	return backend{catalog: svc.Workspace, perms: svc.Workspace, groups: svc.Groups, icons: svc.MethodStore}, nil
}

func (a *app) runTUI(ctx context.Context) error {
	a.log.Info("starting dashboard")
	p := tea.NewProgram(initialModel(ctx, a.cfg, a.backend, a.log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard exited: %w", err)
	}
	return nil
}

func parseWorkspaceID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid workspace id %q", s)
	}
	return id, nil
}

func newOrgsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orgs <workspace-id>",
		Short: "Show the Organizations a Narrative is linked to and can be linked to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wsID, err := parseWorkspaceID(args[0])
			if err != nil {
				return err
			}
			load := async.New[narrative.OrgData]().Start()
			load = load.Apply(async.Do(cmd.Context(), load.Token(), a.backend.loadOrgs(wsID)))

			fmt.Fprintln(cmd.OutOrStdout(), renderOrgReport(load.State(), a.cfg.OrgURL))
			if load.State().Status() == async.Failed {
				return errOperationFailed
			}
			return nil
		},
	}
}

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <workspace-id> <organization-id>",
		Short: "Link a Narrative to an Organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wsID, err := parseWorkspaceID(args[0])
			if err != nil {
				return err
			}
			link := async.New[narrative.LinkOutcome]().Start()
			link = link.Apply(async.Do(cmd.Context(), link.Token(), a.backend.link(wsID, args[1])))

			fmt.Fprintln(cmd.OutOrStdout(), renderLinkState(link.State(), ""))
			if link.State().Status() == async.Failed {
				return errOperationFailed
			}
			return nil
		},
	}
}

func newIconCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "icon <app-id> [tag]",
		Short: "Show the icon metadata for an app",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := "release"
			if len(args) == 2 {
				tag = args[1]
			}
			icon := narrative.ResolveIcon(cmd.Context(), a.backend.icons, a.log, args[0], tag)
			out := cmd.OutOrStdout()
			if icon.IsImage {
				fmt.Fprintf(out, "image %s\n", icon.URL)
				return nil
			}
			fmt.Fprintf(out, "glyph %s %s\n", icon.Icon, icon.Color)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
