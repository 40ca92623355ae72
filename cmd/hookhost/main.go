// Package main is the entry point for the hookhost server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/hookcore/internal/config"
	"github.com/dshills/hookcore/internal/host"
	"github.com/dshills/hookcore/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	configPath string
	frames     int
	watch      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "hookhost",
		Short:        "hookhost - game server host with hook chains, forwards and Lua plugins",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file, TOML or YAML (default: first of "+strings.Join(config.DefaultFiles, ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the server and run frames until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts, cmd.Flags().Changed("watch"))
		},
	}
	runCmd.Flags().IntVarP(&opts.frames, "frames", "n", 0, "stop after this many frames (0 runs until interrupted)")
	runCmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload plugins when their files change")

	hooksCmd := &cobra.Command{
		Use:   "hooks",
		Short: "List call sites and the interceptors registered after startup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), opts, func(s *host.Server) error {
				return printHooks(cmd.OutOrStdout(), s)
			})
		},
	}

	forwardsCmd := &cobra.Command{
		Use:   "forwards",
		Short: "List forwards and their bound targets after startup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServer(cmd.Context(), opts, func(s *host.Server) error {
				return printForwards(cmd.OutOrStdout(), s)
			})
		},
	}

	pluginsCmd := &cobra.Command{
		Use:   "plugins",
		Short: "List plugins found in the plugin paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := setup(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			s, err := host.New(cfg, logger)
			if err != nil {
				return err
			}
			return printPlugins(cmd.OutOrStdout(), s)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hookhost %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	root.AddCommand(runCmd, hooksCmd, forwardsCmd, pluginsCmd, versionCmd)
	return root
}

// setup loads the configuration and opens the logger.
func setup(opts *options) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("open log: %w", err)
	}
	return cfg, logger, closer, nil
}

func runServer(ctx context.Context, opts *options, watchSet bool) error {
	cfg, logger, closer, err := setup(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	if watchSet {
		cfg.Plugins.Watch = opts.watch
	}

	s, err := host.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Shutdown()
		return err
	}

	logger.Info().
		Int("plugins", s.Plugins().Count()).
		Int("extensions", s.Extensions().Count()).
		Int("frame_rate", cfg.Server.FrameRate).
		Msg("server running")

	runErr := s.Run(ctx, opts.frames)
	if err := s.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("shutdown incomplete")
	}
	return runErr
}

// withServer starts a server, hands it to fn and shuts it down.
func withServer(ctx context.Context, opts *options, fn func(*host.Server) error) error {
	cfg, logger, closer, err := setup(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	cfg.Plugins.Watch = false
	s, err := host.New(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Shutdown()

	if err := s.Start(ctx); err != nil {
		return err
	}
	return fn(s)
}

func printHooks(w io.Writer, s *host.Server) error {
	owners := ownerNames(s)
	for _, site := range s.Hooks().Sites() {
		fmt.Fprintf(w, "%-18s %d\n", site.Name(), site.Len())
		for _, e := range site.Entries() {
			fmt.Fprintf(w, "  %2d  %-15s %-8s %s\n", e.Position, e.Priority, e.State, owners(e.Owner))
		}
	}
	return nil
}

func printForwards(w io.Writer, s *host.Server) error {
	owners := ownerNames(s)
	for _, f := range s.Forwards().Named() {
		st := f.Stats()
		fmt.Fprintf(w, "%-18s %-13s %-40s owner=%s\n", st.Name, st.Exec, st.Signature, owners(st.Owner))
		for _, target := range f.Targets() {
			owner, fn, _ := strings.Cut(target, ":")
			fmt.Fprintf(w, "  -> %-24s %s\n", owners(owner), fn)
		}
	}
	return nil
}

func printPlugins(w io.Writer, s *host.Server) error {
	infos, err := s.Plugins().Discover()
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Error != nil {
			fmt.Fprintf(w, "%-18s error: %v\n", info.Name, info.Error)
			continue
		}
		ver := "-"
		if info.Manifest != nil && info.Manifest.Version != "" {
			ver = info.Manifest.Version
		}
		fmt.Fprintf(w, "%-18s %-10s %s\n", info.Name, ver, info.Path)
	}
	return nil
}

// ownerNames returns a function naming owner identities: plugin ids map to
// plugin names and extension owners lose their instance suffix.
func ownerNames(s *host.Server) func(owner string) string {
	plugins := make(map[string]string)
	for _, p := range s.Plugins().List() {
		plugins[p.ID()] = "plugin:" + p.Name()
	}
	return func(owner string) string {
		if name, ok := plugins[owner]; ok {
			return name
		}
		return trimOwner(owner)
	}
}

func trimOwner(owner string) string {
	if owner == "" {
		return "-"
	}
	name, _, _ := strings.Cut(owner, "#")
	return name
}
