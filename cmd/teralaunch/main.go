package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/teralaunch/teralaunch/internal/backend"
	"github.com/teralaunch/teralaunch/internal/estimator"
	"github.com/teralaunch/teralaunch/internal/tui"
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	verbose    bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "teralaunch",
		Short: "A terminal launcher and patcher for Tera game servers.",
		Long:  `TeraLaunch keeps a local game installation in sync with a remote file server and launches the game with server-issued credentials. Run without arguments for the interactive interface; subcommands cover headless maintenance tasks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newBackendClient()
			if err != nil {
				return err
			}
			// The alternate screen owns the terminal; logs rotate on disk.
			logrus.SetOutput(&lumberjack.Logger{
				Filename:   logFilePath(),
				MaxSize:    5, // megabytes
				MaxBackups: 3,
			})
			return tui.Run(cmd.Context(), client)
		},
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr so headless subcommand output stays clean.
	logrus.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to launcher.yaml (default: search cwd, parent, executable dir)")

	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hashfileCmd)

	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newBackendClient() (*backend.Client, error) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	opts := []backend.Option{}
	if configPath != "" {
		cfg, path, err := backend.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, backend.WithConfig(cfg, path))
	}
	return backend.NewClient(opts...)
}

func logFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "launcher.log"
	}
	return filepath.Join(dir, "teralaunch", "launcher.log")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive launcher",
	Long:  "Start the interactive launcher interface. Equivalent to running teralaunch with no arguments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return rootCmd.RunE(cmd, args)
	},
}

// errUpdatesPending makes `check` exit nonzero when the installation is out
// of date, so scripts can branch on it.
var errUpdatesPending = errors.New("updates pending")

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the local installation against the server manifest",
	Long:  "Fetch the server manifest, hash local files, and report which files are out of date without downloading anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		reachable, err := client.CheckServerConnection(ctx)
		if err != nil || !reachable {
			return fmt.Errorf("file server unreachable: %w", backend.ErrOffline)
		}

		files, err := client.GetFilesToUpdate(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "installation is up to date")
			return nil
		}

		var total int64
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", f.Path, estimator.FormatSize(float64(f.Size)))
			total += f.Size
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files out of date, %s to download\n",
			len(files), estimator.FormatSize(float64(total)))
		return errUpdatesPending
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var hashfileCmd = &cobra.Command{
	Use:   "hashfile",
	Short: "Generate hash-file.json for the local installation",
	Long:  "Walk the configured game directory, hash every distributable file, and write hash-file.json for publishing to the file server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient()
		if err != nil {
			return err
		}
		summary, err := client.GenerateHashFile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

func main() {
	Execute()
}
