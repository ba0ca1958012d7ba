package cmd

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/grsh/core"
	"github.com/josephlewis42/grsh/core/config"
	"github.com/josephlewis42/grsh/core/tty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string
	debug       bool

	// exitCode is the status of the shell once rootCmd has run.
	exitCode int
)

func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	fsys := afero.NewOsFs()
	if !cmd.Flags().Changed("config") {
		return config.LoadOrDefault(fsys, cfgPath)
	}

	configuration, err := config.Load(fsys, cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}
	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grsh [flags] [script]",
	Short: "A small job control shell",
	Long: `grsh runs pipelines of programs with redirections, and can suspend,
resume and kill them.

Without arguments grsh reads commands interactively. With -c it runs a single
command line, with a file argument it runs each line of the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s := core.NewShell(configuration, os.Stdin, os.Stdout, os.Stderr)
		logger := log.New(io.Discard, "", 0)
		if debug {
			logger = log.New(cmd.ErrOrStderr(), "[grsh] ", log.LstdFlags)
		}
		s.SetLogger(logger)

		interactive := !cmd.Flags().Changed("command") && len(args) == 0
		if interactive {
			stop := tty.CatchJobSignals()
			defer stop()
		}

		controller := tty.New(os.Stdin)
		if interactive {
			if err := controller.Acquire(); err != nil {
				logger.Printf("Couldn't acquire terminal: %v", err)
			}
		}
		// Scripts only hand off the terminal if they were started in the
		// foreground.
		if controller.Active() && controller.Current() == controller.ShellPgid() {
			s.Executor.Terminal = controller
		}

		switch {
		case cmd.Flags().Changed("command"):
			s.RunLine(commandLine)
		case len(args) == 1:
			if err := s.RunFile(args[0]); err != nil {
				return err
			}
		default:
			if err := s.RunInteractive(); err != nil {
				return err
			}
		}

		exitCode = s.ExitCode()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log internal diagnostics to stderr")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run the command line and exit")
}
