// Package cmds implements the minixcompat command line interface.
package cmds

import (
	"fmt"
	"os"

	"github.com/cosiner/argv"
	"github.com/spf13/cobra"

	"github.com/eschaton/MINIXCompat/pkg/config"
	"github.com/eschaton/MINIXCompat/pkg/emu"
	"github.com/eschaton/MINIXCompat/pkg/fs"
	"github.com/eschaton/MINIXCompat/pkg/logflags"
	"github.com/eschaton/MINIXCompat/pkg/proc"
	"github.com/eschaton/MINIXCompat/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should
	// produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// minixRoot is the host directory the guest filesystem is rooted at.
	minixRoot string
	// extraArgs is a quoted string of additional guest arguments.
	extraArgs string

	conf *config.Config
)

// runBatchCycles is how many emulated cycles run between signal polls.
const runBatchCycles = 10000

// New returns the root minixcompat command.
func New() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "minixcompat",
		Short: "MINIXCompat runs MINIX 1.5 68K binaries on a modern host.",
	}
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (process, syscall, exec, signal, fs).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor; a file path gains a .<pid> suffix so forked children log separately.")
	rootCommand.PersistentFlags().StringVarP(&minixRoot, "root", "r", "", "Host directory holding the guest filesystem (default $MINIXCOMPAT_DIR or /opt/minix).")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("MINIXCompat %s\n", version.MinixCompatVersion)
		},
	}
	rootCommand.AddCommand(versionCommand)

	runCommand := &cobra.Command{
		Use:   "run <guest-path> [guest args...]",
		Short: "Run a MINIX executable.",
		Long: `Loads the MINIX 68K executable at the given guest path and runs it.

The guest filesystem lives under the configured root directory; guest paths
are resolved against it. Only host environment variables prefixed with
MINIX_ are visible to the guest, with the prefix stripped.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runGuest(args))
		},
	}
	runCommand.Flags().StringVar(&extraArgs, "args", "", "Additional guest arguments as a single quoted string.")
	rootCommand.AddCommand(runCommand)

	conf, _ = config.LoadConfig()
	applyConfigDefaults(rootCommand)

	return rootCommand
}

// applyConfigDefaults lets the config file provide defaults for flags that
// were not passed on the command line.
func applyConfigDefaults(cmd *cobra.Command) {
	cobra.OnInitialize(func() {
		if !log && conf.Log {
			log = true
		}
		if logOutput == "" {
			logOutput = conf.LogOutput
		}
		if logDest == "" {
			logDest = conf.LogDest
		}
		if minixRoot == "" {
			minixRoot = conf.MinixRoot
		}
	})
}

func runGuest(args []string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logflags.Close()

	guestArgs := args
	if extraArgs != "" {
		extra, err := parseExtraArgs(extraArgs)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		guestArgs = append(guestArgs, extra...)
	}

	machine := emu.NewMachine()
	translator := fs.NewTranslator(minixRoot)
	session := proc.New(machine, translator)

	// ExecuteWithHostParams drops argv[0], keeping the C library
	// convention that the guest's argv[0] is the tool being run.
	hostArgv := append([]string{"minixcompat"}, guestArgs...)
	if res := session.ExecuteWithHostParams(guestArgs[0], hostArgv, os.Environ()); res != 0 {
		fmt.Fprintf(os.Stderr, "minixcompat: cannot run %s: MINIX error %d\n", guestArgs[0], -res)
		return 1
	}

	for {
		switch machine.State() {
		case emu.StateReady:
			machine.ChangeState(emu.StateRunning)

		case emu.StateRunning:
			if _, err := machine.Run(runBatchCycles); err != nil {
				fmt.Fprintf(os.Stderr, "minixcompat: %v\n", err)
				return 1
			}
			// The poll point: pending host signals enter the guest
			// only here, between instruction batches.
			session.DrainPendingSignals()

		case emu.StateFinished:
			return int(session.ExitStatus())

		default:
			fmt.Fprintf(os.Stderr, "minixcompat: machine in unexpected state %v\n", machine.State())
			return 1
		}
	}
}

func parseExtraArgs(s string) ([]string, error) {
	v, err := argv.Argv(s,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal argument string '%s'", s)
	}
	return v[0], nil
}
