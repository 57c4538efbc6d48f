package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/config"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/model"
	"github.com/zkevm-ops/zkadmin/internal/network"
	"github.com/zkevm-ops/zkadmin/internal/out"
	"github.com/zkevm-ops/zkadmin/internal/policy"
	"github.com/zkevm-ops/zkadmin/internal/schema"
	"github.com/zkevm-ops/zkadmin/internal/version"
)

type dialFunc func(ctx context.Context, cfg network.Config) (*network.Connection, error)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	dial   dialFunc
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
		dial:   network.Dial,
	}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	logger   *slog.Logger
	registry *command.Registry
	root     *cobra.Command

	lastCommand  string
	lastWarnings []string
	// lastOperation is the operation of the failed command, reported as the
	// error envelope's data.
	lastOperation *execution.Operation
	lastMeta      model.EnvelopeMeta
}

// Run executes one invocation and maps its outcome to a process exit code.
func (r *Runner) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := &runtimeState{runner: r, logger: slog.New(slog.DiscardHandler)}
	registry, err := state.newRegistry()
	if err != nil {
		err = clierr.Wrap(clierr.CodeInternal, "build command registry", err)
		state.renderError("", err)
		return clierr.ExitCode(err)
	}
	state.registry = registry

	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err = normalizeRunError(root.ExecuteContext(ctx))
	if err == nil {
		return 0
	}
	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Operator toolkit for the rollup admin, deny-list and bridge middleware contracts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.logger = newLogger(s.runner.stderr, settings.LogLevel, settings.LogFormat)

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path
			return policy.CheckCommandAllowed(settings.EnableCommands, path)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		if name, ok := unknownFlagName(err); ok {
			return clierr.Wrap(clierr.CodeUnknownFlag, "parse flags", err).WithFields(name)
		}
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	pf.StringVar(&s.flags.EnvFile, "env-file", "", "Path to .env file (default ./.env)")
	pf.BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	pf.BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	pf.StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	pf.BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	pf.StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated)")
	pf.StringVar(&s.flags.RPCURL, "rpc-url", "", "JSON-RPC endpoint (env "+config.EnvRPCURL+")")
	pf.StringVar(&s.flags.Network, "network", "", "Network name; localhost and hardhat poll fast (env "+config.EnvNetwork+")")
	pf.StringVar(&s.flags.ConfirmTimeout, "confirm-timeout", "", "Maximum wait for each transaction receipt (default 5m)")
	pf.StringVar(&s.flags.PollInterval, "poll-interval", "", "Receipt polling interval override")
	pf.Float64Var(&s.flags.GasMultiplier, "gas-multiplier", 0, "Gas estimate multiplier (default 1.2)")
	pf.StringVar(&s.flags.MaxFeeGwei, "max-fee-gwei", "", "EIP-1559 max fee per gas in gwei")
	pf.StringVar(&s.flags.MaxPriorityFeeGwei, "max-priority-fee-gwei", "", "EIP-1559 priority fee in gwei")
	pf.BoolVar(&s.flags.NoSimulate, "no-simulate", false, "Skip the eth_call preflight before each transaction")
	pf.BoolVar(&s.flags.DryRun, "dry-run", false, "Report the step plan without connecting or submitting")
	pf.StringVar(&s.flags.ArtifactsDir, "artifacts", "", "Compiled contract artifacts directory (default ./artifacts)")
	pf.StringVar(&s.flags.LockDir, "lock-dir", "", "Directory for per-signer lock files")
	pf.StringVar(&s.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&s.flags.LogFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())
	s.addRegistryCommands(cmd)

	return cmd
}

// addRegistryCommands mirrors the registry as a cobra tree. Intermediate path
// elements become group commands.
func (s *runtimeState) addRegistryCommands(root *cobra.Command) {
	groups := map[string]*cobra.Command{}
	for _, spec := range s.registry.Commands() {
		parent := root
		for i, part := range spec.Path[:len(spec.Path)-1] {
			key := strings.Join(spec.Path[:i+1], " ")
			group, ok := groups[key]
			if !ok {
				group = &cobra.Command{Use: part, Short: groupShort[key]}
				parent.AddCommand(group)
				groups[key] = group
			}
			parent = group
		}
		parent.AddCommand(s.newLeafCommand(spec))
	}
}

var groupShort = map[string]string{
	"admin":      "Administer the chain admin contract",
	"denylist":   "Manage the transaction filterer deny-list",
	"middleware": "Deploy and operate the bridge middleware",
}

func (s *runtimeState) newLeafCommand(spec *command.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.Path[len(spec.Path)-1],
		Short: spec.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := command.Input{Flags: map[string]string{}, Env: s.settings.Env}
			cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
				if f.Changed && f.Name != "help" {
					in.Flags[f.Name] = f.Value.String()
				}
			})
			data, err := s.registry.Dispatch(cmd.Context(), spec.Path, in)
			if err != nil {
				return err
			}
			return s.emitSuccess(spec.Name(), data)
		},
	}
	if spec.Signs() {
		cmd.Annotations = map[string]string{schema.AnnotationRole: string(spec.Role)}
	}
	flags := cmd.Flags()
	for _, f := range spec.Flags {
		if f.Kind == command.KindBool {
			flags.Bool(f.Name, f.Default == "true", f.Usage)
		} else {
			flags.String(f.Name, f.Default, f.Usage)
		}
		_ = flags.SetAnnotation(f.Name, schema.AnnotationKind, []string{string(f.Kind)})
		if f.Required {
			_ = flags.SetAnnotation(f.Name, schema.AnnotationRequired, []string{"true"})
		}
		if f.Env != "" {
			_ = flags.SetAnnotation(f.Name, schema.AnnotationEnv, []string{f.Env})
		}
		if f.Enum != nil {
			_ = flags.SetAnnotation(f.Name, schema.AnnotationValues, f.Enum.Names())
		}
	}
	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = strings.Join(args, " ")
			}
			data, err := schema.Build(s.root, path)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data)
		},
	}
	return cmd
}

func (s *runtimeState) emitSuccess(commandPath string, data any) error {
	meta := s.lastMeta
	meta.RequestID = newRequestID()
	meta.Timestamp = s.runner.now().UTC()
	meta.Command = commandPath
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: s.lastWarnings,
		Meta:     meta,
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	body := &model.ErrorBody{Code: code, Type: clierr.CodeInternal.Type(), Message: err.Error()}
	if cErr, ok := clierr.As(err); ok {
		body.Type = cErr.Code.Type()
		body.Message = cErr.Message
		if cErr.Cause != nil {
			body.Message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		body.Fields = cErr.Fields
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil

	var data any = []any{}
	if s.lastOperation != nil {
		data = s.lastOperation
	}
	meta := s.lastMeta
	meta.RequestID = newRequestID()
	meta.Timestamp = s.runner.now().UTC()
	meta.Command = commandPath
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  false,
		Data:     data,
		Error:    body,
		Warnings: s.lastWarnings,
		Meta:     meta,
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) warn(msg string) {
	s.lastWarnings = append(s.lastWarnings, msg)
	s.logger.Warn(msg)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func unknownFlagName(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	const prefix = "unknown flag: "
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(msg, prefix)), true
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
