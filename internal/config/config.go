package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Network environment variables shared with the rest of the operator tooling.
const (
	EnvRPCURL  = "ETH_CLIENT_WEB3_URL"
	EnvNetwork = "CHAIN_ETH_NETWORK"
)

// DomainEnvKeys are captured once at startup and exposed to command flag
// validation as env-backed defaults.
var DomainEnvKeys = []string{
	"MNEMONIC",
	"ADMIN_MNEMONIC",
	"MIDDLEWARE_MNEMONIC",
	"ORACLE_PRIVATE_KEY",
	"CRONOSZKEVM_ADMIN_ADDRESS",
	"NEW_CRONOSZKEVM_ADMIN_ADDRESS",
	"CONTRACTS_DIAMOND_PROXY_ADDR",
	"CONTRACTS_BRIDGEHUB_PROXY_ADDR",
	"CONTRACTS_L1_SHARED_BRIDGE_PROXY_ADDR",
	"CHAIN_ETH_ZKSYNC_NETWORK_ID",
	"CONTRACTS_MIDDLEWARE_ADDR",
	"CONTRACTS_DENYLIST_ADDR",
	"ETH_SENDER_SENDER_OPERATOR_COMMIT_ETH_ADDR",
	"ETH_SENDER_SENDER_OPERATOR_BLOBS_ETH_ADDR",
}

type GlobalFlags struct {
	ConfigPath         string
	EnvFile            string
	JSON               bool
	Plain              bool
	Select             string
	ResultsOnly        bool
	EnableCommands     string
	RPCURL             string
	Network            string
	ConfirmTimeout     string
	PollInterval       string
	GasMultiplier      float64
	MaxFeeGwei         string
	MaxPriorityFeeGwei string
	NoSimulate         bool
	DryRun             bool
	ArtifactsDir       string
	LockDir            string
	LogLevel           string
	LogFormat          string
}

type Settings struct {
	OutputMode     string
	SelectFields   []string
	ResultsOnly    bool
	EnableCommands []string
	LogLevel       string
	LogFormat      string

	RPCURL       string
	Network      string
	PollInterval time.Duration

	ConfirmTimeout     time.Duration
	GasMultiplier      float64
	MaxFeeGwei         string
	MaxPriorityFeeGwei string
	Simulate           bool
	DryRun             bool
	ArtifactsDir       string
	LockDir            string
	DerivationPath     string

	// Env holds the domain environment snapshot (see DomainEnvKeys).
	Env map[string]string
}

type fileConfig struct {
	Output    string `yaml:"output"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	EnvFile   string `yaml:"env_file"`
	Network   struct {
		RPCURL       string `yaml:"rpc_url"`
		Name         string `yaml:"name"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"network"`
	Execution struct {
		ConfirmTimeout     string   `yaml:"confirm_timeout"`
		GasMultiplier      *float64 `yaml:"gas_multiplier"`
		MaxFeeGwei         string   `yaml:"max_fee_gwei"`
		MaxPriorityFeeGwei string   `yaml:"max_priority_fee_gwei"`
		Simulate           *bool    `yaml:"simulate"`
		LockDir            string   `yaml:"lock_dir"`
	} `yaml:"execution"`
	ArtifactsDir   string `yaml:"artifacts_dir"`
	DerivationPath string `yaml:"derivation_path"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	envFile, err := applyFileConfig(cfgPath, &settings)
	if err != nil {
		return Settings{}, err
	}

	lookup, err := newEnvLookup(resolveEnvFile(flags.EnvFile, envFile))
	if err != nil {
		return Settings{}, err
	}
	if err := applyEnv(lookup, &settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.ConfirmTimeout <= 0 {
		settings.ConfirmTimeout = 5 * time.Minute
	}
	if settings.GasMultiplier <= 1 {
		settings.GasMultiplier = 1.2
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	lockDir, err := defaultLockDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:     "json",
		LogLevel:       "info",
		LogFormat:      "text",
		ConfirmTimeout: 5 * time.Minute,
		GasMultiplier:  1.2,
		Simulate:       true,
		ArtifactsDir:   "artifacts",
		LockDir:        lockDir,
		Env:            map[string]string{},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "zkadmin", "config.yaml"), nil
}

func defaultLockDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "zkadmin", "locks"), nil
}

func resolveEnvFile(flagValue, fileValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("ZKADMIN_ENV_FILE")); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return ".env"
}

func applyFileConfig(path string, settings *Settings) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return "", fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = strings.ToLower(cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		settings.LogFormat = strings.ToLower(cfg.LogFormat)
	}
	if cfg.Network.RPCURL != "" {
		settings.RPCURL = cfg.Network.RPCURL
	}
	if cfg.Network.Name != "" {
		settings.Network = cfg.Network.Name
	}
	if cfg.Network.PollInterval != "" {
		d, err := time.ParseDuration(cfg.Network.PollInterval)
		if err != nil {
			return "", fmt.Errorf("config network.poll_interval: %w", err)
		}
		settings.PollInterval = d
	}
	if cfg.Execution.ConfirmTimeout != "" {
		d, err := time.ParseDuration(cfg.Execution.ConfirmTimeout)
		if err != nil {
			return "", fmt.Errorf("config execution.confirm_timeout: %w", err)
		}
		settings.ConfirmTimeout = d
	}
	if cfg.Execution.GasMultiplier != nil {
		settings.GasMultiplier = *cfg.Execution.GasMultiplier
	}
	if cfg.Execution.MaxFeeGwei != "" {
		settings.MaxFeeGwei = cfg.Execution.MaxFeeGwei
	}
	if cfg.Execution.MaxPriorityFeeGwei != "" {
		settings.MaxPriorityFeeGwei = cfg.Execution.MaxPriorityFeeGwei
	}
	if cfg.Execution.Simulate != nil {
		settings.Simulate = *cfg.Execution.Simulate
	}
	if cfg.Execution.LockDir != "" {
		settings.LockDir = cfg.Execution.LockDir
	}
	if cfg.ArtifactsDir != "" {
		settings.ArtifactsDir = cfg.ArtifactsDir
	}
	if cfg.DerivationPath != "" {
		settings.DerivationPath = cfg.DerivationPath
	}

	return cfg.EnvFile, nil
}

// envLookup resolves a variable from the process environment first and the
// .env file second.
type envLookup func(key string) string

func newEnvLookup(envFile string) (envLookup, error) {
	dotenv := gotenv.Env{}
	f, err := os.Open(envFile)
	switch {
	case err == nil:
		defer f.Close()
		parsed, err := gotenv.StrictParse(f)
		if err != nil {
			return nil, fmt.Errorf("parse env file %s: %w", envFile, err)
		}
		dotenv = parsed
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open env file: %w", err)
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}, nil
}

func applyEnv(lookup envLookup, settings *Settings) error {
	if v := lookup("ZKADMIN_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := lookup("ZKADMIN_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := lookup("ZKADMIN_LOG_FORMAT"); v != "" {
		settings.LogFormat = strings.ToLower(v)
	}
	if v := lookup(EnvRPCURL); v != "" {
		settings.RPCURL = v
	}
	if v := lookup(EnvNetwork); v != "" {
		settings.Network = v
	}
	if v := lookup("ZKADMIN_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZKADMIN_POLL_INTERVAL: %w", err)
		}
		settings.PollInterval = d
	}
	if v := lookup("ZKADMIN_CONFIRM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ZKADMIN_CONFIRM_TIMEOUT: %w", err)
		}
		settings.ConfirmTimeout = d
	}
	if v := lookup("ZKADMIN_GAS_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse ZKADMIN_GAS_MULTIPLIER: %w", err)
		}
		settings.GasMultiplier = f
	}
	if v := lookup("ZKADMIN_MAX_FEE_GWEI"); v != "" {
		settings.MaxFeeGwei = v
	}
	if v := lookup("ZKADMIN_MAX_PRIORITY_FEE_GWEI"); v != "" {
		settings.MaxPriorityFeeGwei = v
	}
	if v := lookup("ZKADMIN_NO_SIMULATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse ZKADMIN_NO_SIMULATE: %w", err)
		}
		settings.Simulate = !b
	}
	if v := lookup("ZKADMIN_ARTIFACTS"); v != "" {
		settings.ArtifactsDir = v
	}
	if v := lookup("ZKADMIN_LOCK_DIR"); v != "" {
		settings.LockDir = v
	}
	if v := lookup("ZKADMIN_DERIVATION_PATH"); v != "" {
		settings.DerivationPath = v
	}

	env := make(map[string]string, len(DomainEnvKeys))
	for _, key := range DomainEnvKeys {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			env[key] = v
		}
	}
	settings.Env = env
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		settings.SelectFields = splitList(flags.Select)
	}
	settings.ResultsOnly = flags.ResultsOnly
	if strings.TrimSpace(flags.EnableCommands) != "" {
		settings.EnableCommands = splitList(flags.EnableCommands)
	}

	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		settings.LogFormat = strings.ToLower(flags.LogFormat)
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = strings.TrimSpace(flags.RPCURL)
	}
	if strings.TrimSpace(flags.Network) != "" {
		settings.Network = strings.TrimSpace(flags.Network)
	}
	if flags.PollInterval != "" {
		d, err := time.ParseDuration(flags.PollInterval)
		if err != nil {
			return fmt.Errorf("parse --poll-interval: %w", err)
		}
		settings.PollInterval = d
	}
	if flags.ConfirmTimeout != "" {
		d, err := time.ParseDuration(flags.ConfirmTimeout)
		if err != nil {
			return fmt.Errorf("parse --confirm-timeout: %w", err)
		}
		settings.ConfirmTimeout = d
	}
	if flags.GasMultiplier > 0 {
		if flags.GasMultiplier <= 1 {
			return fmt.Errorf("--gas-multiplier must be > 1")
		}
		settings.GasMultiplier = flags.GasMultiplier
	}
	if flags.MaxFeeGwei != "" {
		settings.MaxFeeGwei = flags.MaxFeeGwei
	}
	if flags.MaxPriorityFeeGwei != "" {
		settings.MaxPriorityFeeGwei = flags.MaxPriorityFeeGwei
	}
	if flags.NoSimulate {
		settings.Simulate = false
	}
	settings.DryRun = flags.DryRun
	if flags.ArtifactsDir != "" {
		settings.ArtifactsDir = flags.ArtifactsDir
	}
	if flags.LockDir != "" {
		settings.LockDir = flags.LockDir
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	if settings.LogFormat != "text" && settings.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json")
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
