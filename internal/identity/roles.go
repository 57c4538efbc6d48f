package identity

// Role selects which environment default credential a command signs with.
type Role string

const (
	RoleNone       Role = ""
	RoleDeployer   Role = "deployer"
	RoleAdmin      Role = "admin"
	RoleMiddleware Role = "middleware"
	RoleOracle     Role = "oracle"
)

type roleSource struct {
	mnemonicEnv   string
	privateKeyEnv string
}

var roleSources = map[Role]roleSource{
	RoleDeployer:   {mnemonicEnv: "MNEMONIC"},
	RoleAdmin:      {mnemonicEnv: "ADMIN_MNEMONIC"},
	RoleMiddleware: {mnemonicEnv: "MIDDLEWARE_MNEMONIC"},
	RoleOracle:     {privateKeyEnv: "ORACLE_PRIVATE_KEY"},
}

// Overrides are the per-command credential flags.
type Overrides struct {
	PrivateKey     string
	Mnemonic       string
	DerivationPath string
}

// ConfigForRole builds a resolver Config from the command overrides and the
// environment snapshot taken at startup. defaultPath applies when no
// --derivation-path is passed.
func ConfigForRole(role Role, overrides Overrides, env map[string]string, defaultPath string) Config {
	cfg := Config{
		PrivateKey:     overrides.PrivateKey,
		Mnemonic:       overrides.Mnemonic,
		DerivationPath: overrides.DerivationPath,
	}
	if cfg.DerivationPath == "" {
		cfg.DerivationPath = defaultPath
	}
	src, ok := roleSources[role]
	if !ok {
		return cfg
	}
	if src.privateKeyEnv != "" {
		cfg.DefaultPrivateKey = env[src.privateKeyEnv]
		cfg.DefaultSources = append(cfg.DefaultSources, src.privateKeyEnv)
	}
	if src.mnemonicEnv != "" {
		cfg.DefaultMnemonic = env[src.mnemonicEnv]
		cfg.DefaultSources = append(cfg.DefaultSources, src.mnemonicEnv)
	}
	return cfg
}
