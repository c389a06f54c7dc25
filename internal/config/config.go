// Package config loads webgen settings from defaults, an optional
// webgen.yaml, WEBGEN_* environment variables and CLI flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and
// in the data dir.
const FileName = "webgen.yaml"

// ─── Types ───────────────────────────────────────────────────────────────────

// Config is the full runtime configuration.
type Config struct {
	OutputRoot string `mapstructure:"output_root" yaml:"output_root"`
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	DeployHost string `mapstructure:"deploy_host" yaml:"deploy_host"`
	HTTPAddr   string `mapstructure:"http_addr" yaml:"http_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat  string `mapstructure:"log_format" yaml:"log_format"`

	Build      BuildConfig      `mapstructure:"build" yaml:"build"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot" yaml:"screenshot"`
	Upload     UploadConfig     `mapstructure:"upload" yaml:"upload"`
	Caches     CacheConfig      `mapstructure:"caches" yaml:"caches"`
}

// BuildConfig controls the npm install/build stages.
type BuildConfig struct {
	NPMCommand     string        `mapstructure:"npm_command" yaml:"npm_command"`
	InstallTimeout time.Duration `mapstructure:"install_timeout" yaml:"install_timeout"`
	BuildTimeout   time.Duration `mapstructure:"build_timeout" yaml:"build_timeout"`
}

// EngineConfig names the generation engine subprocess.
type EngineConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
	// ToolEndpoint is where an agentic engine reaches the file tools.
	// The HTTP server serves them under /mcp.
	ToolEndpoint string `mapstructure:"tool_endpoint" yaml:"tool_endpoint"`
}

// ScreenshotConfig names the page capture command. Args may use the
// {url} and {out} placeholders.
type ScreenshotConfig struct {
	Command string        `mapstructure:"command" yaml:"command"`
	Args    []string      `mapstructure:"args" yaml:"args"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// UploadConfig selects where comparison screenshots are stored.
type UploadConfig struct {
	Mode     string     `mapstructure:"mode" yaml:"mode"`
	LocalDir string     `mapstructure:"local_dir" yaml:"local_dir"`
	BaseURL  string     `mapstructure:"base_url" yaml:"base_url"`
	SFTP     SFTPConfig `mapstructure:"sftp" yaml:"sftp"`
}

// SFTPConfig is used when Upload.Mode is "sftp".
type SFTPConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	User      string `mapstructure:"user" yaml:"user"`
	Password  string `mapstructure:"password" yaml:"password"`
	KeyFile   string `mapstructure:"key_file" yaml:"key_file"`
	RemoteDir string `mapstructure:"remote_dir" yaml:"remote_dir"`
}

// CacheConfig sizes the in-memory dedup and lookup caches.
type CacheConfig struct {
	WriteGuard CacheSpec `mapstructure:"write_guard" yaml:"write_guard"`
	Generating CacheSpec `mapstructure:"generating" yaml:"generating"`
	Current    CacheSpec `mapstructure:"current" yaml:"current"`
	// Progress retains finished build events for late subscribers;
	// AfterWrite is their maximum age.
	Progress CacheSpec `mapstructure:"progress" yaml:"progress"`
}

// CacheSpec bounds one cache by size and by two idle windows.
type CacheSpec struct {
	MaxEntries  int           `mapstructure:"max_entries" yaml:"max_entries"`
	AfterWrite  time.Duration `mapstructure:"after_write" yaml:"after_write"`
	AfterAccess time.Duration `mapstructure:"after_access" yaml:"after_access"`
}

// ─── Defaults ────────────────────────────────────────────────────────────────

// DefaultNPMCommand is npm, or npm.cmd on Windows.
func DefaultNPMCommand() string {
	if runtime.GOOS == "windows" {
		return "npm.cmd"
	}
	return "npm"
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".webgen")
	return Config{
		OutputRoot: filepath.Join(dataDir, "code_output"),
		DataDir:    dataDir,
		DeployHost: "http://localhost:8123/static",
		HTTPAddr:   ":8123",
		LogLevel:   "info",
		LogFormat:  "json",
		Build: BuildConfig{
			NPMCommand:     DefaultNPMCommand(),
			InstallTimeout: 300 * time.Second,
			BuildTimeout:   180 * time.Second,
		},
		Engine: EngineConfig{
			ToolEndpoint: "http://localhost:8123/mcp",
		},
		Screenshot: ScreenshotConfig{
			Timeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			Mode:     "local",
			LocalDir: filepath.Join(dataDir, "screenshots"),
			BaseURL:  "http://localhost:8123/screenshots",
		},
		Caches: CacheConfig{
			WriteGuard: CacheSpec{MaxEntries: 1000, AfterWrite: 30 * time.Minute, AfterAccess: 10 * time.Minute},
			Generating: CacheSpec{MaxEntries: 2000, AfterWrite: 30 * time.Minute, AfterAccess: 10 * time.Minute},
			Current:    CacheSpec{MaxEntries: 2000, AfterWrite: 10 * time.Minute, AfterAccess: 5 * time.Minute},
			Progress:   CacheSpec{MaxEntries: 1000, AfterWrite: 24 * time.Hour},
		},
	}
}

// setDefaults registers every default with viper so env vars and flags
// can override nested keys.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("output_root", d.OutputRoot)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("deploy_host", d.DeployHost)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetDefault("build.npm_command", d.Build.NPMCommand)
	v.SetDefault("build.install_timeout", d.Build.InstallTimeout)
	v.SetDefault("build.build_timeout", d.Build.BuildTimeout)

	v.SetDefault("engine.command", d.Engine.Command)
	v.SetDefault("engine.args", d.Engine.Args)
	v.SetDefault("engine.tool_endpoint", d.Engine.ToolEndpoint)

	v.SetDefault("screenshot.command", d.Screenshot.Command)
	v.SetDefault("screenshot.args", d.Screenshot.Args)
	v.SetDefault("screenshot.timeout", d.Screenshot.Timeout)

	v.SetDefault("upload.mode", d.Upload.Mode)
	v.SetDefault("upload.local_dir", d.Upload.LocalDir)
	v.SetDefault("upload.base_url", d.Upload.BaseURL)
	v.SetDefault("upload.sftp.addr", "")
	v.SetDefault("upload.sftp.user", "")
	v.SetDefault("upload.sftp.password", "")
	v.SetDefault("upload.sftp.key_file", "")
	v.SetDefault("upload.sftp.remote_dir", "")

	for name, spec := range map[string]CacheSpec{
		"write_guard": d.Caches.WriteGuard,
		"generating":  d.Caches.Generating,
		"current":     d.Caches.Current,
		"progress":    d.Caches.Progress,
	} {
		v.SetDefault("caches."+name+".max_entries", spec.MaxEntries)
		v.SetDefault("caches."+name+".after_write", spec.AfterWrite)
		v.SetDefault("caches."+name+".after_access", spec.AfterAccess)
	}
}

// ─── Loading ─────────────────────────────────────────────────────────────────

// Load resolves the configuration. When configFile is empty, webgen.yaml
// is searched in the working directory and in ~/.webgen; a missing file
// is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("WEBGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Default().DataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.OutputRoot = expandHome(cfg.OutputRoot)
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Upload.LocalDir = expandHome(cfg.Upload.LocalDir)
	cfg.Upload.SFTP.KeyFile = expandHome(cfg.Upload.SFTP.KeyFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and returns the first problem with
// a hint on how to fix it.
func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root is required (hint: set WEBGEN_OUTPUT_ROOT or output_root in %s)", FileName)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required (hint: set WEBGEN_DATA_DIR)")
	}
	if c.Build.InstallTimeout <= 0 || c.Build.BuildTimeout <= 0 {
		return fmt.Errorf("build timeouts must be positive (hint: use durations such as \"300s\")")
	}
	if c.Build.NPMCommand == "" {
		return fmt.Errorf("build.npm_command is required (hint: %q)", DefaultNPMCommand())
	}
	switch c.Upload.Mode {
	case "local":
		if c.Upload.LocalDir == "" {
			return fmt.Errorf("upload.local_dir is required when upload.mode is local")
		}
	case "sftp":
		if c.Upload.SFTP.Addr == "" || c.Upload.SFTP.User == "" {
			return fmt.Errorf("upload.sftp.addr and upload.sftp.user are required when upload.mode is sftp")
		}
		if c.Upload.SFTP.Password == "" && c.Upload.SFTP.KeyFile == "" {
			return fmt.Errorf("upload.sftp needs a password or key_file")
		}
	default:
		return fmt.Errorf("invalid upload.mode %q: must be one of: local, sftp", c.Upload.Mode)
	}
	for name, spec := range map[string]CacheSpec{
		"write_guard": c.Caches.WriteGuard,
		"generating":  c.Caches.Generating,
		"current":     c.Caches.Current,
		"progress":    c.Caches.Progress,
	} {
		if spec.MaxEntries <= 0 {
			return fmt.Errorf("caches.%s.max_entries must be positive", name)
		}
	}
	return nil
}

// WriteDefault writes the default configuration as YAML. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	header := "# webgen configuration. Every key can be overridden with WEBGEN_<KEY>,\n" +
		"# nested keys use underscores (WEBGEN_BUILD_BUILD_TIMEOUT=240s).\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
