package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pages/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "pages.json"

	// DefaultDevPort is the default development server port.
	DefaultDevPort = 5173

	// DefaultServerPort is the default production server port.
	DefaultServerPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultPages is the default pages root.
	DefaultPages = "src/pages"

	// DefaultPublic is the default public assets directory.
	DefaultPublic = "public"

	// DefaultEntry is the default per-page entry script name.
	DefaultEntry = "index.tsx"

	// DefaultParamsGlobal is the window property receiving route params.
	DefaultParamsGlobal = "__PARAMS__"

	// DefaultPublishConcurrency bounds parallel uploads.
	DefaultPublishConcurrency = 8
)

// ConfigFileNames lists the accepted configuration files in lookup order.
var ConfigFileNames = []string{ConfigFileName, "pages.yaml", "pages.yml"}

// Bundler kinds.
const (
	BundlerCopy    = "copy"
	BundlerCommand = "command"
)

// Config represents the complete pages configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Paths contains project directory configuration.
	Paths PathsConfig `json:"paths,omitempty" yaml:"paths,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty" yaml:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty"`

	// Server contains production server configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Publish contains object storage upload configuration.
	Publish PublishConfig `json:"publish,omitempty" yaml:"publish,omitempty"`

	// Params controls how resolved route params reach the page.
	Params ParamsConfig `json:"params,omitempty" yaml:"params,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PathsConfig contains path configuration for project directories.
type PathsConfig struct {
	// Pages is the root of the page directory tree.
	Pages string `json:"pages,omitempty" yaml:"pages,omitempty"`

	// Public holds files copied verbatim to the build output root.
	Public string `json:"public,omitempty" yaml:"public,omitempty"`

	// Entry is the per-page entry script file name.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// OpenBrowser opens the browser automatically on start.
	OpenBrowser bool `json:"openBrowser,omitempty" yaml:"openBrowser,omitempty"`

	// HotReload enables live reload in development. Nil means enabled.
	HotReload *bool `json:"hotReload,omitempty" yaml:"hotReload,omitempty"`

	// Upstream is an optional bundler dev server that receives every
	// request the page middleware does not answer.
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`

	// Watch contains extra paths to watch for changes.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// EmptyOutDir removes the output directory before bundling. Nil means true.
	EmptyOutDir *bool `json:"emptyOutDir,omitempty" yaml:"emptyOutDir,omitempty"`

	// Bundler selects how pages are bundled: "copy" or "command".
	Bundler string `json:"bundler,omitempty" yaml:"bundler,omitempty"`

	// Command is the external bundler invocation used by the "command" bundler.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// CompressionConfig controls response compression in the production server.
type CompressionConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`
	MinSize int    `json:"minSize,omitempty" yaml:"minSize,omitempty"`
}

// ServerConfig contains production server settings.
type ServerConfig struct {
	// Port is the production server port. The PORT environment variable
	// takes precedence.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Host is the host to bind to (empty binds all interfaces).
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Compression configures gzip responses.
	Compression CompressionConfig `json:"compression,omitempty" yaml:"compression,omitempty"`

	// Metrics exposes Prometheus metrics on /metrics. Nil means true.
	Metrics *bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing wraps requests in OpenTelemetry spans. Nil means true.
	Tracing *bool `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// PublishConfig contains object storage upload settings.
type PublishConfig struct {
	Bucket      string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix      string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region      string `json:"region,omitempty" yaml:"region,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// ParamsConfig controls param injection.
type ParamsConfig struct {
	// Global is the window property the params object is assigned to.
	Global string `json:"global,omitempty" yaml:"global,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory, trying each of
// ConfigFileNames in order.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No pages.json or pages.yaml found in " + dir).
		WithSuggestion("Create pages.json at the project root or pass --config")
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml/.yml are YAML, everything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Create pages.json at the project root or pass --config")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			perr := errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
			if line := yamlErrorLine(err); line > 0 {
				perr.WithLocation(path, line, 0)
			}
			return nil, perr
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.configPath = abs
	cfg.applyDefaults()

	return cfg, nil
}

var (
	yamlLineRe = regexp.MustCompile(`line (\d+)`)
	identRe    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// yamlErrorLine extracts the first line number from a yaml.v3 error message.
func yamlErrorLine(err error) int {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path in the format
// implied by its extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// SetDir anchors relative paths at dir without a config file on disk.
func (c *Config) SetDir(dir string) {
	c.configPath = filepath.Join(dir, ConfigFileName)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Paths.Pages == "" {
		c.Paths.Pages = DefaultPages
	}
	if c.Paths.Public == "" {
		c.Paths.Public = DefaultPublic
	}
	if c.Paths.Entry == "" {
		c.Paths.Entry = DefaultEntry
	}

	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultDevPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.HotReload == nil {
		c.Dev.HotReload = boolPtr(true)
	}

	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Build.EmptyOutDir == nil {
		c.Build.EmptyOutDir = boolPtr(true)
	}
	if c.Build.Bundler == "" {
		if c.Build.Command != "" {
			c.Build.Bundler = BundlerCommand
		} else {
			c.Build.Bundler = BundlerCopy
		}
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Compression.Level == "" {
		c.Server.Compression.Level = "default"
	}
	if c.Server.Metrics == nil {
		c.Server.Metrics = boolPtr(true)
	}
	if c.Server.Tracing == nil {
		c.Server.Tracing = boolPtr(true)
	}

	if c.Publish.Concurrency == 0 {
		c.Publish.Concurrency = DefaultPublishConcurrency
	}

	if c.Params.Global == "" {
		c.Params.Global = DefaultParamsGlobal
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E122").
			WithDetail("dev.port must be between 0 and 65535")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("server.port must be between 0 and 65535")
	}
	switch c.Build.Bundler {
	case BundlerCopy:
	case BundlerCommand:
		if strings.TrimSpace(c.Build.Command) == "" {
			return errors.New("E121").
				WithDetail("build.bundler is \"command\" but build.command is empty").
				WithSuggestion(`Set build.command, e.g. "npx vite build"`)
		}
	default:
		return errors.New("E120").
			WithDetail("build.bundler must be \"copy\" or \"command\", got " + strconv.Quote(c.Build.Bundler))
	}
	if strings.ContainsAny(c.Paths.Entry, `/\`) {
		return errors.New("E120").
			WithDetail("paths.entry must be a file name, got " + strconv.Quote(c.Paths.Entry))
	}
	if c.Params.Global != "" && !identRe.MatchString(c.Params.Global) {
		return errors.New("E120").
			WithDetail("params.global must be a JavaScript identifier, got " + strconv.Quote(c.Params.Global))
	}
	if c.Publish.Concurrency < 0 {
		return errors.New("E120").
			WithDetail("publish.concurrency must not be negative")
	}
	return nil
}

// HotReloadEnabled reports whether the dev server pushes reloads to browsers.
func (c *Config) HotReloadEnabled() bool {
	return c.Dev.HotReload == nil || *c.Dev.HotReload
}

// EmptyOutDirEnabled reports whether builds clear the output directory first.
func (c *Config) EmptyOutDirEnabled() bool {
	return c.Build.EmptyOutDir == nil || *c.Build.EmptyOutDir
}

// MetricsEnabled reports whether the production server exposes /metrics.
func (c *Config) MetricsEnabled() bool {
	return c.Server.Metrics == nil || *c.Server.Metrics
}

// TracingEnabled reports whether the production server traces requests.
func (c *Config) TracingEnabled() bool {
	return c.Server.Tracing == nil || *c.Server.Tracing
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// ServerAddress returns the production listen address. A numeric PORT
// environment variable overrides server.port.
func (c *Config) ServerAddress() string {
	port := c.Server.Port
	if env := os.Getenv("PORT"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			port = n
		}
	}
	return c.Server.Host + ":" + strconv.Itoa(port)
}

// PagesPath returns the absolute path to the pages root.
func (c *Config) PagesPath() string {
	return c.resolve(c.Paths.Pages)
}

// PublicPath returns the absolute path to the public directory.
func (c *Config) PublicPath() string {
	return c.resolve(c.Paths.Public)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No pages.json or pages.yaml found in " + startDir + " or any parent directory").
				WithSuggestion("Create pages.json at the project root or pass --config")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent holding a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func boolPtr(b bool) *bool {
	return &b
}
