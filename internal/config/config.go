package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatText   = "text"
	LogFormatPretty = "pretty"

	EnvBranchRef  = "GITHUB_REF"
	branchRefHead = "refs/heads/"

	defaultWorkDir     = "."
	defaultPluginsDir  = "plugins"
	defaultOutput      = "pluginmaster.json"
	defaultDownloadURL = "https://github.com/ToxicMushroom/Athavar.FFXIV.DalaRepo/raw/{branch}/plugins/{plugin_name}/latest.zip"
)

type Default struct {
	Key   string      `yaml:"key"`
	Value interface{} `yaml:"value"`
}

type Duplicate struct {
	Source string   `yaml:"source"`
	Keys   []string `yaml:"keys"`
}

// CatalogConfig holds the tables the trimmer and enricher work from.
type CatalogConfig struct {
	DownloadURL string      `yaml:"download_url"`
	TrimmedKeys []string    `yaml:"trimmed_keys"`
	Defaults    []Default   `yaml:"defaults"`
	Duplicates  []Duplicate `yaml:"duplicates"`
}

type Config struct {
	WorkDir    string        `yaml:"work_dir"`
	PluginsDir string        `yaml:"plugins_dir"`
	Output     string        `yaml:"output"`
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format"`
	RedisURL   string        `yaml:"redis_url"`
	Catalog    CatalogConfig `yaml:"catalog"`

	// Branch comes from the environment, never from the file.
	Branch string `yaml:"-"`
}

func (c *Config) SetDefaults() {
	c.WorkDir = defaultWorkDir
	c.PluginsDir = defaultPluginsDir
	c.Output = defaultOutput
	c.LogLevel = LogLevelInfo
	c.LogFormat = LogFormatPretty
	c.Catalog = DefaultCatalogConfig()
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		DownloadURL: defaultDownloadURL,
		TrimmedKeys: []string{
			"Author",
			"Name",
			"Punchline",
			"Description",
			"Changelog",
			"InternalName",
			"AssemblyVersion",
			"RepoUrl",
			"ApplicableVersion",
			"Tags",
			"DalamudApiLevel",
			"IconUrl",
			"ImageUrls",
			"IsThirdParty",
			"LoadSync",
			"AcceptsFeedback",
			"LoadPriority",
			"CanUnloadAsync",
			"DownloadLinkInstall",
		},
		Defaults: []Default{
			{Key: "IsHide", Value: false},
			{Key: "IsTestingExclusive", Value: false},
			{Key: "ApplicableVersion", Value: "any"},
		},
		Duplicates: []Duplicate{
			{Source: "DownloadLinkInstall", Keys: []string{"DownloadLinkTesting", "DownloadLinkUpdate"}},
		},
	}
}

// Load reads the config file over the defaults and takes the branch from the
// environment. A missing config file is not an error.
func Load(path string) (*Config, error) {
	return LoadWithFS(afero.NewOsFs(), path)
}

func LoadWithFS(fs afero.Fs, path string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if path != "" {
		content, err := afero.ReadFile(fs, path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	}

	branch, err := BranchFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Branch = branch

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnv loads a dotenv file if it exists. Variables that are already set
// keep their values.
func LoadEnv(fileName string) error {
	if fileName == "" {
		return nil
	}

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(fileName); err != nil {
		return fmt.Errorf("cannot load env file %s: %w", fileName, err)
	}

	return nil
}

// BranchFromEnv returns the branch name from GITHUB_REF, stripping the
// refs/heads/ prefix.
func BranchFromEnv() (string, error) {
	ref := strings.TrimSpace(os.Getenv(EnvBranchRef))
	if ref == "" {
		return "", common.ErrBranchNotSet
	}

	parts := strings.Split(ref, branchRefHead)

	return parts[len(parts)-1], nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatPretty:
	default:
		return fmt.Errorf("unknown log format: %s", c.LogFormat)
	}

	if c.PluginsDir == "" {
		return fmt.Errorf("plugins_dir must be set")
	}

	if c.Output == "" {
		return fmt.Errorf("output must be set")
	}

	if c.Catalog.DownloadURL == "" {
		return fmt.Errorf("catalog.download_url must be set")
	}

	for _, d := range c.Catalog.Defaults {
		switch d.Value.(type) {
		case nil, bool, int, int64, float64, string:
		default:
			return fmt.Errorf("catalog default %s must be a scalar", d.Key)
		}
	}

	for _, d := range c.Catalog.Duplicates {
		if d.Source == "" {
			return fmt.Errorf("catalog duplicate must have a source")
		}
	}

	return nil
}
