package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a required setting that is missing or malformed.
// It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

const (
	DefaultLocation     = "us-central1"
	DefaultResourceName = "projects/243890394709/locations/us-central1/reasoningEngines/2448160495778136064"
	DefaultModel        = "gemini-2.5-pro"
	DefaultWebAddr      = ":8501"
	DefaultTerminalUser = "user"
	DefaultWebUser      = "gui_web_user"
)

// Runtime names
const (
	RuntimeRemote = "remote"
	RuntimeLocal  = "local"
)

// Model backends
const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

var resourceNamePattern = regexp.MustCompile(`^projects/[^/]+/locations/[^/]+/reasoningEngines/[^/]+$`)

// Config represents the complete salesagent configuration
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Model    ModelConfig    `yaml:"model"`
	Web      WebConfig      `yaml:"web"`
	Terminal TerminalConfig `yaml:"terminal"`
	Log      LogConfig      `yaml:"log"`
}

// AgentConfig selects the agent runtime and the identity used against it
type AgentConfig struct {
	Project      string        `yaml:"project"`       // Google Cloud project id
	Location     string        `yaml:"location"`      // Region of the reasoning engine
	ResourceName string        `yaml:"resource_name"` // projects/*/locations/*/reasoningEngines/*
	Endpoint     string        `yaml:"endpoint"`      // Overrides https://{location}-aiplatform.googleapis.com
	Runtime      string        `yaml:"runtime"`       // "remote" or "local"
	TerminalUser string        `yaml:"terminal_user_id"`
	WebUser      string        `yaml:"web_user_id"`
	QueryTimeout time.Duration `yaml:"query_timeout"` // 0 disables the per-turn deadline
	MaxTurns     int           `yaml:"max_turns"`     // Tool-calling rounds for the local runtime
}

// ModelConfig configures the model behind the sales tools and the local runtime
type ModelConfig struct {
	Backend           string  `yaml:"backend"`
	Name              string  `yaml:"name"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Temperature       float32 `yaml:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type TerminalConfig struct {
	Markdown    bool   `yaml:"markdown"`
	HistoryFile string `yaml:"history_file"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Location:     DefaultLocation,
			ResourceName: DefaultResourceName,
			Runtime:      RuntimeRemote,
			TerminalUser: DefaultTerminalUser,
			WebUser:      DefaultWebUser,
			MaxTurns:     10,
		},
		Model: ModelConfig{
			Backend:           BackendVertex,
			Name:              DefaultModel,
			Temperature:       0.7,
			RequestsPerMinute: 30,
		},
		Web: WebConfig{
			Addr: DefaultWebAddr,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the YAML config file on top of the defaults,
// then applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.expand()
	cfg.applyEnv()
	return cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations
// Checks: ./salesagent.yaml, ./configs/salesagent.yaml,
// ~/.config/salesagent/salesagent.yaml, /etc/salesagent/salesagent.yaml
func LoadWithDefaults() (*Config, error) {
	locations := []string{
		"./salesagent.yaml",
		"./configs/salesagent.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "salesagent", "salesagent.yaml"))
	}

	locations = append(locations, "/etc/salesagent/salesagent.yaml")

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config file is fine; the environment alone can drive everything
	cfg := Default()
	cfg.applyEnv()
	return cfg, nil
}

// expand resolves ${VAR} references in string settings
func (c *Config) expand() {
	c.Agent.Project = ExpandEnv(c.Agent.Project)
	c.Agent.Location = ExpandEnv(c.Agent.Location)
	c.Agent.ResourceName = ExpandEnv(c.Agent.ResourceName)
	c.Agent.Endpoint = ExpandEnv(c.Agent.Endpoint)
	c.Model.APIKey = ExpandEnv(c.Model.APIKey)
	c.Model.BaseURL = ExpandEnv(c.Model.BaseURL)
	c.Terminal.HistoryFile = ExpandEnv(c.Terminal.HistoryFile)
}

// applyEnv lets the well-known environment variables win over the file
func (c *Config) applyEnv() {
	setFromEnv(&c.Agent.Project, "GOOGLE_CLOUD_PROJECT")
	setFromEnv(&c.Agent.Location, "GOOGLE_CLOUD_LOCATION")
	setFromEnv(&c.Agent.ResourceName, "AGENT_RESOURCE_NAME")
	setFromEnv(&c.Log.Level, "SALESAGENT_LOG_LEVEL")

	switch c.Model.Backend {
	case BackendGemini:
		setFromEnv(&c.Model.APIKey, "GEMINI_API_KEY")
	case BackendOpenAI:
		setFromEnv(&c.Model.APIKey, "OPENAI_API_KEY")
		setFromEnv(&c.Model.BaseURL, "OPENAI_API_BASE_URL")
	}

	if v, ok := os.LookupEnv("NO_COLOR"); ok && v != "" {
		c.Log.NoColor = true
	}
	if v := os.Getenv("SALESAGENT_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Agent.QueryTimeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			c.Agent.QueryTimeout = time.Duration(secs) * time.Second
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks config correctness. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("%w: agent: %v", ErrConfiguration, err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: model: %v", ErrConfiguration, err)
	}
	if c.Model.Backend == BackendVertex && c.Agent.Project == "" {
		return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT is not set (required by the vertex model backend)", ErrConfiguration)
	}
	return nil
}

// Validate checks the agent runtime settings
func (a *AgentConfig) Validate() error {
	switch a.Runtime {
	case RuntimeRemote:
		if a.Project == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is not set")
		}
		if !resourceNamePattern.MatchString(a.ResourceName) {
			return fmt.Errorf("resource name '%s' must look like projects/*/locations/*/reasoningEngines/*", a.ResourceName)
		}
	case RuntimeLocal:
	default:
		return fmt.Errorf("unsupported runtime: %s (only 'remote' and 'local' are supported)", a.Runtime)
	}

	if a.Location == "" {
		return fmt.Errorf("location is required")
	}
	if a.QueryTimeout < 0 {
		return fmt.Errorf("query_timeout cannot be negative")
	}
	if a.TerminalUser == "" || a.WebUser == "" {
		return fmt.Errorf("user ids cannot be empty")
	}
	return nil
}

// Validate checks the model backend settings
func (m *ModelConfig) Validate() error {
	switch m.Backend {
	case BackendVertex:
	case BackendGemini:
		if m.APIKey == "" {
			return fmt.Errorf("gemini backend requires an API key (set GEMINI_API_KEY)")
		}
	case BackendOpenAI:
		if m.APIKey == "" {
			return fmt.Errorf("openai backend requires an API key (set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", m.Backend)
	}

	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative")
	}
	return nil
}
