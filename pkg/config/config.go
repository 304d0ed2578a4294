package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel               string `mapstructure:"log-level"`
	PGHost                 string `mapstructure:"postgres-host"`
	PGPort                 int    `mapstructure:"postgres-port"`
	PGDatabase             string `mapstructure:"postgres-dbname"`
	PGUser                 string `mapstructure:"postgres-user"`
	PGPassword             string `mapstructure:"postgres-password"`
	PGSSLMode              string `mapstructure:"postgres-sslmode"`
	StorePGHost            string `mapstructure:"store-pg-host"`
	StorePGPort            int    `mapstructure:"store-pg-port"`
	StorePGDatabase        string `mapstructure:"store-pg-dbname"`
	StorePGUser            string `mapstructure:"store-pg-user"`
	StorePGPassword        string `mapstructure:"store-pg-password"`
	StorePGSSLMode         string `mapstructure:"store-pg-sslmode"`
	OpenAIAPIKey           string `mapstructure:"openai-api-key"`
	LLMBaseURL             string `mapstructure:"llm-base-url"`
	LLMChatModel           string `mapstructure:"llm-chat-model"`
	LLMEmbeddingModel      string `mapstructure:"llm-embedding-model"`
	LLMEmbeddingDimensions int64  `mapstructure:"llm-embedding-dimensions"`
	DDLDir                 string `mapstructure:"ddl-dir"`
	RetrievalLimit         int    `mapstructure:"retrieval-limit"`
	MaxPromptTokens        int    `mapstructure:"max-prompt-tokens"`
	AllowLLMToSeeData      bool   `mapstructure:"allow-llm-to-see-data"`
	ListenAddr             string `mapstructure:"listen-addr"`
}

// RegisterFlags declares every configuration key on fs. Required keys have no default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.String("postgres-host", "", "SEAD PostgreSQL host")
	fs.Int("postgres-port", 0, "SEAD PostgreSQL port")
	fs.String("postgres-dbname", "", "SEAD PostgreSQL database name")
	fs.String("postgres-user", "", "SEAD PostgreSQL username")
	fs.String("postgres-password", "", "SEAD PostgreSQL password")
	fs.String("postgres-sslmode", "disable", "SEAD PostgreSQL SSL mode")

	fs.String("store-pg-host", "", "Training store PostgreSQL host (defaults to the SEAD host)")
	fs.Int("store-pg-port", 0, "Training store PostgreSQL port (defaults to the SEAD port)")
	fs.String("store-pg-dbname", "", "Training store PostgreSQL database name (defaults to the SEAD database)")
	fs.String("store-pg-user", "", "Training store PostgreSQL username (defaults to the SEAD user)")
	fs.String("store-pg-password", "", "Training store PostgreSQL password (defaults to the SEAD password)")
	fs.String("store-pg-sslmode", "", "Training store PostgreSQL SSL mode (defaults to the SEAD SSL mode)")

	fs.String("openai-api-key", "", "OpenAI API key")
	fs.String("llm-base-url", "", "Base URL for LLM API")
	fs.String("llm-chat-model", "", "Chat model for LLM")
	fs.String("llm-embedding-model", "text-embedding-ada-002", "Embedding model for LLM")
	fs.Int64("llm-embedding-dimensions", 1536, "Embedding dimensions for LLM")

	fs.String("ddl-dir", "training/ddl", "Directory holding the SEAD DDL files")
	fs.Int("retrieval-limit", 10, "Number of similar training records added to a prompt per kind")
	fs.Int("max-prompt-tokens", 14000, "Approximate token budget of a generated prompt")
	fs.Bool("allow-llm-to-see-data", false, "Run intermediate SQL and show its result to the LLM")
	fs.String("listen-addr", ":8084", "Web front-end listen address")
}

// Load binds fs and the process environment and returns the validated configuration.
// Environment variables use the flag name upper-cased with dashes replaced by underscores.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("unable to bind pflags: %v", err)
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %v", err)
	}
	cfg.applyStoreDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyStoreDefaults() {
	if c.StorePGHost == "" {
		c.StorePGHost = c.PGHost
	}
	if c.StorePGPort == 0 {
		c.StorePGPort = c.PGPort
	}
	if c.StorePGDatabase == "" {
		c.StorePGDatabase = c.PGDatabase
	}
	if c.StorePGUser == "" {
		c.StorePGUser = c.PGUser
	}
	if c.StorePGPassword == "" {
		c.StorePGPassword = c.PGPassword
	}
	if c.StorePGSSLMode == "" {
		c.StorePGSSLMode = c.PGSSLMode
	}
}

// Validate reports every missing required key in a single error.
func (c *Config) Validate() error {
	var missing []string
	check := func(key string, empty bool) {
		if empty {
			missing = append(missing, strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
		}
	}
	check("postgres-host", c.PGHost == "")
	check("postgres-dbname", c.PGDatabase == "")
	check("postgres-user", c.PGUser == "")
	check("postgres-password", c.PGPassword == "")
	check("postgres-port", c.PGPort == 0)
	check("openai-api-key", c.OpenAIAPIKey == "")
	check("llm-chat-model", c.LLMChatModel == "")
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.LLMEmbeddingDimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", c.LLMEmbeddingDimensions)
	}
	return nil
}

// DSN returns the lib/pq connection string of the SEAD database.
func (c *Config) DSN() string {
	return dsn(c.PGHost, c.PGPort, c.PGDatabase, c.PGUser, c.PGPassword, c.PGSSLMode)
}

// StoreDSN returns the lib/pq connection string of the training store database.
func (c *Config) StoreDSN() string {
	return dsn(c.StorePGHost, c.StorePGPort, c.StorePGDatabase, c.StorePGUser, c.StorePGPassword, c.StorePGSSLMode)
}

func dsn(host string, port int, database, user, password, sslmode string) string {
	return fmt.Sprintf("host='%s' port='%d' dbname='%s' user='%s' password='%s' sslmode='%s'",
		quote(host), port, quote(database), quote(user), quote(password), quote(sslmode))
}

func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
