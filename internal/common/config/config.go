package config

import (
	"fmt"
	"time"
)

type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Routing      RoutingConfig           `mapstructure:"routing"`
	Memory       MemoryConfig            `mapstructure:"memory"`
	Audit        AuditConfig             `mapstructure:"audit"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Metrics      MetricsConfig           `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// PostgresConfig backs the agent performance store. Empty Host disables it.
type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Enabled() bool { return p.Host != "" }

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig backs the analysis audit sink. No addresses disables it.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	Index     string   `mapstructure:"index"`
}

func (e ElasticsearchConfig) Enabled() bool { return e.GetURL() != "" }

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig backs personalization snapshots. Empty Address disables them.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	MinIdle  int    `mapstructure:"min_idle"`
}

func (r RedisConfig) Enabled() bool { return r.Address != "" }

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// RoutingConfig holds the hand-tuned scoring constants and registry source.
type RoutingConfig struct {
	ProfilesPath       string         `mapstructure:"profiles_path"`
	DefaultSessionType string         `mapstructure:"default_session_type"`
	PerformanceWindow  int            `mapstructure:"performance_window"`
	Weights            ScoringWeights `mapstructure:"weights"`
	Selection          SelectionRules `mapstructure:"selection"`
}

type ScoringWeights struct {
	Keyword             float64 `mapstructure:"keyword"`
	Framework           float64 `mapstructure:"framework"`
	SuccessRate         float64 `mapstructure:"success_rate"`
	Confidence          float64 `mapstructure:"confidence"`
	CriticalSpeedBonus  float64 `mapstructure:"critical_speed_bonus"`
	FastResponseSeconds float64 `mapstructure:"fast_response_seconds"`
}

type SelectionRules struct {
	SecondaryThreshold float64 `mapstructure:"secondary_threshold"`
	MaxSecondary       int     `mapstructure:"max_secondary"`
	PrimaryDivisor     float64 `mapstructure:"primary_divisor"`
	PrimaryCap         float64 `mapstructure:"primary_cap"`
	SecondaryDivisor   float64 `mapstructure:"secondary_divisor"`
	SecondaryCap       float64 `mapstructure:"secondary_cap"`
}

type MemoryConfig struct {
	MaxHistory              int  `mapstructure:"max_history"`
	MaxRecentTopics         int  `mapstructure:"max_recent_topics"`
	MaxPastRecommendations  int  `mapstructure:"max_past_recommendations"`
	OngoingProjectThreshold int  `mapstructure:"ongoing_project_threshold"`
	ContextWindow           int  `mapstructure:"context_window"`
	SnapshotEnabled         bool `mapstructure:"snapshot_enabled"`
	SnapshotTTL             int  `mapstructure:"snapshot_ttl"` // seconds, 0 keeps forever
}

func (m MemoryConfig) GetSnapshotTTL() time.Duration {
	return time.Duration(m.SnapshotTTL) * time.Second
}

type AuditConfig struct {
	LogSize    int `mapstructure:"log_size"`
	SinkBuffer int `mapstructure:"sink_buffer"`
}

type IntegrationConfig struct {
	Agents AgentServiceConfig `mapstructure:"agents"`
	AWS    struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// AgentServiceConfig points at the downstream service that runs specialists.
// Empty BaseURL disables consultations.
type AgentServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

func (a AgentServiceConfig) Enabled() bool { return a.BaseURL != "" }

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
