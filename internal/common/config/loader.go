// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and
// lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile reads a single explicit config file.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "expert-router"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "query-analyses"
	}

	applyRoutingDefaults(&cfg.Routing)
	applyMemoryDefaults(&cfg.Memory)

	if cfg.Audit.LogSize == 0 {
		cfg.Audit.LogSize = 1000
	}
	if cfg.Audit.SinkBuffer == 0 {
		cfg.Audit.SinkBuffer = 256
	}

	if cfg.Integrations.Agents.Timeout == 0 {
		cfg.Integrations.Agents.Timeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	if r.DefaultSessionType == "" {
		r.DefaultSessionType = "advisory"
	}
	if r.PerformanceWindow == 0 {
		r.PerformanceWindow = 50
	}

	w := &r.Weights
	if w.Keyword == 0 {
		w.Keyword = 20
	}
	if w.Framework == 0 {
		w.Framework = 15
	}
	if w.SuccessRate == 0 {
		w.SuccessRate = 10
	}
	if w.Confidence == 0 {
		w.Confidence = 10
	}
	if w.CriticalSpeedBonus == 0 {
		w.CriticalSpeedBonus = 10
	}
	if w.FastResponseSeconds == 0 {
		w.FastResponseSeconds = 2
	}

	s := &r.Selection
	if s.SecondaryThreshold == 0 {
		s.SecondaryThreshold = 30
	}
	if s.MaxSecondary == 0 {
		s.MaxSecondary = 3
	}
	if s.PrimaryDivisor == 0 {
		s.PrimaryDivisor = 100
	}
	if s.PrimaryCap == 0 {
		s.PrimaryCap = 0.95
	}
	if s.SecondaryDivisor == 0 {
		s.SecondaryDivisor = 120
	}
	if s.SecondaryCap == 0 {
		s.SecondaryCap = 0.85
	}
}

func applyMemoryDefaults(m *MemoryConfig) {
	if m.MaxHistory == 0 {
		m.MaxHistory = 50
	}
	if m.MaxRecentTopics == 0 {
		m.MaxRecentTopics = 10
	}
	if m.MaxPastRecommendations == 0 {
		m.MaxPastRecommendations = 20
	}
	if m.OngoingProjectThreshold == 0 {
		m.OngoingProjectThreshold = 3
	}
	if m.ContextWindow == 0 {
		m.ContextWindow = 10
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Enabled() {
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when host is set")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required when host is set")
		}
	}

	if cfg.Memory.SnapshotEnabled && !cfg.Database.Redis.Enabled() {
		return fmt.Errorf("database.redis.address is required when memory.snapshot_enabled is true")
	}

	if cfg.Integrations.AWS.SNS.Enabled {
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required when sns is enabled")
		}
		if cfg.Integrations.AWS.SNS.TopicARN == "" {
			return fmt.Errorf("integrations.aws.sns.topic_arn is required when sns is enabled")
		}
	}

	sel := cfg.Routing.Selection
	if sel.PrimaryCap > 0.95 || sel.SecondaryCap > sel.PrimaryCap {
		return fmt.Errorf("routing.selection caps must satisfy secondary_cap <= primary_cap <= 0.95")
	}
	if sel.MaxSecondary < 0 || sel.MaxSecondary > 3 {
		return fmt.Errorf("routing.selection.max_secondary must be between 0 and 3")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
