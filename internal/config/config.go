// Package config loads the engine's typed Config from (in increasing
// precedence) compiled-in defaults, a YAML config file on viper's search
// path, and APDB_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ap-survey/apdb/internal/apdberr"
)

// Config is the full recognized configuration surface from spec.md §6.
type Config struct {
	Backend string `mapstructure:"backend"`

	ContactPoints []string `mapstructure:"contact_points"`
	PrivateIPs    []string `mapstructure:"private_ips"`
	PublicIPs     []string `mapstructure:"public_ips"`
	Keyspace      string   `mapstructure:"keyspace"`
	Prefix        string   `mapstructure:"prefix"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`

	ReadConsistency  string        `mapstructure:"read_consistency"`
	WriteConsistency string        `mapstructure:"write_consistency"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	ReadConcurrency  int           `mapstructure:"read_concurrency"`

	PartPixelization string `mapstructure:"part_pixelization"`
	PartPixLevel     int    `mapstructure:"part_pix_level"`
	PartPixMaxRanges int    `mapstructure:"part_pix_max_ranges"`
	RaDecColumns     []string `mapstructure:"ra_dec_columns"`

	TimePartitionTables bool   `mapstructure:"time_partition_tables"`
	TimePartitionDays   int    `mapstructure:"time_partition_days"`
	TimePartitionStart  string `mapstructure:"time_partition_start"`
	TimePartitionEnd    string `mapstructure:"time_partition_end"`

	QueryPerTimePart    bool `mapstructure:"query_per_time_part"`
	QueryPerSpatialPart bool `mapstructure:"query_per_spatial_part"`
	PandasDelayConv     bool `mapstructure:"pandas_delay_conv"`
	PreparedStatements  bool `mapstructure:"prepared_statements"`

	ReadSourcesMonths       int `mapstructure:"read_sources_months"`
	ReadForcedSourcesMonths int `mapstructure:"read_forced_sources_months"`

	SchemaFile      string `mapstructure:"schema_file"`
	ExtraSchemaFile string `mapstructure:"extra_schema_file"`

	Timer bool `mapstructure:"timer"`

	// EventLogFile, if set, receives pipe-delimited ingest/read events
	// from internal/obsv.Logger.Event; empty disables event logging.
	EventLogFile string `mapstructure:"event_log_file"`

	// SQL backend only.
	SQLDataSourceName string `mapstructure:"sql_dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "cassandra")
	v.SetDefault("contact_points", []string{"127.0.0.1"})
	v.SetDefault("keyspace", "apdb")
	v.SetDefault("prefix", "")

	v.SetDefault("read_consistency", "QUORUM")
	v.SetDefault("write_consistency", "QUORUM")
	v.SetDefault("read_timeout", "5s")
	v.SetDefault("write_timeout", "10s")
	v.SetDefault("read_concurrency", 50)

	v.SetDefault("part_pixelization", "mq3c")
	v.SetDefault("part_pix_level", 10)
	v.SetDefault("part_pix_max_ranges", 64)
	v.SetDefault("ra_dec_columns", []string{"ra", "decl"})

	v.SetDefault("time_partition_tables", true)
	v.SetDefault("time_partition_days", 30)
	v.SetDefault("time_partition_start", "2018-12-01T00:00:00")
	v.SetDefault("time_partition_end", "2030-01-01T00:00:00")

	v.SetDefault("query_per_time_part", false)
	v.SetDefault("query_per_spatial_part", false)
	v.SetDefault("pandas_delay_conv", true)
	v.SetDefault("prepared_statements", true)

	v.SetDefault("read_sources_months", 12)
	v.SetDefault("read_forced_sources_months", 12)

	v.SetDefault("schema_file", "")
	v.SetDefault("extra_schema_file", "")
	v.SetDefault("timer", false)
	v.SetDefault("event_log_file", "")

	v.SetDefault("sql_dsn", "")
}

// Load builds a Config from compiled defaults, an optional named config
// file (searched on viper's usual paths if configFile is empty), and
// APDB_-prefixed environment variables.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("apdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/apdb")
		v.AddConfigPath("/etc/apdb")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, apdberr.NewConfigError("config.Load", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apdberr.NewConfigError("config.Load", err)
	}
	return &cfg, nil
}

// WatchSchemaFile watches cfg.SchemaFile for changes and invokes onChange
// whenever it is written. This never hot-reloads the loaded Catalog
// (time_partition_days and the pixelization scheme are immutable after
// makeSchema); it only surfaces drift to the caller via onChange. No
// command in this module starts a watcher.
func WatchSchemaFile(path string, onChange func(event fsnotify.Event)) (*fsnotify.Watcher, error) {
	if path == "" {
		return nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apdberr.WrapDriverError("config.WatchSchemaFile", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, apdberr.WrapDriverError("config.WatchSchemaFile", err)
	}
	go func() {
		for event := range watcher.Events {
			onChange(event)
		}
	}()
	return watcher, nil
}
