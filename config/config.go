package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  int    `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Namespace prefixes every tag frame written to a track.
	Namespace          string `yaml:"namespace"`
	MaxConcurrentTasks int    `yaml:"max_concurrent_tasks"`

	TagStore  TagStoreConfig  `yaml:"tag_store"`
	Mixxx     MixxxConfig     `yaml:"mixxx"`
	Rekordbox RekordboxConfig `yaml:"rekordbox"`
	Library   LibraryConfig   `yaml:"library"`
	Server    ServerConfig    `yaml:"server"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type TagStoreConfig struct {
	// Type of tag store: "id3", "sidecar", "gcs", "postgres" or "memory"
	Type string `yaml:"type"`

	// Sidecar options
	SidecarDir string `yaml:"sidecar_dir"`

	GCS      GCSConfig      `yaml:"gcs"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

type MixxxConfig struct {
	DBPath string `yaml:"db_path"`
}

type RekordboxConfig struct {
	XMLPath string `yaml:"xml_path"`

	// ProbeLengths reads the length of tracks added to the collection with
	// ffprobe.
	ProbeLengths bool   `yaml:"probe_lengths"`
	FFProbePath  string `yaml:"ffprobe_path"`
}

type LibraryConfig struct {
	Extensions []string `yaml:"extensions"`
}

const (
	TagStoreID3      = "id3"
	TagStoreSidecar  = "sidecar"
	TagStoreGCS      = "gcs"
	TagStorePostgres = "postgres"
	TagStoreMemory   = "memory"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	config.applyEnv()
	return config
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	if c.Namespace == "" {
		c.Namespace = "UDLF:"
	}

	if c.MaxConcurrentTasks <= 0 {
		c.MaxConcurrentTasks = 4
	}

	if c.TagStore.Type == "" {
		c.TagStore.Type = TagStoreID3
	}

	if c.Mixxx.DBPath == "" {
		c.Mixxx.DBPath = defaultMixxxDB()
	}

	if len(c.Library.Extensions) == 0 {
		c.Library.Extensions = []string{"mp3"}
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}

func (c *Config) applyEnv() {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.TagStore.Postgres.DatabaseURL = url
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
}

// Validate checks the options the selected tag store needs.
func (c *Config) Validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	switch c.TagStore.Type {
	case TagStoreID3, TagStoreSidecar, TagStoreMemory:
	case TagStoreGCS:
		if c.TagStore.GCS.Bucket == "" {
			return errors.New("tag_store.gcs.bucket is required for the gcs tag store")
		}
	case TagStorePostgres:
		if c.TagStore.Postgres.DatabaseURL == "" {
			return errors.New("tag_store.postgres.database_url or DATABASE_URL is required for the postgres tag store")
		}
	default:
		return fmt.Errorf("unknown tag store type %q", c.TagStore.Type)
	}
	return nil
}

func defaultMixxxDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mixxxdb.sqlite"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Containers", "org.mixxx.mixxx", "Data",
			"Library", "Application Support", "Mixxx", "mixxxdb.sqlite")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "Mixxx", "mixxxdb.sqlite")
		}
		return filepath.Join(home, "AppData", "Local", "Mixxx", "mixxxdb.sqlite")
	default:
		return filepath.Join(home, ".mixxx", "mixxxdb.sqlite")
	}
}
