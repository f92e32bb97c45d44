package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	App    App    `yaml:"app"`
	Server Server `yaml:"server"`
}

type App struct {
	Title            string   `yaml:"title"`
	FragmentCacheTTL Duration `yaml:"fragmentCacheTTL"`
	CSRFTokenTTL     Duration `yaml:"csrfTokenTTL"`
}

// Duration parses "5m" style strings from yaml.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Server struct {
	Addr          string `yaml:"addr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.App.FragmentCacheTTL == 0 {
		config.App.FragmentCacheTTL = Duration(5 * time.Minute)
	}
	if config.App.CSRFTokenTTL == 0 {
		config.App.CSRFTokenTTL = Duration(12 * time.Hour)
	}

	// env wins over file, so one image serves every environment
	if dsn := os.Getenv("STITCH_POSTGRES_DSN"); dsn != "" {
		config.Server.PostgresDsn = dsn
	}
	if addr := os.Getenv("STITCH_REDIS_ADDR"); addr != "" {
		config.Server.RedisAddr = addr
	}
	if addr := os.Getenv("STITCH_MEMCACHED_ADDR"); addr != "" {
		config.Server.MemcachedAddr = addr
	}

	return config, nil
}
