// Package config loads the CLI's connection settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/sqlbuilder/runtime/client"
)

// AppFs is the filesystem configuration and statement files are read from
var AppFs = afero.NewOsFs()

const (
	// EnvPrefix prefixes every environment variable the CLI reads
	EnvPrefix = "SQLBUILDER"
	// FileName is the config file name looked up without an extension
	FileName = ".sqlbuilder"
)

// keys lists every setting that can come from the environment
var keys = []string{
	"driver", "host", "port", "username", "password", "database", "dsn",
	"max_open_conns", "max_idle_conns", "conn_max_lifetime", "stmt_cache_size", "strict",
	"log.enabled", "log.level", "log.format", "log.args",
}

// Load reads the connection settings. Precedence, highest first:
// environment variables, .env.local, .env, the config file, defaults.
// cfgFile may start with ~. When empty, .sqlbuilder.yaml is looked up in the
// working directory, the home directory and ~/.config/sqlbuilder.
func Load(cfgFile string) (*client.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if err := v.BindEnv("dsn", EnvPrefix+"_DSN", "DATABASE_URL"); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "sqlbuilder"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := client.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := client.DefaultConfig()
	v.SetDefault("driver", d.Driver)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("username", d.Username)
	v.SetDefault("params", d.Params)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("log.enabled", d.Log.Enabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadDotEnv exports .env without overriding the environment, then
// .env.local overriding it
func loadDotEnv() error {
	for _, f := range []struct {
		name     string
		override bool
	}{
		{".env", false},
		{".env.local", true},
	} {
		data, err := afero.ReadFile(AppFs, f.name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		vars, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set && !f.override {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes cfg to ~/.config/sqlbuilder/.sqlbuilder.yaml. The password is
// never written.
func Save(cfg *client.Config) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.Set("driver", cfg.Driver)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("username", cfg.Username)
	v.Set("database", cfg.Database)
	v.Set("params", cfg.Params)
	v.Set("strict", cfg.Strict)
	if cfg.StmtCacheSize != 0 {
		v.Set("stmt_cache_size", cfg.StmtCacheSize)
	}
	v.Set("log", map[string]any{
		"enabled": cfg.Log.Enabled,
		"level":   cfg.Log.Level,
		"format":  cfg.Log.Format,
		"args":    cfg.Log.Args,
	})

	dir := filepath.Join(home, ".config", "sqlbuilder")
	if err := AppFs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName+".yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return "", err
	}
	return path, nil
}
