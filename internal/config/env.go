package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FELICA"

// Resolve finds the configuration file, loads it and applies environment
// overrides. explicit, when set, is used as-is; otherwise ./config.yaml and
// then $HOME/.felica/config.yaml are tried. With no file the defaults are
// used. The returned path is "" when no file was read.
func Resolve(explicit string) (*MainConfig, string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := discover(v, explicit)
	if err != nil {
		return nil, "", err
	}

	config := Default()
	if path != "" {
		if err := decodeFile(path, config); err != nil {
			return nil, path, err
		}
	}

	applyEnv(v, config)
	applyMainConfigDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, path, nil
}

func discover(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".felica"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// applyEnv copies FELICA_* variables that are set over config.
func applyEnv(v *viper.Viper, c *MainConfig) {
	strs := map[string]*string{
		"input_dir":          &c.InputDir,
		"output_dir":         &c.OutputDir,
		"input_archive_dir":  &c.InputArchiveDir,
		"log_dir":            &c.LogDir,
		"stations_file":      &c.StationsFile,
		"output_format":      &c.OutputFormat,
		"output_name_format": &c.OutputNameFormat,
		"log_level":          &c.LogLevel,
		"server.address":     &c.Server.Address,
		"archive.mongo_uri":  &c.Archive.MongoURI,
		"archive.database":   &c.Archive.Database,
		"archive.collection": &c.Archive.Collection,
		"upload.bucket":      &c.Upload.Bucket,
		"upload.prefix":      &c.Upload.Prefix,
	}
	for key, dst := range strs {
		if envSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"history_count":   &c.HistoryCount,
		"max_concurrency": &c.MaxConcurrency,
	}
	for key, dst := range ints {
		if envSet(key) {
			*dst = v.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"keep_undated":      &c.KeepUndated,
		"continue_on_error": &c.ContinueOnError,
	}
	for key, dst := range bools {
		if envSet(key) {
			*dst = v.GetBool(key)
		}
	}
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvName(key))
	return ok
}
