package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var errNoConfigFile = fmt.Errorf("no config file loaded")

type Config struct {
	// where the index files are stored (relative to cwd supported)
	StoragePath string `validate:"path_exists" yaml:"storage_path"`
	// soft cap on the in-memory postings estimate during a build (MiB);
	// the lexicon is retained across spills and may exceed it
	MemoryLimitMb int `yaml:"memory_limit_mb"`
	// address the HTTP API listens on
	ListenAddr string `validate:"required" yaml:"listen_addr"`
}

// Validate is the final check after all overrides are done (file load, command arguments substituted)
func (cfg Config) Validate() error {
	translateError := func(e validator.FieldError) string {
		switch e.ActualTag() {
		case "path_exists":
			return fmt.Sprintf("path \"%v\" does not exist", e.Value())
		case "required":
			return "value is empty"
		default:
			return fmt.Sprintf("invalid value (%s)", e.Tag())
		}
	}

	cfgValidate := validator.New()

	err := cfgValidate.RegisterValidation(
		"path_exists", func(fl validator.FieldLevel) bool {
			path := fl.Field().String()
			if !filepath.IsAbs(path) {
				cwd, _ := os.Getwd()
				path = filepath.Join(cwd, path)
			}
			_, err := os.Stat(path)
			return err == nil
		},
	)
	if err != nil {
		return err
	}

	err = cfgValidate.Struct(cfg)
	if err != nil {
		message := "Invalid config values:\n"
		for _, err := range err.(validator.ValidationErrors) {
			message += fmt.Sprintf("> %v: %s\n", err.StructField(), translateError(err))
		}
		return errors.New(message)
	}

	if cfg.MemoryLimitMb < 0 {
		return errors.New("memory limit cannot be negative")
	}

	return nil
}

var DefaultCfg = Config{
	StoragePath:   "./",
	MemoryLimitMb: 800,
	ListenAddr:    ":8222",
}

func LoadConfig() (cfg Config, err error) {

	cfg = DefaultCfg

	viper.AddConfigPath(".")
	viper.SetConfigName("tarsearch")

	err = viper.ReadInConfig()
	if err == nil {
		err = viper.Unmarshal(
			&cfg, func(dc *mapstructure.DecoderConfig) {
				dc.TagName = "yaml"
			},
		)
		if err != nil {
			err = fmt.Errorf("unable to decode into config struct: %w", err)
		}
	} else {
		// Check config read errors
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err = errNoConfigFile
			return
		} else {
			err = fmt.Errorf("unable to use config file: %s", err)
			return
		}
	}

	if cfg.MemoryLimitMb == 0 {
		cfg.MemoryLimitMb = DefaultCfg.MemoryLimitMb
	}

	return cfg, cfg.Validate()
}
