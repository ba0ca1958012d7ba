package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultPath returns the location of the user's configuration file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultDirName, ConfigurationName)
	}
	return filepath.Join(home, DefaultDirName, ConfigurationName)
}

// Load loads the configuration from the directory, or from the named
// config.yaml file.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}

	out.configFs = fsys
	out.configDir = path
	return &out, nil
}

// LoadOrDefault loads the configuration at path, falling back to the built in
// defaults if it doesn't exist.
func LoadOrDefault(fsys afero.Fs, path string) (*Configuration, error) {
	cfg, err := Load(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = defaultConfig()
		cfg.configFs = fsys
		return cfg, nil
	}
	return cfg, err
}

// Initialize writes the default configuration to dir if none exists and
// loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	return initialize(afero.NewOsFs(), dir, logger)
}

func initialize(fsys afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := fsys.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch exists, err := afero.Exists(fsys, configPath); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("Keeping existing configuration: %s", configPath)
	default:
		logger.Printf("Writing default configuration: %s", configPath)
		if err := afero.WriteFile(fsys, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return Load(fsys, dir)
}
