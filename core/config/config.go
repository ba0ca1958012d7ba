package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	DefaultDirName    = ".grsh"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	Prompt       string `json:"prompt" validate:"required"`
	HistoryFile  string `json:"history_file"`
	HistoryLimit int    `json:"history_limit" validate:"gte=-1"`
	RCFile       string `json:"rc_file"`

	Aliases map[string]string `json:"aliases" validate:"dive,keys,required,excludesall=0x7C<>&,endkeys,required"`

	StructuredSinks []StructuredSink `json:"structured_sinks" validate:"unique=Suffix,dive"`
}

// StructuredSink routes output redirected to a file with Suffix through a
// chain of filter commands.
type StructuredSink struct {
	Suffix  string     `json:"suffix" validate:"required,startswith=."`
	Filters [][]string `json:"filters" validate:"required,min=1,dive,min=1,dive,required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// Dir returns the directory the configuration was loaded from, empty for the
// built in defaults.
func (c *Configuration) Dir() string {
	return c.configDir
}

// ResolvePath expands a leading ~/ to the user's home directory and makes
// relative paths relative to the configuration directory.
func (c *Configuration) ResolvePath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	case filepath.IsAbs(path) || c.configDir == "":
		return path
	default:
		return filepath.Join(c.configDir, path)
	}
}

// HistoryPath returns the resolved history file, empty if history isn't
// saved.
func (c *Configuration) HistoryPath() string {
	if c.HistoryLimit < 0 {
		return ""
	}
	return c.ResolvePath(c.HistoryFile)
}

// ReadRCFile returns the contents of the startup file. A missing file reads
// as empty.
func (c *Configuration) ReadRCFile() ([]byte, error) {
	path := c.ResolvePath(c.RCFile)
	if path == "" {
		return nil, nil
	}

	data, err := afero.ReadFile(c.fs(), path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Default returns the built in configuration.
func Default() *Configuration {
	return defaultConfig()
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
