// Package config loads parkprofile settings and initializes logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration.
type Config struct {
	Profile ProfileConfig `yaml:"profile" mapstructure:"profile"`
	Layers  LayersConfig  `yaml:"layers" mapstructure:"layers"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ProfileConfig tunes the profile assembler.
type ProfileConfig struct {
	DatasetsStoragePath string    `yaml:"datasets_storage_path" mapstructure:"datasets_storage_path"`
	BufferVillages      []float64 `yaml:"buffer_villages" mapstructure:"buffer_villages"`
	MinDist             float64   `yaml:"min_dist" mapstructure:"min_dist"`
	DistanceMode        string    `yaml:"distance_mode" mapstructure:"distance_mode"`
	Workers             int       `yaml:"workers" mapstructure:"workers"`
	CountryStrategy     string    `yaml:"country_strategy" mapstructure:"country_strategy"`
	IDField             string    `yaml:"id_field" mapstructure:"id_field"`
	ParkNameField       string    `yaml:"park_name_field" mapstructure:"park_name_field"`
	OtherSpeciesField   string    `yaml:"other_species_field" mapstructure:"other_species_field"`
	Encoding            string    `yaml:"encoding" mapstructure:"encoding"`
}

// LayerConfig locates one raster layer and its legend.
type LayerConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Legend     string `yaml:"legend" mapstructure:"legend"`
	LegendItem string `yaml:"legend_item" mapstructure:"legend_item"`
}

// LayersConfig lists the raster layers. Layers with an empty path are
// skipped.
type LayersConfig struct {
	Population LayerConfig `yaml:"population" mapstructure:"population"`
	Landuse    LayerConfig `yaml:"landuse" mapstructure:"landuse"`
	NDVI       LayerConfig `yaml:"ndvi" mapstructure:"ndvi"`
	SWI        LayerConfig `yaml:"swi" mapstructure:"swi"`
	GWS        LayerConfig `yaml:"gws" mapstructure:"gws"`
	Prevalence LayerConfig `yaml:"prevalence" mapstructure:"prevalence"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads .env, config.yaml and PARKPROFILE_* environment variables,
// in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARKPROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("profile.datasets_storage_path", "./datasets")
	v.SetDefault("profile.buffer_villages", []float64{500, 2000})
	v.SetDefault("profile.min_dist", 1e15)
	v.SetDefault("profile.distance_mode", "centroid")
	v.SetDefault("profile.workers", 4)
	v.SetDefault("profile.country_strategy", "duplicate")
	v.SetDefault("profile.id_field", "Full_Name")
	v.SetDefault("profile.park_name_field", "NAME")
	v.SetDefault("profile.other_species_field", "Other Anop")
	v.SetDefault("profile.encoding", "windows-1252")
	v.SetDefault("layers.population.path", "population.tif")
	v.SetDefault("layers.landuse.path", "landuse.tif")
	v.SetDefault("layers.landuse.legend_item", "item")
	v.SetDefault("layers.ndvi.path", "ndvi.tif")
	v.SetDefault("layers.swi.path", "swi.tif")
	v.SetDefault("layers.gws.path", "gws.tif")
	v.SetDefault("layers.gws.legend_item", "paletteEntry")
	v.SetDefault("layers.prevalence.path", "prevalence.tif")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "parkprofile.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings needed by a command mode: villages,
// countries, runs or serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	switch mode {
	case "villages", "countries":
		errs = append(errs, c.validateProfile(mode)...)
	case "runs":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateProfile(mode string) []string {
	var errs []string
	p := c.Profile

	if p.Workers < 0 || p.Workers > 64 {
		errs = append(errs, "profile.workers must be between 0 and 64")
	}
	if p.MinDist <= 0 {
		errs = append(errs, "profile.min_dist must be > 0")
	}

	if mode == "villages" {
		if len(p.BufferVillages) == 0 {
			errs = append(errs, "profile.buffer_villages must not be empty")
		}
		for _, r := range p.BufferVillages {
			if r <= 0 {
				errs = append(errs, "profile.buffer_villages values must be > 0")
				break
			}
		}
		switch p.DistanceMode {
		case "", "centroid", "geometry":
		default:
			errs = append(errs, "profile.distance_mode must be centroid or geometry")
		}
	}

	if mode == "countries" {
		switch p.CountryStrategy {
		case "", "duplicate", "append":
		default:
			errs = append(errs, "profile.country_strategy must be duplicate or append")
		}
		if c.Layers.Landuse.Path == "" {
			errs = append(errs, "layers.landuse.path is required")
		}
	}
	return errs
}

// Resolve returns p joined to the datasets directory when it is relative.
// Empty paths stay empty.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Profile.DatasetsStoragePath, p)
}

// LegendPath returns the legend file of a layer: the configured legend, or
// the raster path with a .qml extension.
func (c *Config) LegendPath(l LayerConfig) string {
	if l.Legend != "" {
		return c.Resolve(l.Legend)
	}
	if l.Path == "" {
		return ""
	}
	p := c.Resolve(l.Path)
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".qml"
}

func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
