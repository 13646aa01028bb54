// Package config loads the engine's TOML configuration with viper,
// mirroring the CLI's original initConf: defaults are set first, then
// overridden by whatever the config file and environment provide.
package config

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a tiler run.
type Config struct {
	App    App
	Render Render
	Output Output
	Log    Log
}

type App struct {
	Version string
	Title   string
}

// Render holds the base renderer's tuning knobs (spec §4.4).
type Render struct {
	BufferRatio    float64
	MaxOffsetRatio float64
	MaxDepth       int
	APIVersion     string // "2" or "3", spec §6 IIIF Image API version
	Backend        string // "cpu" or "gpu"
}

type Output struct {
	Format    string // "png" or "mbtiles-debug"
	Directory string
}

type Log struct {
	Level string
}

// Load reads cfgFile (TOML) with viper, applying spec-consistent
// defaults for anything unset, matching the teacher's initConf.
func Load(cfgFile string) (*Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		log.Warnf("config file (%s) not found, using defaults", cfgFile)
	}
	viper.SetConfigType("toml")
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv()

	viper.SetDefault("app.version", "v0.1.0")
	viper.SetDefault("app.title", "Georeferenced Tiler")
	viper.SetDefault("render.bufferratio", 0.25)
	viper.SetDefault("render.maxoffsetratio", 0.01)
	viper.SetDefault("render.maxdepth", 6)
	viper.SetDefault("render.apiversion", "3")
	viper.SetDefault("render.backend", "cpu")
	viper.SetDefault("output.format", "png")
	viper.SetDefault("output.directory", "output")
	viper.SetDefault("log.level", "debug")

	if err := viper.ReadInConfig(); err != nil {
		log.Warnf("read config file (%s) failed, details: %s", viper.ConfigFileUsed(), err)
	}

	return &Config{
		App: App{
			Version: viper.GetString("app.version"),
			Title:   viper.GetString("app.title"),
		},
		Render: Render{
			BufferRatio:    viper.GetFloat64("render.bufferratio"),
			MaxOffsetRatio: viper.GetFloat64("render.maxoffsetratio"),
			MaxDepth:       viper.GetInt("render.maxdepth"),
			APIVersion:     viper.GetString("render.apiversion"),
			Backend:        viper.GetString("render.backend"),
		},
		Output: Output{
			Format:    viper.GetString("output.format"),
			Directory: viper.GetString("output.directory"),
		},
		Log: Log{
			Level: viper.GetString("log.level"),
		},
	}, nil
}
