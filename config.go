package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pinmap/internal/annotate"
	"pinmap/internal/sheets"
)

type Config struct {
	SaveDirectory string          `mapstructure:"save_directory"`
	Confirmations bool            `mapstructure:"confirmations"`
	Map           MapConfig       `mapstructure:"map"`
	Sheets        SheetsConfig    `mapstructure:"sheets"`
	History       HistoryConfig   `mapstructure:"history"`
	Clipboard     ClipboardConfig `mapstructure:"clipboard"`
	Log           LogConfig       `mapstructure:"log"`
	Metrics       MetricsConfig   `mapstructure:"metrics"`
}

type MapConfig struct {
	CenterLat float64 `mapstructure:"center_lat"`
	CenterLng float64 `mapstructure:"center_lng"`
	Zoom      float64 `mapstructure:"zoom"`
}

type SheetsConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	MemberSheet        string        `mapstructure:"member_sheet"`
	ColorSpreadsheetID string        `mapstructure:"color_spreadsheet_id"`
	ColorSheet         string        `mapstructure:"color_sheet"`
	CSVFile            string        `mapstructure:"csv_file"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// Source is the spreadsheet pair pins are fetched from.
func (s SheetsConfig) Source() sheets.Source {
	return sheets.Source{
		SpreadsheetID:      s.SpreadsheetID,
		MemberSheet:        s.MemberSheet,
		ColorSpreadsheetID: s.ColorSpreadsheetID,
		ColorSheet:         s.ColorSheet,
	}
}

type HistoryConfig struct {
	UndoMode string `mapstructure:"undo_mode"`
}

type ClipboardConfig struct {
	AutoCopy  bool   `mapstructure:"auto_copy"`
	Delimiter string `mapstructure:"delimiter"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("save_directory", "")
	v.SetDefault("confirmations", true)
	v.SetDefault("map.center_lat", 43.0646)
	v.SetDefault("map.center_lng", 141.3468)
	v.SetDefault("map.zoom", 15)
	v.SetDefault("sheets.api_key", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.member_sheet", "")
	v.SetDefault("sheets.color_spreadsheet_id", "")
	v.SetDefault("sheets.color_sheet", "")
	v.SetDefault("sheets.csv_file", "")
	v.SetDefault("sheets.timeout", sheets.DefaultTimeout)
	v.SetDefault("history.undo_mode", annotate.UndoPerPolygon.String())
	v.SetDefault("clipboard.auto_copy", true)
	v.SetDefault("clipboard.delimiter", annotate.DefaultDelimiter)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// loadConfig resolves configuration from defaults, an optional pinmap.yaml,
// .env, PINMAP_* environment variables and command line flags, in rising
// order of precedence.
func loadConfig(args []string) (*Config, error) {
	_ = godotenv.Load(".env")

	fs := pflag.NewFlagSet("pinmap", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a config file")
	fs.String("csv", "", "load pins from a CSV export instead of Google Sheets")
	fs.String("undo-mode", "", "per-polygon or global")
	fs.String("log-file", "", "write logs to this file")
	fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("pinmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pinmap"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// PINMAP_SHEETS_API_KEY -> sheets.api_key
	v.SetEnvPrefix("PINMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"sheets.csv_file":   "csv",
		"history.undo_mode": "undo-mode",
		"log.file":          "log-file",
		"log.level":         "log-level",
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SaveDirectory = expandHome(cfg.SaveDirectory)
	cfg.Sheets.CSVFile = expandHome(cfg.Sheets.CSVFile)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("map.center_lat must be -90..90, got %g", c.Map.CenterLat))
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		errs = append(errs, fmt.Sprintf("map.center_lng must be -180..180, got %g", c.Map.CenterLng))
	}
	if c.Map.Zoom < minZoom || c.Map.Zoom > maxZoom {
		errs = append(errs, fmt.Sprintf("map.zoom must be %g..%g, got %g", minZoom, maxZoom, c.Map.Zoom))
	}
	if _, err := annotate.ParseUndoMode(c.History.UndoMode); err != nil {
		errs = append(errs, fmt.Sprintf("history.undo_mode: %v", err))
	}
	if c.Clipboard.Delimiter == "" {
		errs = append(errs, "clipboard.delimiter must not be empty")
	}
	if c.Sheets.SpreadsheetID != "" && c.Sheets.MemberSheet == "" {
		errs = append(errs, "sheets.member_sheet is required with sheets.spreadsheet_id")
	}
	if c.Sheets.Timeout <= 0 {
		errs = append(errs, "sheets.timeout must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// UndoMode is the parsed history.undo_mode. Validate has already run.
func (c *Config) UndoMode() annotate.UndoMode {
	m, _ := annotate.ParseUndoMode(c.History.UndoMode)
	return m
}

// GetSavePath places filename in the save directory, creating it first.
func (c *Config) GetSavePath(filename string) (string, error) {
	if c.SaveDirectory == "" {
		return filename, nil
	}
	if err := os.MkdirAll(c.SaveDirectory, 0755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}
	return filepath.Join(c.SaveDirectory, filename), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
