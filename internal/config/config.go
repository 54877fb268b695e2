package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/recbridge/internal/backend"
	"github.com/spf13/viper"
)

// DefaultBLRECKey matches the default API key shipped by BLREC itself.
const DefaultBLRECKey = "bili2233"

// Config is the parsed configuration file. The viper state is retained so
// instance mutations can be written back without losing keys this version
// does not know about.
type Config struct {
	path string
	v    *viper.Viper

	Server  ServerConfig
	Log     LogConfig
	Auth    AuthConfig
	Metrics MetricsConfig

	// Instances is the resolved instance list across both vendor sections,
	// with global credential defaults already applied.
	Instances []backend.Instance
}

type ServerConfig struct {
	Listen        string     `mapstructure:"listen"`
	BasePath      string     `mapstructure:"base_path"`
	WebUI         string     `mapstructure:"webui"`
	TLS           *TLSConfig `mapstructure:"tls"`
	TLSMinVersion string     `mapstructure:"tls_min_version"`
	TLSMaxVersion string     `mapstructure:"tls_max_version"`
}

type TLSConfig struct {
	Enabled      bool        `mapstructure:"enabled"`
	CertFile     string      `mapstructure:"cert_file"`
	KeyFile      string      `mapstructure:"key_file"`
	Dir          string      `mapstructure:"dir"`
	AutoGenerate bool        `mapstructure:"auto_generate"`
	AutoGen      *AutoGenTLS `mapstructure:"auto_gen"`
}

type AutoGenTLS struct {
	CommonName   string   `mapstructure:"common_name"`
	Organization string   `mapstructure:"organization"`
	DNSNames     []string `mapstructure:"dns_names"`
	IPAddresses  []string `mapstructure:"ip_addresses"`
	ValidDays    int      `mapstructure:"valid_days"`
}

type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	Enable        bool         `mapstructure:"enable"`
	Secret        string       `mapstructure:"secret"`
	ExpireMinutes int          `mapstructure:"expire_minutes"`
	Users         []UserConfig `mapstructure:"users"`
}

type UserConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// fileConfig mirrors the on-disk YAML layout: instances grouped per vendor
// with vendor-level credential defaults.
type fileConfig struct {
	Server  ServerConfig   `mapstructure:"server"`
	Log     LogConfig      `mapstructure:"log"`
	Auth    AuthConfig     `mapstructure:"auth"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Recheme rechemeSection `mapstructure:"recheme"`
	BLREC   blrecSection   `mapstructure:"blrec"`
}

type rechemeSection struct {
	Basic     bool              `mapstructure:"basic"`
	User      string            `mapstructure:"user"`
	Pass      string            `mapstructure:"pass"`
	Instances []rechemeInstance `mapstructure:"instances"`
}

type rechemeInstance struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Manage *bool  `mapstructure:"manage"`
	Basic  *bool  `mapstructure:"basic"`
	User   string `mapstructure:"user"`
	Pass   string `mapstructure:"pass"`
}

type blrecSection struct {
	Key       string          `mapstructure:"key"`
	Instances []blrecInstance `mapstructure:"instances"`
}

type blrecInstance struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Manage *bool  `mapstructure:"manage"`
	Key    string `mapstructure:"key"`
}

// Load reads and resolves the YAML configuration file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		path:    path,
		v:       v,
		Server:  fc.Server,
		Log:     fc.Log,
		Auth:    fc.Auth,
		Metrics: fc.Metrics,
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":11111"
	}
	if cfg.Auth.ExpireMinutes <= 0 {
		cfg.Auth.ExpireMinutes = 60 * 24
	}

	blrecKey := fc.BLREC.Key
	if blrecKey == "" {
		blrecKey = DefaultBLRECKey
	}

	for _, ri := range fc.Recheme.Instances {
		inst := backend.Instance{
			Name:    ri.Name,
			Vendor:  backend.VendorRecheme,
			BaseURL: ri.URL,
			Manage:  boolOr(ri.Manage, true),
		}
		if boolOr(ri.Basic, fc.Recheme.Basic) {
			inst.Username = stringOr(ri.User, fc.Recheme.User)
			inst.Password = stringOr(ri.Pass, fc.Recheme.Pass)
		}
		cfg.Instances = append(cfg.Instances, inst)
	}
	for _, bi := range fc.BLREC.Instances {
		cfg.Instances = append(cfg.Instances, backend.Instance{
			Name:    bi.Name,
			Vendor:  backend.VendorBLREC,
			BaseURL: bi.URL,
			Manage:  boolOr(bi.Manage, true),
			APIKey:  stringOr(bi.Key, blrecKey),
		})
	}
	return cfg, nil
}

// SaveInstances rewrites only the per-vendor instance lists and persists
// the file. All other keys, including ones this version does not model,
// round-trip through the retained viper state. The write is atomic: a
// temporary file is renamed over the original.
func (c *Config) SaveInstances(instances []backend.Instance) error {
	var recheme, blrec []map[string]any
	for _, inst := range instances {
		switch inst.Vendor {
		case backend.VendorRecheme:
			entry := map[string]any{
				"name":   inst.Name,
				"url":    inst.BaseURL,
				"manage": inst.Manage,
			}
			if inst.Username != "" || inst.Password != "" {
				entry["basic"] = true
				entry["user"] = inst.Username
				entry["pass"] = inst.Password
			}
			recheme = append(recheme, entry)
		case backend.VendorBLREC:
			blrec = append(blrec, map[string]any{
				"name":   inst.Name,
				"url":    inst.BaseURL,
				"manage": inst.Manage,
				"key":    inst.APIKey,
			})
		}
	}
	c.v.Set("recheme.instances", recheme)
	c.v.Set("blrec.instances", blrec)

	tmp := c.path + ".tmp.yaml"
	if err := c.v.WriteConfigAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	c.Instances = append([]backend.Instance(nil), instances...)
	return nil
}

// Path returns the configuration file location.
func (c *Config) Path() string { return filepath.Clean(c.path) }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
