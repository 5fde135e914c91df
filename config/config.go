// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates configuration for the application.
// Each field is owned by its respective concern.
type Config struct {
	Split      SplitConfig      `mapstructure:"split"`
	Membership MembershipConfig `mapstructure:"membership"`
}

// SplitConfig carries defaults for split runs. Command-line flags override
// these values.
type SplitConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	InputFormat  string `mapstructure:"input_format"`
	OutputFormat string `mapstructure:"output_format"`
	KeyColumn    int    `mapstructure:"key_column"`
}

// MembershipConfig selects and tunes the group membership source.
type MembershipConfig struct {
	// File is a path to a YAML membership file. Used when URL is empty.
	File string `mapstructure:"file"`

	// URL is the base URL of a membership service. Takes precedence over File.
	URL string `mapstructure:"url"`

	// CacheEnabled wraps the resolver in a TTL cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`

	// CacheTTL bounds how long cached lookups stay valid.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		OutputDir:    "output",
		InputFormat:  "csv",
		OutputFormat: "csv",
		KeyColumn:    1,
	}
}

func DefaultMembershipConfig() MembershipConfig {
	return MembershipConfig{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "GROUPSPLIT" and the dot character
// in keys is replaced by an underscore. For example, "split.output_dir"
// becomes "GROUPSPLIT_SPLIT_OUTPUT_DIR".
func Load() (*Config, error) {
	cfg := &Config{
		Split:      DefaultSplitConfig(),
		Membership: DefaultMembershipConfig(),
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("GROUPSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
