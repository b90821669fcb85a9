package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// setters maps the keys accepted by Set to their field updates. Storage
// settings are absent: switching backends needs a data migration, not an
// edit.
var setters = map[string]func(c *Config, v string) error{
	"profile.name": func(c *Config, v string) error {
		c.Profile.Name = v
		return nil
	},
	"profile.currency": func(c *Config, v string) error {
		c.Profile.Currency = strings.ToUpper(v)
		return nil
	},
	"profile.date_format": func(c *Config, v string) error {
		c.Profile.DateFormat = v
		return nil
	},
	"installments.date_policy": func(c *Config, v string) error {
		c.Installments.DatePolicy = v
		return nil
	},
	"log.level": func(c *Config, v string) error {
		if _, err := zerolog.ParseLevel(v); err != nil {
			return err
		}
		c.Log.Level = v
		return nil
	},
	"log.format": func(c *Config, v string) error {
		if v != "console" && v != "json" {
			return fmt.Errorf("want console or json, got %q", v)
		}
		c.Log.Format = v
		return nil
	},
	"audit.enabled": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Audit.Enabled = b
		return err
	},
	"versioning.git": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Versioning.Git = b
		return err
	},
	"versioning.email": func(c *Config, v string) error {
		c.Versioning.Email = v
		return nil
	},
}

// Keys returns the keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set updates one dotted key and re-validates. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key %q (one of %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := set(&next, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
