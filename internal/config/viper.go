// Package config reads CLI settings shared by commands.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// GetList returns a list setting. Config files may hold a YAML sequence;
// environment variables hold a comma separated string.
func GetList(key string) []string {
	var values []string
	if raw := viper.GetStringSlice(key); len(raw) > 0 {
		values = raw
	} else if s := GetString(key); s != "" {
		values = []string{s}
	}

	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
