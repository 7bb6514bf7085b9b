// Package config reads server configuration from environment variables,
// the way the teacher's services are configured (12-factor style, no
// config file parser) — CLI flag parsing itself lives in cmd/ per
// spec.md §1 (out of scope here).
package config

import (
	"os"
	"strconv"
)

// Server holds factotumd's runtime configuration.
type Server struct {
	Addr            string
	MaxJobs         int
	MaxWorkers      int
	KVStorePath     string
	WebhookURI      string
	NoColour        bool
	FactotumBinPath string
	InstanceID      string
	Namespace       string
	Version         string
}

// FromEnv reads Server configuration, applying the same defaults named in
// spec.md §4.6 when a variable is unset.
func FromEnv() Server {
	return Server{
		Addr:            getString("FACTOTUM_ADDR", ":8080"),
		MaxJobs:         getInt("FACTOTUM_MAX_JOBS", 1000),
		MaxWorkers:      getInt("FACTOTUM_MAX_WORKERS", 20),
		KVStorePath:     getString("FACTOTUM_KV_PATH", "factotum.db"),
		WebhookURI:      os.Getenv("FACTOTUM_WEBHOOK_URI"),
		NoColour:        getBool("FACTOTUM_NO_COLOUR", false),
		FactotumBinPath: os.Getenv("FACTOTUM_BIN_PATH"),
		InstanceID:      getString("FACTOTUM_INSTANCE_ID", defaultInstanceID()),
		Namespace:       getString("FACTOTUM_NAMESPACE", "factotum"),
		Version:         getString("FACTOTUM_VERSION", "dev"),
	}
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "factotum-server"
	}
	return host
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
