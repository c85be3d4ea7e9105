// Package config provides common configuration loading and management utilities for DWN components.
// This package includes standard environment variable loading, validation, and
// configuration patterns used across the DWN node.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig provides utilities for loading configuration from environment variables
type EnvConfig struct {
	prefix string // Optional prefix for all environment variables
}

// NewEnvConfig creates a new environment configuration loader
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{
		prefix: prefix,
	}
}

// GetString retrieves a string value from environment with optional default
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// MustGetString retrieves a required string value from environment or panics
func (ec *EnvConfig) MustGetString(key string) string {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s not set", fullKey))
	}
	return value
}

// GetInt retrieves an integer value from environment with optional default
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// MustGetInt retrieves a required integer value from environment or panics
func (ec *EnvConfig) MustGetInt(key string) int {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s not set", fullKey))
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not a valid integer: %v", fullKey, err))
	}
	return intValue
}

// GetBool retrieves a boolean value from environment with optional default
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value from environment with optional default
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStringSlice retrieves a comma-separated string slice from environment
func (ec *EnvConfig) GetStringSlice(key string, defaultValue []string) []string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// buildKey builds the full environment variable key with optional prefix
func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// DidResolverConfig names one DID method resolver to register with the node.
//
// Method is "key" or "ion"; Endpoint is only consulted for "ion" and holds
// the base URL of the resolution service (GET <endpoint>/<did>).
type DidResolverConfig struct {
	Method   string
	Endpoint string
}

// Options mirrors the configuration table in SPEC_FULL.md §6: the values a
// Dwn node needs at construction time. There is no global/ambient config —
// callers build an Options value and pass it to dwn.New explicitly.
type Options struct {
	DidResolvers            []DidResolverConfig
	DidCacheTTL             time.Duration
	DidCacheMaxEntries      int
	DataSizeInlineThreshold int64
	MessageStoreLocation    string
	EventLogLocation        string
	// DataStoreLocation is the directory the external DataStore (C7's
	// collaborator for payloads over DataSizeInlineThreshold) persists
	// to. Not part of spec.md's own configuration table, since the data
	// store is named there only as a pluggable external interface; this
	// is the directory the default filesystem-backed implementation uses.
	DataStoreLocation string
	LogLevel          string
	LogFormat         string
}

// DefaultOptions returns the documented defaults from SPEC_FULL.md §6:
// did:key and did:ion resolvers, a 600s/100000-entry DID cache, and a 64KiB
// inline-data threshold.
func DefaultOptions() Options {
	return Options{
		DidResolvers: []DidResolverConfig{
			{Method: "key"},
			{Method: "ion", Endpoint: "https://ion.tbddev.org/identifiers"},
		},
		DidCacheTTL:             600 * time.Second,
		DidCacheMaxEntries:      100_000,
		DataSizeInlineThreshold: 64 * 1024,
		MessageStoreLocation:    "dwn-messages.db",
		EventLogLocation:        "dwn-events.db",
		DataStoreLocation:       "dwn-data",
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// FromEnv loads Options from environment variables under the given prefix,
// falling back to DefaultOptions for anything unset. Intended for the
// optional cmd/dwnserver entry point; the library itself never reads the
// environment on its own.
func FromEnv(prefix string) Options {
	env := NewEnvConfig(prefix)
	defaults := DefaultOptions()

	opts := Options{
		DidResolvers:            defaults.DidResolvers,
		DidCacheTTL:             env.GetDuration("DID_CACHE_TTL", defaults.DidCacheTTL),
		DidCacheMaxEntries:      env.GetInt("DID_CACHE_MAX_ENTRIES", defaults.DidCacheMaxEntries),
		DataSizeInlineThreshold: int64(env.GetInt("DATA_SIZE_INLINE_THRESHOLD", int(defaults.DataSizeInlineThreshold))),
		MessageStoreLocation:    env.GetString("MESSAGE_STORE_LOCATION", defaults.MessageStoreLocation),
		EventLogLocation:        env.GetString("EVENT_LOG_LOCATION", defaults.EventLogLocation),
		DataStoreLocation:       env.GetString("DATA_STORE_LOCATION", defaults.DataStoreLocation),
		LogLevel:                env.GetString("LOG_LEVEL", defaults.LogLevel),
		LogFormat:               env.GetString("LOG_FORMAT", defaults.LogFormat),
	}

	if ionEndpoint := env.GetString("ION_ENDPOINT", ""); ionEndpoint != "" {
		for i := range opts.DidResolvers {
			if opts.DidResolvers[i].Method == "ion" {
				opts.DidResolvers[i].Endpoint = ionEndpoint
			}
		}
	}

	return opts
}

// Validate runs basic sanity checks over an Options value.
func (o Options) Validate() error {
	v := NewValidator()
	v.RequirePositiveInt("DidCacheMaxEntries", o.DidCacheMaxEntries)
	if o.DataSizeInlineThreshold <= 0 {
		v.errors = append(v.errors, "DataSizeInlineThreshold must be positive")
	}
	v.RequireString("MessageStoreLocation", o.MessageStoreLocation)
	v.RequireString("EventLogLocation", o.EventLogLocation)
	v.RequireString("DataStoreLocation", o.DataStoreLocation)
	v.RequireOneOf("LogLevel", o.LogLevel, []string{"debug", "info", "warn", "error", "fatal"})
	v.RequireOneOf("LogFormat", o.LogFormat, []string{"text", "json"})
	return v.Validate()
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]string, 0),
	}
}

// RequireString validates that a string field is not empty
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequireInt validates that an integer field is within range
func (v *Validator) RequireInt(field string, value, min, max int) {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
}

// RequirePositiveInt validates that an integer field is positive
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireURL validates that a string is a valid URL
func (v *Validator) RequireURL(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		v.errors = append(v.errors, fmt.Sprintf("%s must be a valid URL (http:// or https://)", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []string {
	return v.errors
}

// ErrorString returns all validation errors as a single string
func (v *Validator) ErrorString() string {
	if len(v.errors) == 0 {
		return ""
	}
	return strings.Join(v.errors, "; ")
}

// Validate runs validation and returns error if invalid
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

