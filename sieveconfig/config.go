// Package sieveconfig loads connection profiles for the ManageSieve client
// from TOML, the way the teacher loads its server configuration
// (github.com/BurntSushi/toml, decoded over a struct pre-populated with
// defaults) trimmed down to what a client needs: no database, storage, or
// per-protocol server blocks, just enough to dial and authenticate.
package sieveconfig

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Profile is one named ManageSieve server connection, as loaded from a
// [[profiles]] table in the config file.
type Profile struct {
	Name     string `toml:"name"`
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// Mechanism selects a SASL mechanism by name (PLAIN, LOGIN, DIGEST-MD5,
	// OAUTHBEARER). Empty means "pick the strongest mechanism the server
	// advertises", mirroring managesieve.Client.Authenticate's fallback.
	Mechanism string `toml:"mechanism"`

	TLS           bool   `toml:"tls"`
	StartTLS      bool   `toml:"starttls"`
	TLSSkipVerify bool   `toml:"tls_skip_verify"`
	TLSCertFile   string `toml:"tls_cert_file"`
	TLSKeyFile    string `toml:"tls_key_file"`

	DialTimeoutSeconds int `toml:"dial_timeout_seconds"`
	CommandTimeoutSeconds int `toml:"command_timeout_seconds"`

	LogLevel string `toml:"log_level"`
}

// DialTimeout returns the configured dial timeout, defaulting to 10s.
func (p Profile) DialTimeout() time.Duration {
	if p.DialTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.DialTimeoutSeconds) * time.Second
}

// CommandTimeout returns the configured per-command timeout, defaulting to 30s.
func (p Profile) CommandTimeout() time.Duration {
	if p.CommandTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.CommandTimeoutSeconds) * time.Second
}

// File is the top-level shape of a sieveadm config file: a default profile
// name plus a list of named profiles, matching the teacher's
// flat-table-plus-slice-of-tables TOML layout (config.go's Servers struct).
type File struct {
	DefaultProfile string    `toml:"default_profile"`
	Profiles       []Profile `toml:"profiles"`
}

// LoadFile decodes path into a File, propagating toml.DecodeFile's error
// unchanged so callers can use os.IsNotExist on it.
func LoadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Profile looks up a profile by name, or the configured default profile
// when name is empty. Returns an error naming the profile if not found.
func (f *File) Profile(name string) (Profile, error) {
	if name == "" {
		name = f.DefaultProfile
	}
	for _, p := range f.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	if name == "" {
		return Profile{}, fmt.Errorf("sieveconfig: no profile specified and no default_profile configured")
	}
	return Profile{}, fmt.Errorf("sieveconfig: no such profile %q", name)
}
