// Package config defines and loads the workbench configuration.
package config

import (
	"fmt"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

const (
	// DefaultAddr is the listen address used when the server block does
	// not set one.
	DefaultAddr = "127.0.0.1:1781"
)

// Config is the top-level configuration for the workbench server.
type Config struct {
	// Server configures the HTTP listener.
	Server *Server `hcl:"server,block"`

	// Workspace configures the directory tree being served.
	Workspace *Workspace `hcl:"workspace,block"`

	// Guest configures the anonymous account. When the block is absent
	// the guest account is enabled with an empty pattern set, so every
	// file is visible to it.
	Guest *Guest `hcl:"guest,block"`

	// Users are the named accounts allowed to authenticate.
	Users []*User `hcl:"user,block"`
}

// Server configures the HTTP(S) listener.
type Server struct {
	// Addr is the listen address, host:port.
	Addr string `hcl:"addr,optional"`

	// SSL enables TLS when present.
	SSL *SSL `hcl:"ssl,block"`
}

// SSL holds the TLS material for the listener.
type SSL struct {
	// CertFile and KeyFile are the server certificate and key in PEM
	// format.
	CertFile string `hcl:"cert_file"`
	KeyFile  string `hcl:"key_file"`

	// CAFile, when set, is the CA bundle used to verify client
	// certificates.
	CAFile string `hcl:"ca_file,optional"`

	// RejectUnauthorized requires clients to present a certificate
	// signed by CAFile.
	RejectUnauthorized bool `hcl:"reject_unauthorized,optional"`
}

// Workspace configures the served directory tree.
type Workspace struct {
	// Root is the directory exposed over the API. Everything outside it
	// is unreachable.
	Root string `hcl:"root"`

	// WithDot exposes dotted directories and files when true.
	WithDot bool `hcl:"with_dot,optional"`
}

// Guest configures the anonymous account used when a request carries no
// credentials.
type Guest struct {
	// Enabled turns the guest account off entirely when set to false;
	// requests without credentials are then rejected.
	Enabled *bool `hcl:"enabled,optional"`

	// Files and Exclude are visibility glob patterns, matched against
	// workspace-relative paths.
	Files   []string `hcl:"files,optional"`
	Exclude []string `hcl:"exclude,optional"`
}

// IsEnabled reports whether the guest account is active. An absent
// enabled attribute means enabled.
func (g *Guest) IsEnabled() bool {
	if g == nil {
		return true
	}
	return g.Enabled == nil || *g.Enabled
}

// User is one named account.
type User struct {
	// Name is the account name, taken from the block label.
	Name string `hcl:"name,label"`

	// Password is a plaintext password. Intended for development setups
	// only; PasswordHash wins when both are set.
	Password string `hcl:"password,optional"`

	// PasswordHash is a bcrypt hash of the password.
	PasswordHash string `hcl:"password_hash,optional"`

	// Files and Exclude are visibility glob patterns, matched against
	// workspace-relative paths.
	Files   []string `hcl:"files,optional"`
	Exclude []string `hcl:"exclude,optional"`
}

// Load parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// The workspace root is compared against resolved absolute paths at
	// request time, so it has to be absolute itself.
	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("error resolving workspace root: %w", err)
	}
	cfg.Workspace.Root = root

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

// Validate checks the configuration for errors. All problems are
// reported at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workspace, validation.Required),
	); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Workspace != nil {
		if err := validation.ValidateStruct(c.Workspace,
			validation.Field(&c.Workspace.Root, validation.Required),
		); err != nil {
			result = multierror.Append(
				result, fmt.Errorf("workspace: %w", err))
		}
	}

	if c.Server != nil && c.Server.SSL != nil {
		ssl := c.Server.SSL
		if err := validation.ValidateStruct(ssl,
			validation.Field(&ssl.CertFile, validation.Required),
			validation.Field(&ssl.KeyFile, validation.Required),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("ssl: %w", err))
		}
		if ssl.RejectUnauthorized && ssl.CAFile == "" {
			result = multierror.Append(result, fmt.Errorf(
				"ssl: reject_unauthorized requires ca_file"))
		}
	}

	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if err := validation.ValidateStruct(u,
			validation.Field(&u.Name, validation.Required),
		); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if seen[u.Name] {
			result = multierror.Append(result, fmt.Errorf(
				"user %q: duplicate account name", u.Name))
		}
		seen[u.Name] = true
		if u.Password == "" && u.PasswordHash == "" {
			result = multierror.Append(result, fmt.Errorf(
				"user %q: password or password_hash is required", u.Name))
		}
	}

	return result.ErrorOrNil()
}
