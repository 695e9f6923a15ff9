// Package config centralizes runtime configuration for lockup. Settings come
// from environment variables (the way the hardhat tooling this replaces was
// driven), with an optional YAML file that overrides the RPC endpoint and
// chain id of each network. Missing required settings are reported as
// *Error before any work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"xnet.company/lockup/internal/types"
)

// Config holds the options read from the environment.
type Config struct {
	Network      string `env:"NETWORK"`
	EscrowAddr   string `env:"ESCROWADDR"`
	PrivateKey   string `env:"PRIVATE_KEY"`
	KeyFile      string `env:"KEY_FILE"`
	PolygonURL   string `env:"POLYGON_API_URL"`
	MumbaiURL    string `env:"MUMBAI_API_URL"`
	GoerliURL    string `env:"GOERLI_API_URL"`
	LocalhostURL string `env:"LOCALHOST_API_URL" envDefault:"http://127.0.0.1:8545"`
	ArtifactsDir string `env:"ARTIFACTS_DIR"     envDefault:"artifacts/contracts"`
	DataDir      string `env:"LOCKUP_DATA_DIR"   envDefault:"."`
	HistoryDB    string `env:"LOCKUP_HISTORY_DB" envDefault:"lockup-history.db"`
	Checkpoint   bool   `env:"LOCKUP_CHECKPOINT"`
	Verbose      bool   `env:"LOCKUP_VERBOSE"`
	NoColor      bool   `env:"LOCKUP_NO_COLOR"`
	TokenAddr    string `env:"XNET_TOKEN_ADDR"`
	StakeAddr    string `env:"EPOCHSTAKE_ADDR"`
	NetworksFile string `env:"LOCKUP_CONFIG"`

	networks map[string]Network
}

// Network is an RPC endpoint the tool can deploy to.
type Network struct {
	Name    string `yaml:"-"`
	URL     string `yaml:"url"`
	ChainID int64  `yaml:"chain_id"`
}

type networksFile struct {
	Networks map[string]Network `yaml:"networks"`
}

// Error is a configuration problem: a missing environment variable, an
// unknown network, or a missing input file.
type Error struct {
	Key    string // environment variable or file path
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.Network = strings.ToLower(strings.TrimSpace(c.Network))

	c.networks = c.defaultNetworks()
	if c.NetworksFile != "" {
		if err := c.loadNetworks(c.NetworksFile); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// defaultNetworks returns the built-in network table, with RPC URLs taken
// from the *_API_URL variables.
func (c *Config) defaultNetworks() map[string]Network {
	return map[string]Network{
		"polygon":   {Name: "polygon", URL: c.PolygonURL, ChainID: 137},
		"mumbai":    {Name: "mumbai", URL: c.MumbaiURL, ChainID: 80001},
		"goerli":    {Name: "goerli", URL: c.GoerliURL, ChainID: 5},
		"localhost": {Name: "localhost", URL: c.LocalhostURL, ChainID: 31337},
	}
}

func (c *Config) loadNetworks(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &Error{Key: path, Reason: "cannot read network table", Err: err}
	}
	var f networksFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return &Error{Key: path, Reason: "invalid network table", Err: err}
	}

	// merge defaults for any zero-value fields
	for name, n := range f.Networks {
		name = strings.ToLower(name)
		def := c.networks[name]
		n.Name = name
		if n.URL == "" {
			n.URL = def.URL
		}
		if n.ChainID == 0 {
			n.ChainID = def.ChainID
		}
		c.networks[name] = n
	}
	return nil
}

// RequireNetwork returns the lower-cased NETWORK value.
func (c *Config) RequireNetwork() (string, error) {
	if c.Network == "" {
		return "", &Error{Key: "NETWORK", Reason: "not set"}
	}
	return c.Network, nil
}

// RequireEscrow returns ESCROWADDR, the agent for escrow-variant wallets.
func (c *Config) RequireEscrow() (string, error) {
	if c.EscrowAddr == "" {
		return "", &Error{Key: "ESCROWADDR", Reason: "not set"}
	}
	return c.EscrowAddr, nil
}

// Endpoint resolves the RPC endpoint for a network.
func (c *Config) Endpoint(name string) (Network, error) {
	n, ok := c.networks[strings.ToLower(name)]
	if !ok {
		return Network{}, &Error{Key: "NETWORK", Reason: fmt.Sprintf("unknown network %q (known: %s)", name, strings.Join(c.NetworkNames(), ", "))}
	}
	if n.URL == "" {
		return Network{}, &Error{Key: strings.ToUpper(n.Name) + "_API_URL", Reason: "not set"}
	}
	return n, nil
}

// NetworkNames lists the configured networks in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.networks))
	for name := range c.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Files are the per-network paths used by one ledger variant.
type Files struct {
	Candidates string
	Deployed   string
	Report     string
}

// Files returns the candidate list, deployed ledger and new-deploys report
// paths for network and variant.
func (c *Config) Files(network string, v types.Variant) Files {
	network = strings.ToLower(network)
	prefix := string(v)
	report := fmt.Sprintf("new-deploys.%s.txt", network)
	if v.Escrow() {
		report = fmt.Sprintf("%s-new-deploys.%s.txt", prefix, network)
	}
	return Files{
		Candidates: c.path(fmt.Sprintf("%s-beneficiaries.%s.json", prefix, network)),
		Deployed:   c.path(fmt.Sprintf("%s-deployed.%s.json", prefix, network)),
		Report:     c.path(report),
	}
}

// TokenAddressFile is where deploy-token records the XNET address.
func (c *Config) TokenAddressFile() string {
	return c.path("xnet.address.txt")
}

// HistoryPath is the SQLite deployment journal.
func (c *Config) HistoryPath() string {
	if filepath.IsAbs(c.HistoryDB) {
		return c.HistoryDB
	}
	return c.path(c.HistoryDB)
}

func (c *Config) path(name string) string {
	if c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// IsError reports whether err is a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
