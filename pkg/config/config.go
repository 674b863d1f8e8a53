// Package config provides a reusable loader for emt-core's genesis
// configuration: the Token's initial balances and governance principal,
// Governance's owner/operator key sets and call thresholds, and the
// Allowlist's seed directory. It mirrors the Synnergy teacher's
// pkg/config/config.go viper-based Load/LoadFromEnv contract.
//
// Version: v0.1.0
package config

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/viper"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/allowlist"
	"github.com/synnergy-labs/emt-core/internal/governance"
	"github.com/synnergy-labs/emt-core/internal/token"
	"github.com/synnergy-labs/emt-core/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// GenesisAccount is one hex-encoded (public key, balance) entry of the
// Token's initial account set.
type GenesisAccount struct {
	PublicKey string `mapstructure:"public_key" json:"public_key"`
	Balance   uint64 `mapstructure:"balance" json:"balance"`
}

// OperatorCall is one hex-free (name, threshold) entry of Governance's
// initial operator_token_calls table.
type OperatorCall struct {
	Name      string `mapstructure:"name" json:"name"`
	Threshold uint8  `mapstructure:"threshold" json:"threshold"`
}

// AllowlistEntry is one hex-encoded (address, role) entry of the
// Allowlist's seed directory.
type AllowlistEntry struct {
	Address string `mapstructure:"address" json:"address"`
	Role    string `mapstructure:"role" json:"role"`
}

// Config is the unified genesis configuration for an emt-core
// deployment. It mirrors the structure of the YAML files under config/.
type Config struct {
	Token struct {
		Governance      string           `mapstructure:"governance" json:"governance"`
		GenesisAccounts []GenesisAccount `mapstructure:"genesis_accounts" json:"genesis_accounts"`
	} `mapstructure:"token" json:"token"`

	Governance struct {
		Owners             []string       `mapstructure:"owners" json:"owners"`
		Operators          []string       `mapstructure:"operators" json:"operators"`
		OperatorTokenCalls []OperatorCall `mapstructure:"operator_token_calls" json:"operator_token_calls"`
	} `mapstructure:"governance" json:"governance"`

	Allowlist struct {
		Ownership string           `mapstructure:"ownership" json:"ownership"`
		Entries   []AllowlistEntry `mapstructure:"entries" json:"entries"`
	} `mapstructure:"allowlist" json:"allowlist"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the EMT_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("EMT_ENV", ""))
}

func decodeFixed(s string, size int) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(raw))
	}
	return raw, nil
}

func decodePublicKey(s string) (account.PublicKey, error) {
	raw, err := decodeFixed(s, account.PublicKeySize)
	if err != nil {
		return account.PublicKey{}, err
	}
	var pk account.PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// ExternalAccount decodes a hex-encoded public key into an
// External account.
func ExternalAccount(s string) (account.Account, error) {
	pk, err := decodePublicKey(s)
	if err != nil {
		return account.Account{}, err
	}
	return account.External(pk), nil
}

// TokenGenesis converts the Token section into the arguments Init
// expects.
func (c *Config) TokenGenesis() ([]token.GenesisAccount, account.Account, error) {
	gov, err := ExternalAccount(c.Token.Governance)
	if err != nil {
		return nil, account.Account{}, fmt.Errorf("token.governance: %w", err)
	}
	accounts := make([]token.GenesisAccount, len(c.Token.GenesisAccounts))
	for i, ga := range c.Token.GenesisAccounts {
		a, err := ExternalAccount(ga.PublicKey)
		if err != nil {
			return nil, account.Account{}, fmt.Errorf("token.genesis_accounts[%d]: %w", i, err)
		}
		accounts[i] = token.GenesisAccount{Account: a, Balance: ga.Balance}
	}
	return accounts, gov, nil
}

// GovernanceGenesis converts the Governance section into the arguments
// Init expects.
func (c *Config) GovernanceGenesis() ([]account.PublicKey, []account.PublicKey, []governance.OperatorCallThreshold, error) {
	owners := make([]account.PublicKey, len(c.Governance.Owners))
	for i, s := range c.Governance.Owners {
		pk, err := decodePublicKey(s)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("governance.owners[%d]: %w", i, err)
		}
		owners[i] = pk
	}
	operators := make([]account.PublicKey, len(c.Governance.Operators))
	for i, s := range c.Governance.Operators {
		pk, err := decodePublicKey(s)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("governance.operators[%d]: %w", i, err)
		}
		operators[i] = pk
	}
	calls := make([]governance.OperatorCallThreshold, len(c.Governance.OperatorTokenCalls))
	for i, oc := range c.Governance.OperatorTokenCalls {
		calls[i] = governance.OperatorCallThreshold{Name: oc.Name, Threshold: oc.Threshold}
	}
	return owners, operators, calls, nil
}

// AllowlistGenesis converts the Allowlist section into the arguments
// Init expects.
func (c *Config) AllowlistGenesis() ([]allowlist.Entry, account.Account, error) {
	ownership, err := ExternalAccount(c.Allowlist.Ownership)
	if err != nil {
		return nil, account.Account{}, fmt.Errorf("allowlist.ownership: %w", err)
	}
	entries := make([]allowlist.Entry, len(c.Allowlist.Entries))
	for i, e := range c.Allowlist.Entries {
		addrRaw, err := decodeFixed(e.Address, allowlist.AddressSize)
		if err != nil {
			return nil, account.Account{}, fmt.Errorf("allowlist.entries[%d].address: %w", i, err)
		}
		roleRaw, err := decodeFixed(e.Role, allowlist.RoleSize)
		if err != nil {
			return nil, account.Account{}, fmt.Errorf("allowlist.entries[%d].role: %w", i, err)
		}
		var addr allowlist.Address
		var role allowlist.Role
		copy(addr[:], addrRaw)
		copy(role[:], roleRaw)
		entries[i] = allowlist.Entry{Address: addr, Role: role}
	}
	return entries, ownership, nil
}
