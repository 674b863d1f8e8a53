package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-labs/emt-core/internal/account"
	"github.com/synnergy-labs/emt-core/internal/allowlist"
	"github.com/synnergy-labs/emt-core/internal/governance"
	"github.com/synnergy-labs/emt-core/internal/token"
	"github.com/synnergy-labs/emt-core/internal/vmhost"
	"github.com/synnergy-labs/emt-core/pkg/config"
)

var log = logrus.New()

// sandbox wires a Token, Governance, and Allowlist into one in-memory VM
// from a loaded Config, the way a deployment script would address a
// freshly provisioned chain.
type sandbox struct {
	vm      *vmhost.VM
	tokenID account.ContractID
	govID   account.ContractID
	allowID account.ContractID
	tok     *token.Token
	gov     *governance.Governance
	al      *allowlist.Allowlist
}

func newContractID() account.ContractID {
	var id account.ContractID
	lo := uuid.New()
	hi := uuid.New()
	copy(id[:16], lo[:])
	copy(id[16:], hi[:])
	return id
}

func deploySandbox(cfg *config.Config) (*sandbox, error) {
	vm := vmhost.New()
	s := &sandbox{
		vm:      vm,
		tokenID: newContractID(),
		govID:   newContractID(),
		allowID: newContractID(),
		tok:     token.New(),
		gov:     governance.New(),
		al:      allowlist.New(),
	}

	vm.Deploy(s.tokenID, s.tok)
	vm.Deploy(s.govID, s.gov)
	vm.Deploy(s.allowID, s.al)

	emit := func(topic string, payload any) {
		log.WithFields(logrus.Fields{"topic": topic}).Info("genesis event")
	}

	genesisAccounts, governanceAccount, err := cfg.TokenGenesis()
	if err != nil {
		return nil, fmt.Errorf("token genesis: %w", err)
	}
	if err := s.tok.Init(genesisAccounts, governanceAccount, emit); err != nil {
		return nil, fmt.Errorf("token init: %w", err)
	}

	owners, operators, calls, err := cfg.GovernanceGenesis()
	if err != nil {
		return nil, fmt.Errorf("governance genesis: %w", err)
	}
	if len(owners) > 0 {
		if err := s.gov.Init(s.tokenID, owners, operators, calls, emit); err != nil {
			return nil, fmt.Errorf("governance init: %w", err)
		}
	}

	entries, ownership, err := cfg.AllowlistGenesis()
	if err != nil {
		return nil, fmt.Errorf("allowlist genesis: %w", err)
	}
	if err := s.al.Init(entries, ownership, emit); err != nil {
		return nil, fmt.Errorf("allowlist init: %w", err)
	}

	return s, nil
}

func main() {
	rootCmd := &cobra.Command{Use: "emtctl", Short: "inspect and drive an in-memory emt-core sandbox"}
	rootCmd.PersistentFlags().String("config", "", "config environment name (matches config/<name>.yaml)")
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(tokenCmd())
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func loadSandbox(cmd *cobra.Command) (*sandbox, error) {
	env, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return deploySandbox(cfg)
}

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "deploy Token, Governance, and Allowlist from config and print their contract ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSandbox(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("token:     %s\n", s.tokenID)
			fmt.Printf("governance: %s\n", s.govID)
			fmt.Printf("allowlist: %s\n", s.allowID)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token"}
	cmd.AddCommand(tokenBalanceCmd())
	cmd.AddCommand(tokenTransferCmd())
	return cmd
}

func parsePublicKeyArg(s string) (account.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return account.PublicKey{}, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != account.PublicKeySize {
		return account.PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", account.PublicKeySize, len(raw))
	}
	var pk account.PublicKey
	copy(pk[:], raw)
	return pk, nil
}

func tokenBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [public-key-hex]",
		Short: "print an external account's balance after deploying from config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSandbox(cmd)
			if err != nil {
				return err
			}
			pk, err := parsePublicKeyArg(args[0])
			if err != nil {
				return err
			}
			info := s.tok.Account(account.External(pk))
			fmt.Printf("balance: %d status: %d\n", info.Balance, info.Status)
			return nil
		},
	}
}

func tokenTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer [from-public-key-hex] [to-public-key-hex] [value]",
		Short: "simulate a root transfer from an external account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSandbox(cmd)
			if err != nil {
				return err
			}
			from, err := parsePublicKeyArg(args[0])
			if err != nil {
				return err
			}
			to, err := parsePublicKeyArg(args[1])
			if err != nil {
				return err
			}
			var value uint64
			if _, err := fmt.Sscanf(args[2], "%d", &value); err != nil {
				return fmt.Errorf("parse value: %w", err)
			}
			payload := struct {
				Receiver account.Account `json:"receiver"`
				Value    uint64          `json:"value"`
			}{Receiver: account.External(to), Value: value}
			_, receipt, err := s.vm.ExecuteRoot(from, true, s.tokenID, "transfer", marshalOrPanic(payload))
			if err != nil {
				return fmt.Errorf("transfer: %w", err)
			}
			for _, ev := range receipt.Events {
				fmt.Printf("event: %s %+v\n", ev.Topic, ev.Payload)
			}
			return nil
		},
	}
	return cmd
}

func marshalOrPanic(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}
