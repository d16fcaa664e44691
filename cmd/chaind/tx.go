package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwsoftware123/cwd/core"
)

var txCmd = &cobra.Command{Use: "tx", Short: "submit a transaction, driving one full block"}

func init() {
	txCmd.PersistentFlags().String("sender", "", "hex-encoded sender address")
	txCmd.PersistentFlags().String("credential", "", "hex-encoded authentication credential")
	txCmd.PersistentFlags().Uint64("sequence", 0, "sender's transaction sequence number")
	txCmd.MarkPersistentFlagRequired("sender")

	storeCodeCmd.Flags().String("wasm", "", "path to the compiled wasm binary")
	storeCodeCmd.MarkFlagRequired("wasm")

	instantiateCmd.Flags().String("code-hash", "", "hex-encoded code hash")
	instantiateCmd.Flags().String("salt", "", "hex-encoded instantiation salt")
	instantiateCmd.Flags().String("msg", "", "hex-encoded instantiate payload")
	instantiateCmd.Flags().String("admin", "", "hex-encoded admin address")
	instantiateCmd.MarkFlagRequired("code-hash")

	executeCmd.Flags().String("contract", "", "hex-encoded contract address")
	executeCmd.Flags().String("msg", "", "hex-encoded execute payload")
	executeCmd.MarkFlagRequired("contract")

	migrateCmd.Flags().String("contract", "", "hex-encoded contract address")
	migrateCmd.Flags().String("new-code-hash", "", "hex-encoded new code hash")
	migrateCmd.Flags().String("msg", "", "hex-encoded migrate payload")
	migrateCmd.MarkFlagRequired("contract")
	migrateCmd.MarkFlagRequired("new-code-hash")

	transferCmd.Flags().String("to", "", "hex-encoded recipient address")
	transferCmd.Flags().Uint64("amount", 0, "amount to transfer")
	transferCmd.MarkFlagRequired("to")
	transferCmd.MarkFlagRequired("amount")

	createClientCmd.Flags().String("client-type", "", "light client type tag")
	createClientCmd.Flags().String("client-state", "", "hex-encoded client state blob")
	createClientCmd.Flags().String("consensus-state", "", "hex-encoded consensus state blob")
	createClientCmd.MarkFlagRequired("client-type")

	updateClientCmd.Flags().String("client-id", "", "client id returned by create-client")
	updateClientCmd.Flags().String("header", "", "hex-encoded light client header")
	updateClientCmd.MarkFlagRequired("client-id")

	txCmd.AddCommand(storeCodeCmd, instantiateCmd, executeCmd, migrateCmd, transferCmd, createClientCmd, updateClientCmd)
}

func hexFlag(cmd *cobra.Command, name string) ([]byte, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil || s == "" {
		return nil, err
	}
	return hex.DecodeString(s)
}

func addressFlag(cmd *cobra.Command, name string) (core.Address, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return core.Address{}, err
	}
	if s == "" {
		return core.Address{}, nil
	}
	return core.ParseAddress(s)
}

func optionalAddressFlag(cmd *cobra.Command, name string) (*core.Address, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil || s == "" {
		return nil, err
	}
	addr, err := core.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// sendTx builds a one-message transaction from persistent tx flags and
// drives it through a full block, printing the resulting events.
func sendTx(cmd *cobra.Command, msg core.Message) error {
	n, err := loadNode(cmd)
	if err != nil {
		return err
	}
	sender, err := addressFlag(cmd, "sender")
	if err != nil {
		return err
	}
	credential, err := hexFlag(cmd, "credential")
	if err != nil {
		return err
	}
	sequence, err := cmd.Flags().GetUint64("sequence")
	if err != nil {
		return err
	}

	events, gasUsed, err := n.commitBlock(sender, []core.Message{msg}, credential, sequence)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok, gas used %d\n", gasUsed)
	for _, ev := range events {
		fmt.Fprintf(cmd.OutOrStdout(), "event %s:\n", ev.Type)
		for _, attr := range ev.Attributes {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s=%s\n", attr.Key, attr.Value)
		}
	}
	return nil
}

var storeCodeCmd = &cobra.Command{
	Use:   "store-code",
	Short: "upload a wasm binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("wasm")
		if err != nil {
			return err
		}
		wasm, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgStoreCode, StoreCode: &core.StoreCodeMsg{Wasm: wasm}})
	},
}

var instantiateCmd = &cobra.Command{
	Use:   "instantiate",
	Short: "instantiate a stored code",
	RunE: func(cmd *cobra.Command, args []string) error {
		codeHashStr, err := cmd.Flags().GetString("code-hash")
		if err != nil {
			return err
		}
		codeHash, err := core.ParseHash(codeHashStr)
		if err != nil {
			return err
		}
		salt, err := hexFlag(cmd, "salt")
		if err != nil {
			return err
		}
		msg, err := hexFlag(cmd, "msg")
		if err != nil {
			return err
		}
		admin, err := optionalAddressFlag(cmd, "admin")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgInstantiate, Instantiate: &core.InstantiateMsg{
			CodeHash: codeHash, Salt: salt, Msg: msg, Admin: admin,
		}})
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "execute a contract",
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := addressFlag(cmd, "contract")
		if err != nil {
			return err
		}
		msg, err := hexFlag(cmd, "msg")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgExecute, Execute: &core.ExecuteMsg{Contract: contract, Msg: msg}})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "migrate a contract to new code",
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := addressFlag(cmd, "contract")
		if err != nil {
			return err
		}
		newCodeHashStr, err := cmd.Flags().GetString("new-code-hash")
		if err != nil {
			return err
		}
		newCodeHash, err := core.ParseHash(newCodeHashStr)
		if err != nil {
			return err
		}
		msg, err := hexFlag(cmd, "msg")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgMigrate, Migrate: &core.MigrateMsg{
			Contract: contract, NewCodeHash: newCodeHash, Msg: msg,
		}})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "transfer balance between accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := addressFlag(cmd, "to")
		if err != nil {
			return err
		}
		amount, err := cmd.Flags().GetUint64("amount")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgTransfer, Transfer: &core.TransferMsg{To: to, Amount: amount}})
	},
}

var createClientCmd = &cobra.Command{
	Use:   "create-client",
	Short: "register a new IBC-style light client",
	RunE: func(cmd *cobra.Command, args []string) error {
		clientType, err := cmd.Flags().GetString("client-type")
		if err != nil {
			return err
		}
		clientState, err := hexFlag(cmd, "client-state")
		if err != nil {
			return err
		}
		consensusState, err := hexFlag(cmd, "consensus-state")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgCreateClient, CreateClient: &core.CreateClientMsg{
			ClientType: clientType, ClientState: clientState, ConsensusState: consensusState,
		}})
	},
}

var updateClientCmd = &cobra.Command{
	Use:   "update-client",
	Short: "update an IBC-style light client's consensus state",
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, err := cmd.Flags().GetString("client-id")
		if err != nil {
			return err
		}
		header, err := hexFlag(cmd, "header")
		if err != nil {
			return err
		}
		return sendTx(cmd, core.Message{Kind: core.MsgUpdateClient, UpdateClient: &core.UpdateClientMsg{
			ClientID: clientID, Header: header,
		}})
	},
}
