package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwsoftware123/cwd/core"
)

var queryCmd = &cobra.Command{Use: "query", Short: "read-only queries against committed state"}

func init() {
	queryCmd.PersistentFlags().Int64("height", -1, "committed version to query (negative = latest)")
	queryCmd.AddCommand(infoCmd, codesCmd, accountsCmd, wasmRawCmd, wasmSmartCmd, balanceCmd, ibcClientCmd)
}

func runQuery(cmd *cobra.Command, req core.QueryRequest) (core.QueryResponse, error) {
	n, err := loadNode(cmd)
	if err != nil {
		return core.QueryResponse{}, err
	}
	height, err := cmd.Flags().GetInt64("height")
	if err != nil {
		return core.QueryResponse{}, err
	}
	return n.querier.Query(req, height)
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "report chain info and last app hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryInfo})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp.Info)
	},
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "list stored code hashes",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryCodes})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp.Codes)
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "list instantiated accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryAccounts})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp.Accounts)
	},
}

var wasmRawCmd = &cobra.Command{
	Use:   "wasm-raw <contract> <hex-key>",
	Short: "read a raw key from a contract's storage namespace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		key, err := decodeHexArg(args[1])
		if err != nil {
			return err
		}
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryWasmRaw, WasmRaw: &core.WasmRawQuery{Contract: contract, Key: key}})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%x\n", resp.Raw)
		return nil
	},
}

var wasmSmartCmd = &cobra.Command{
	Use:   "wasm-smart <contract> <hex-msg>",
	Short: "run a contract's query entry point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		msg, err := decodeHexArg(args[1])
		if err != nil {
			return err
		}
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryWasmSmart, WasmSmart: &core.WasmSmartQuery{Contract: contract, Msg: msg}})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(resp.Smart))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "report an account's balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryBankBalance, BankBalance: &core.BankBalanceQuery{Address: addr}})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.BankBalance)
		return nil
	},
}

var ibcClientCmd = &cobra.Command{
	Use:   "ibc-client <client-id>",
	Short: "report a light client's stored state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := runQuery(cmd, core.QueryRequest{Kind: core.QueryIBCClient, IBCClient: &core.IBCClientQuery{ClientID: args[0]}})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp.IBCClient)
	},
}

func decodeHexArg(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
