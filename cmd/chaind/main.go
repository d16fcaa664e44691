// Command chaind is a single-process development harness for the
// executor, wasm host, and KV backend: it wires them together and
// exposes the result as cobra subcommands, one per feature. It has no
// ABCI socket server (driving a real consensus engine is a separate
// transport's job), so `tx` subcommands run a full BeginBlock/
// DeliverTx/EndBlock/Commit cycle per invocation against local state.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	rootCmd := &cobra.Command{Use: "chaind", Short: "deterministic wasm-contract chain core"}
	rootCmd.PersistentFlags().String("data-dir", "./chaind-data", "directory holding chain.db")
	rootCmd.PersistentFlags().String("chain-id", "chaind-devnet-1", "chain id stamped into BlockInfo")
	rootCmd.PersistentFlags().Uint64("wasm-cache-size-mb", 64, "wasm module LRU cache size in MB")
	rootCmd.PersistentFlags().Uint64("query-gas-limit", 0, "gas budget for WasmSmart queries (0 = unbounded)")

	rootCmd.AddCommand(genesisCmd, txCmd, queryCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("chaind: command failed")
		os.Exit(1)
	}
}
