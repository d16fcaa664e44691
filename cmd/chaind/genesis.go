package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwsoftware123/cwd/genesis"
)

var genesisCmd = &cobra.Command{Use: "genesis", Short: "bootstrap a fresh chain"}

var genesisApplyCmd = &cobra.Command{
	Use:   "apply <genesis.yaml>",
	Short: "apply a genesis document to an empty data dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loadNode(cmd)
		if err != nil {
			return err
		}
		gs, err := genesis.LoadFile(args[0])
		if err != nil {
			return err
		}
		root, err := genesis.Load(n.executor, gs)
		if err != nil {
			return err
		}
		n.chainID = gs.ChainID
		n.lastRoot = root
		fmt.Fprintf(cmd.OutOrStdout(), "genesis applied, app hash %x\n", root)
		return nil
	},
}

func init() {
	genesisCmd.AddCommand(genesisApplyCmd)
}
