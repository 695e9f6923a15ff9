package main

import (
	"github.com/spf13/cobra"

	"xnet.company/lockup/internal/identity"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <key-file>",
	Short: "Create a deployer key file",
	Long: `Writes a new secp256k1 private key to key-file (mode 0600) for use
as KEY_FILE. An existing key file is left untouched and its address is
printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
	id, created, err := identity.LoadOrCreateIdentity(args[0])
	if err != nil {
		return err
	}
	if created {
		out.GreenLog("created key " + args[0])
	} else {
		out.AmberLog("key " + args[0] + " already exists")
	}
	out.Println("address: " + out.ColorAddress(id.AddressHex(), false))
	return nil
}
