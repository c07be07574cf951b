package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateFlags struct {
	clientConfig
	force bool
}

var updateCmd = &cobra.Command{
	Use:   "update <host> [ip]",
	Short: "Point a host's record at an address",
	Long: `Ask the server to update the A or AAAA record of a host. Without an IP
the server uses the address the request comes from.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	addClientFlags(updateCmd, &updateFlags.clientConfig)
	updateCmd.Flags().BoolVar(&updateFlags.force, "force", false, "contact the provider even if the address is unchanged")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	c, err := updateFlags.newClient()
	if err != nil {
		return err
	}

	var ip string
	if len(args) == 2 {
		ip = args[1]
	}

	resp, err := c.Update(cmd.Context(), args[0], ip, updateFlags.force)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.Update.Success {
		return fmt.Errorf("update failed: %s", resp.Update.Error)
	}
	return nil
}
