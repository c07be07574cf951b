package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saltFlags struct {
	clientConfig
}

var saltCmd = &cobra.Command{
	Use:   "salt",
	Short: "Generate a fresh salt with an API key and its token id",
	RunE:  runSalt,
}

func init() {
	rootCmd.AddCommand(saltCmd)
	addClientFlags(saltCmd, &saltFlags.clientConfig)
}

func runSalt(cmd *cobra.Command, args []string) error {
	c, err := saltFlags.newPublicClient()
	if err != nil {
		return err
	}
	s, err := c.Salt(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("salt:     %s\napikey:   %s\ntoken_id: %s\n", s.Salt, s.APIKey, s.TokenID)
	return nil
}
