package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rsclarke/ddnsd/internal/capability"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage capability tokens",
}

var tokensListFlags struct {
	clientConfig
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tokens (admin only)",
	RunE:  runTokensList,
}

var tokensCreateFlags struct {
	clientConfig
	id          string
	tokenType   string
	name        string
	description string
	view        []string
	update      []string
}

var tokensCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a token, or edit one with --id (admin only)",
	Long: `Create a token and print its API key, which is shown only once.

RESTRICTED tokens get permissions per host with --view and --update; the
host "#OTHERS" applies to every host without an entry of its own.`,
	RunE: runTokensCreate,
}

var tokensMeFlags struct {
	clientConfig
}

var tokensMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the token of the API key in use",
	RunE:  runTokensMe,
}

var tokensRevokeFlags struct {
	clientConfig
}

var tokensRevokeCmd = &cobra.Command{
	Use:   "revoke [id]",
	Short: "Revoke a token; without an id, the token of the API key in use",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokensRevoke,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensCreateCmd, tokensMeCmd, tokensRevokeCmd)

	addClientFlags(tokensListCmd, &tokensListFlags.clientConfig)
	addClientFlags(tokensMeCmd, &tokensMeFlags.clientConfig)
	addClientFlags(tokensRevokeCmd, &tokensRevokeFlags.clientConfig)

	addClientFlags(tokensCreateCmd, &tokensCreateFlags.clientConfig)
	f := tokensCreateCmd.Flags()
	f.StringVar(&tokensCreateFlags.id, "id", "", "edit the token with this id instead of creating one")
	f.StringVar(&tokensCreateFlags.tokenType, "type", string(capability.Restricted), "token type: ADMIN or RESTRICTED")
	f.StringVar(&tokensCreateFlags.name, "name", "", "token name")
	f.StringVar(&tokensCreateFlags.description, "description", "", "token description")
	f.StringSliceVar(&tokensCreateFlags.view, "view", nil, "hosts the token may view")
	f.StringSliceVar(&tokensCreateFlags.update, "update", nil, "hosts the token may update")
}

func runTokensList(cmd *cobra.Command, args []string) error {
	c, err := tokensListFlags.newClient()
	if err != nil {
		return err
	}
	resp, err := c.ListTokens(cmd.Context())
	if err != nil {
		return err
	}
	printTokens(resp.Tokens)
	return nil
}

func runTokensCreate(cmd *cobra.Command, args []string) error {
	c, err := tokensCreateFlags.newClient()
	if err != nil {
		return err
	}

	info := capability.Info{Type: capability.Type(strings.ToUpper(tokensCreateFlags.tokenType))}
	if tokensCreateFlags.name != "" {
		info.Name = &tokensCreateFlags.name
	}
	if tokensCreateFlags.description != "" {
		info.Description = &tokensCreateFlags.description
	}
	if info.Type == capability.Restricted {
		info.Permissions = &capability.Permissions{Hosts: hostPermissions(tokensCreateFlags.view, tokensCreateFlags.update)}
	}

	resp, err := c.SaveToken(cmd.Context(), tokensCreateFlags.id, info)
	if err != nil {
		return err
	}

	if resp.APIKey != nil {
		fmt.Println("=============================================================")
		fmt.Println("API KEY CREATED (save this, it will not be shown again):")
		fmt.Println(*resp.APIKey)
		fmt.Println("=============================================================")
	}
	printTokens(map[string]capability.Info{resp.TokenID: resp.Info})
	return nil
}

func hostPermissions(view, update []string) map[string][]capability.Permission {
	perms := make(map[string][]capability.Permission)
	for _, h := range view {
		perms[h] = append(perms[h], capability.PermView)
	}
	for _, h := range update {
		perms[h] = append(perms[h], capability.PermUpdate)
	}
	return perms
}

func runTokensMe(cmd *cobra.Command, args []string) error {
	c, err := tokensMeFlags.newClient()
	if err != nil {
		return err
	}
	resp, err := c.TokenMe(cmd.Context())
	if err != nil {
		return err
	}
	printTokens(resp.Tokens)
	return nil
}

func runTokensRevoke(cmd *cobra.Command, args []string) error {
	c, err := tokensRevokeFlags.newClient()
	if err != nil {
		return err
	}
	var id string
	if len(args) == 1 {
		id = args[0]
	}
	if err := c.RevokeToken(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Println("Token revoked.")
	return nil
}

func printTokens(tokens map[string]capability.Info) {
	if len(tokens) == 0 {
		fmt.Println("No tokens found.")
		return
	}
	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("%-43s  %-10s  %-16s  %s\n", "ID", "TYPE", "NAME", "PERMISSIONS")
	for _, id := range ids {
		t := tokens[id]
		perms := "-"
		if t.Permissions != nil {
			b, _ := json.Marshal(t.Permissions.Hosts)
			perms = string(b)
		}
		fmt.Printf("%-43s  %-10s  %-16s  %s\n", id, t.Type, valueOr(t.Name, "-"), perms)
	}
}
