package main

import (
	"strings"

	"github.com/spf13/cobra"

	"epictree/internal/auth"
	"epictree/internal/config"
)

type hashTokenResult struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	Hash  string `json:"hash" yaml:"hash"`
}

func newHashTokenCmd(jsonOutput *bool) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Hash an API token for server.api_token_hash (generates one when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result hashTokenResult
			if len(args) == 1 {
				token := strings.TrimSpace(args[0])
				if err := auth.ValidateToken(token); err != nil {
					return err
				}
				result.Token = token
			} else {
				token, err := auth.GenerateToken()
				if err != nil {
					return err
				}
				result.Token = token
			}

			hash, err := auth.HashToken(result.Token)
			if err != nil {
				return err
			}
			result.Hash = hash

			if save {
				path, err := config.GlobalPath()
				if err != nil {
					return err
				}
				if err := config.SetKey(path, "server.api_token_hash", hash); err != nil {
					return err
				}
			}

			if *jsonOutput {
				return writeJSON(result)
			}
			_ = writePlain("token: %s\n", result.Token)
			return writePlain("hash: %s\n", result.Hash)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the hash as server.api_token_hash in the global config")
	return cmd
}
