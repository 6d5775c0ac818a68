package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/liner/internal/auth"
)

func newHashTokenCommand() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "hash-token",
		Short: "Hash a trigger token for server.trigger_token_hash",
		Long: `Reads a token from stdin (or generates one with --generate) and prints
the bcrypt hash to put in server.trigger_token_hash or LN_TRIGGER_TOKEN_HASH.`,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var token string
			if generate {
				t, err := auth.GenerateToken()
				if err != nil {
					return fmt.Errorf("generating token: %w", err)
				}
				token = t
				fmt.Fprintf(out, "token: %s\n", token)
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "hash:  %s\n", hash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a random token and print it with its hash")
	return cmd
}
