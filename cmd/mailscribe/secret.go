package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/credential"
)

func newSecretCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the OS keyring",
		Long: fmt.Sprintf(`Manage secrets in the OS keyring. Secrets fill configuration values that
the environment leaves empty.

Keys: %s`, strings.Join(credential.Keys, ", ")),
	}
	cmd.AddCommand(
		newSecretSetCmd(opts),
		newSecretGetCmd(opts),
		newSecretDeleteCmd(opts),
		newSecretListCmd(opts),
	)
	return cmd
}

func knownKeyArg(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("missing key")
	}
	if !credential.IsKnownKey(args[0]) {
		return fmt.Errorf("unknown key %q; valid keys: %s", args[0], strings.Join(credential.Keys, ", "))
	}
	return nil
}

func newSecretSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Store a secret; the value is read from stdin when omitted",
		Args:  cobra.MatchAll(cobra.RangeArgs(1, 2), knownKeyArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading value: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return errors.New("empty value")
			}

			creds, err := openKeyring(opts.keyringDir)
			if err != nil {
				return err
			}
			if err := creds.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s stored\n", args[0])
			return nil
		},
	}
}

func newSecretGetCmd(opts *rootOptions) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Report whether a secret is stored",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), knownKeyArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := openKeyring(opts.keyringDir)
			if err != nil {
				return err
			}
			value, err := creds.Get(args[0])
			if err != nil {
				return err
			}
			if reveal {
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is set\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the stored value")
	return cmd
}

func newSecretDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a secret",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), knownKeyArg),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := openKeyring(opts.keyringDir)
			if err != nil {
				return err
			}
			return creds.Delete(args[0])
		},
	}
}

func newSecretListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the known keys and whether each is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := openKeyring(opts.keyringDir)
			if err != nil {
				return err
			}
			for _, key := range credential.Keys {
				state := "set"
				if _, err := creds.Get(key); err != nil {
					if !errors.Is(err, credential.ErrNotFound) {
						return err
					}
					state = "not set"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", key, state)
			}
			return nil
		},
	}
}
