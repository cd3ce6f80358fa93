package root

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evolvedge/evolvedge/internal/credential"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys in the system keyring",
	}
	cmd.AddCommand(newKeySetCmd(), newKeyDeleteCmd())
	return cmd
}

func keyName(name string) (string, error) {
	switch name {
	case "gemini":
		return credential.KeyGeminiAPIKey, nil
	case "backend":
		return credential.KeyBackendKey, nil
	default:
		return "", fmt.Errorf("unknown key %q (expected \"gemini\" or \"backend\")", name)
	}
}

func newKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <gemini|backend>",
		Short: "Store an API key, read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyName(args[0])
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "Paste the key and press enter: ")
			reader := bufio.NewReader(os.Stdin)
			value, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return fmt.Errorf("empty key")
			}

			if err := credential.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key.\n", args[0])
			return nil
		},
	}
}

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <gemini|backend>",
		Short: "Remove an API key from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyName(args[0])
			if err != nil {
				return err
			}
			if err := credential.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s key.\n", args[0])
			return nil
		},
	}
}
