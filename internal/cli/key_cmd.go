package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/planrollup/internal/keyring"
	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the REST service key stored in the OS keyring",
	}
	cmd.AddCommand(newKeySetCmd(), newKeyDeleteCmd(), newKeyStatusCmd())
	return cmd
}

func newKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Store the REST key; prompts when no key is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				k, err := promptSecret("REST service key")
				if err != nil {
					return err
				}
				key = k
			}
			if err := keyring.SetRestKey(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "REST key stored in keyring")
			return nil
		},
	}
}

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored REST key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := keyring.DeleteRestKey()
			if errors.Is(err, keyring.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no REST key stored")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "REST key removed")
			return nil
		},
	}
}

func newKeyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a REST key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := keyring.RestKey()
			switch {
			case errors.Is(err, keyring.ErrNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), "no REST key stored")
			case err != nil:
				return err
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "REST key stored")
			}
			return nil
		},
	}
}
