package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/smallwat3r/safes/internal/utility"
	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

func newRootCommand() *cobra.Command {
	var baseURL string

	root := &cobra.Command{
		Use:           "safes",
		Short:         "Share secrets through safes that open a limited number of times",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url",
		utility.Getenv("SAFES_API_URL", defaultBaseURL),
		"base URL of the safes server (env SAFES_API_URL)")

	root.AddCommand(newLockCommand(&baseURL), newUnlockCommand())
	return root
}

func newLockCommand(baseURL *string) *cobra.Command {
	var (
		duration    time.Duration
		unlocks     uint32
		description string
	)

	cmd := &cobra.Command{
		Use:   "lock <secret|->",
		Short: "Lock a secret in a new safe and print its share URL",
		Long: "Encrypts the secret locally and stores the ciphertext on the server.\n" +
			"The key only exists in the printed URL fragment. Pass - to read the secret from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration < time.Second {
				return errors.New("duration must be at least 1s")
			}
			if unlocks == 0 {
				return errors.New("unlocks must be at least 1")
			}

			secret := args[0]
			if secret == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				secret = strings.TrimRight(string(b), "\r\n")
			}
			if secret == "" {
				return errors.New("secret must not be empty")
			}

			c := newClient(*baseURL, cmd.ErrOrStderr())
			res, err := c.lock(cmd.Context(), []Secret{{Secret: secret, Description: description}}, duration, unlocks)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Your safe is ready to share:")
			fmt.Fprintf(out, "URL: %s\n", res.ShareURL)
			fmt.Fprintf(out, "Unlocks: %d\n", unlocks)
			fmt.Fprintf(out, "Expires: %s (%s)\n",
				humanize.Time(res.ExpiresAt), res.ExpiresAt.Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", time.Hour, "how long the safe can be opened")
	cmd.Flags().Uint32VarP(&unlocks, "unlocks", "n", 1, "how many times the safe can be opened")
	cmd.Flags().StringVar(&description, "description", "", "note stored next to the secret")
	return cmd
}

func newUnlockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <share-url>",
		Short: "Open a safe and print its secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient("", cmd.ErrOrStderr())
			secrets, err := c.unlock(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range secrets {
				if s.Description != "" {
					fmt.Fprintf(out, "%s: %s\n", s.Description, s.Secret)
					continue
				}
				fmt.Fprintln(out, s.Secret)
			}
			return nil
		},
	}
}
