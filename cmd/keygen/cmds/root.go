// Command keygen mints operator API keys for the config file: a fresh
// uuid, a random token, and the argon2id hash the server would store.
package cmds

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const tokenBytes = 48

var note string

var rootCmd = &cobra.Command{
	Use:           "keygen",
	Short:         "Generates an operator API key entry",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		raw := make([]byte, tokenBytes)
		if _, err := rand.Read(raw); err != nil {
			return err
		}
		token := base64.StdEncoding.EncodeToString(raw)

		hash, err := argon2id.CreateHash(token, argon2id.DefaultParams)
		if err != nil {
			return err
		}

		fmt.Printf("id: %s\n", uuid.New().String())
		fmt.Printf("note: %s\n", note)
		fmt.Printf("token: %s\n", token)
		fmt.Printf("hash: %s\n", hash)

		return nil
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Flags().StringVar(&note, "note", "", "Nonsensitive label stored alongside the key")
	err := rootCmd.MarkFlagRequired("note")
	if err != nil {
		panic("Internal error contact a contributor [note-flag-required]")
	}
}
