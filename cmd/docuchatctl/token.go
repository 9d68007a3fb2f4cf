package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"codeberg.org/docuchat/server/internal/auth"
)

// signs with JWT_SECRET only, so it works without a database
func tokenAction(_ context.Context, cmd *cli.Command) error {
	_ = godotenv.Load()

	signer, err := auth.NewSigner(os.Getenv("JWT_SECRET"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}

	token, err := signer.Issue(cmd.String("user"), cmd.String("email"))
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
