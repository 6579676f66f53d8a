package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/enemia-backend/internal/platform/logger"
	"github.com/yungbote/enemia-backend/internal/services"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print a signed bearer token for local development",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Env == "prod" {
		return fmt.Errorf("refusing to mint tokens with env=prod")
	}
	auth := services.NewAuthService(logger.Nop(), cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	tok, err := auth.IssueToken(args[0], tokenTTL)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
