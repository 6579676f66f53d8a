package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/enemia-backend/internal/app"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg.DB.AutoMigrate = true
	dbs, err := app.OpenDatabase(log, cfg.DB)
	if err != nil {
		return err
	}
	log.Info("schema migrated", "driver", cfg.DB.Driver)
	return dbs.Close()
}
