package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enemia-backend/internal/data/repos"
	"github.com/yungbote/enemia-backend/internal/platform/config"
	"github.com/yungbote/enemia-backend/internal/platform/logger"
)

type Repos = repos.Repos

func wireRepos(db *gorm.DB, log *logger.Logger, cfg config.DBConfig) Repos {
	log.Info("Wiring repos...")
	return repos.New(db, log, cfg.ReadRetries)
}
