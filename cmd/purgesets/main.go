package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/objectset-backend/internal/db"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/repos"
	"github.com/yungbote/objectset-backend/internal/utils"
)

// One-shot maintenance job: hard-delete every membership row flagged
// pending_remove, across all record sets.
func main() {
	log, err := logger.New(utils.LogMode())
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()

	timeoutSec := utils.GetEnvAsInt("PURGE_TIMEOUT_SECONDS", 300, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	memberRepo := repos.NewRecordSetMemberRepo(thePG, log)
	flagged, err := memberRepo.CountRemoved(ctx, nil)
	if err != nil {
		log.Fatal("Counting flagged rows failed", "error", err)
	}
	log.Info("Rows flagged for removal", "flagged", flagged)

	purged, err := memberRepo.FullDeleteRemoved(ctx, nil)
	if err != nil {
		log.Fatal("Purge failed", "error", err)
	}
	log.Info("Purge complete", "purged", purged)
}
