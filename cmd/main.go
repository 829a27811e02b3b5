package main

import (
	"fmt"
	"os"

	"github.com/yungbote/objectset-backend/internal/db"
	"github.com/yungbote/objectset-backend/internal/handlers"
	"github.com/yungbote/objectset-backend/internal/logger"
	"github.com/yungbote/objectset-backend/internal/middleware"
	"github.com/yungbote/objectset-backend/internal/repos"
	"github.com/yungbote/objectset-backend/internal/server"
	"github.com/yungbote/objectset-backend/internal/services"
	"github.com/yungbote/objectset-backend/internal/utils"
)

func main() {
	// Logger
	log, err := logger.New(utils.LogMode())
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	recordRepo := repos.NewRecordRepo(thePG, log)
	recordSetRepo := repos.NewRecordSetRepo(thePG, log)
	recordSetMemberRepo := repos.NewRecordSetMemberRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	recordService := services.NewRecordService(thePG, log, recordRepo)
	objectSetService := services.NewObjectSetService(thePG, log, recordSetRepo, recordSetMemberRepo, recordRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	recordHandler := handlers.NewRecordHandler(log, recordService)
	objectSetHandler := handlers.NewObjectSetHandler(log, objectSetService)
	sessionMiddleware := middleware.NewSessionMiddleware(log)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ObjectSetHandler:  objectSetHandler,
		RecordHandler:     recordHandler,
		SessionMiddleware: sessionMiddleware,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
