package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/megacoinhq/megacoin/cmd/config"
	"github.com/megacoinhq/megacoin/internal/handlers"
	"github.com/megacoinhq/megacoin/internal/logger"
	"github.com/megacoinhq/megacoin/internal/middleware"
	"github.com/megacoinhq/megacoin/internal/storage"
	"github.com/megacoinhq/megacoin/internal/workers"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	if err := logger.Initialize(config.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Log.Error("Failed to init storage", zap.Error(err))
		return
	}

	workers.InitSupplyMonitor()

	if err := run(); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

func run() error {
	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Post("/api/auth/register", handlers.RegisterHandler)
	app.Post("/api/auth/login", handlers.LoginHandler)

	authRoutes := app.Group("/api", middleware.AuthMiddleware)
	authRoutes.Post("/auth/logout", handlers.LogoutHandler)
	authRoutes.Get("/tasks", handlers.ListTasksHandler)
	authRoutes.Post("/tasks/submit", handlers.SubmitTaskHandler)
	authRoutes.Post("/transfer", handlers.TransferHandler)
	authRoutes.Get("/transactions", handlers.GetTransactionsHandler)
	authRoutes.Get("/users/code", handlers.GetUserByCodeHandler)
	authRoutes.Get("/leaderboard", handlers.LeaderboardHandler)

	adminRoutes := authRoutes.Group("/admin", middleware.AdminMiddleware)
	adminRoutes.Get("/tasks", handlers.AdminListTasksHandler)
	adminRoutes.Post("/tasks", handlers.CreateTaskHandler)
	adminRoutes.Post("/tasks/publish", handlers.PublishTaskHandler)
	adminRoutes.Get("/submissions", handlers.ListSubmissionsHandler)
	adminRoutes.Post("/submissions/approve", handlers.ApproveSubmissionHandler)
	adminRoutes.Post("/submissions/reject", handlers.RejectSubmissionHandler)
	adminRoutes.Get("/users", handlers.ListUsersHandler)
	adminRoutes.Post("/users/block", handlers.BlockUserHandler)
	adminRoutes.Post("/users/balance", handlers.AddBalanceHandler)
	adminRoutes.Post("/reset", handlers.ResetAllHandler)

	logger.Log.Info("Running server", zap.String("address", config.RunAddress))
	return app.Listen(config.RunAddress)
}
