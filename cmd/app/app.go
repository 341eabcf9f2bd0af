package main

import (
	"io"
	"os"

	"github.com/DRSN-tech/price-tracker/internal/app"
	config "github.com/DRSN-tech/price-tracker/internal/cfg"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/joho/godotenv"
)

//	@title			Price Tracker API
//	@version		1.0
//	@description	Отслеживание цен товаров Amazon и уведомления о достижении целевой цены.
//	@host			localhost:8080
//	@BasePath		/api
func main() {
	log := initLogger(os.Stdout)

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}

// initLogger читает .env до создания логгера, чтобы LOG_LEVEL из него тоже учитывался.
// Файл необязателен: в контейнере переменные приходят из окружения.
func initLogger(out io.Writer, envFiles ...string) *logger.SlogLogger {
	envErr := godotenv.Load(envFiles...)

	log := logger.NewSlogLoggerTo(out)
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warnf("failed to load .env: %v", envErr)
	}

	return log
}
