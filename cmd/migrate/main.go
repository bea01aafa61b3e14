package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/config"
	"github.com/2beens/workouttracker/internal/db"
	"github.com/2beens/workouttracker/internal/logging"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	migrationsPath := flag.String("path", "", "migrations dir, overrides migrations_path from the config")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	if *migrationsPath == "" {
		*migrationsPath = cfg.MigrationsPath
	}

	connString := db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("WT_POSTGRES_PASS"),
	}.ConnString()

	log.Infof("applying migrations from [%s] to db [%s]", *migrationsPath, cfg.PostgresDBName)
	if err := db.RunMigrations(connString, *migrationsPath); err != nil {
		log.Fatalf("%s", err)
	}
}
