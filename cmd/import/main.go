package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/config"
	"github.com/2beens/workouttracker/internal/db"
	"github.com/2beens/workouttracker/internal/logging"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

// Imports a workout plan spreadsheet for one user, straight into the database.
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	filePath := flag.String("file", "", "path to the .xlsx workout plan")
	userID := flag.Int("user", 0, "id of the user the workouts are imported for")
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

	if *filePath == "" {
		log.Fatalln("spreadsheet file not specified, use -file")
	}
	if *userID <= 0 {
		log.Fatalln("user id not specified, use -user")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("open spreadsheet: %s", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("close spreadsheet: %s", err)
		}
	}()

	rows, err := workouts.ParseSpreadsheet(f)
	if err != nil {
		logImportError(err)
		return
	}
	log.Debugf("read %d rows from [%s]", len(rows), *filePath)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("WT_POSTGRES_PASS"),
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	service := workouts.NewService(workouts.NewRepo(dbPool), nil, nil)
	imported, err := service.ImportRows(ctx, *userID, rows)
	if err != nil {
		logImportError(err)
		return
	}

	for _, w := range imported {
		log.Infof("imported workout %d [%s], order %d", w.ID, w.Name, w.OrderID)
	}
	log.Infof("done, %d workouts imported for user %d", len(imported), *userID)
}

func logImportError(err error) {
	if verr, ok := pkg.AsValidationError(err); ok {
		for _, msg := range verr.Messages {
			log.Errorln(msg)
		}
		os.Exit(1)
	}
	log.Fatalf("import: %s", err)
}
