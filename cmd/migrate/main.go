package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kdimtricp/moviesearch/internal/config"
	"github.com/kdimtricp/moviesearch/internal/database"
	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/migrations"
)

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "Apply the search history schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status only",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	migrateLogger, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer migrateLogger.Sync()

	db, err := database.NewDB(database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.Path,
	}, migrateLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if !c.Bool("status") {
		fmt.Println("Running migrations...")
		if err := db.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println("Migrations completed successfully!")
		return nil
	}

	if db.Type() != "postgres" {
		fmt.Printf("%s schema is created on startup; no migrations to track\n", db.Type())
		return nil
	}

	migrator := database.NewMigrator(db.Conn(), db.Type(), migrateLogger)
	if err := migrator.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}

	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := migrator.LoadMigrations(migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, m := range pending {
		status := "pending"
		if applied[m.Version] {
			status = "applied"
		}
		fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, status)
	}
	return nil
}
