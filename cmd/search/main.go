package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kdimtricp/moviesearch/internal/catalog"
	"github.com/kdimtricp/moviesearch/internal/config"
	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/internal/session"
)

const (
	defaultPages   = 1
	defaultTimeout = 15 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "search",
		Usage: "Search the movie catalog from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Query string to search for; positional args are a fallback",
			},
			&cli.IntFlag{
				Name:    "pages",
				Aliases: []string{"p"},
				Usage:   "Number of result pages to fetch",
				Value:   defaultPages,
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "replace prints every page on its own, append prints the accumulated list once",
				Value:   "replace",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for each page fetch",
				Value: defaultTimeout,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(c *cli.Context) error {
	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	}
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	policy, err := session.ParsePolicy(c.String("mode"))
	if err != nil {
		return err
	}

	pages := c.Int("pages")
	if pages < 1 {
		pages = defaultPages
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	cliLogger, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cliLogger.Sync()

	client := catalog.NewTMDbClient(catalog.Config{
		BaseURL:      cfg.Catalog.BaseURL,
		ImageBaseURL: cfg.Catalog.ImageBaseURL,
		Token:        cfg.Catalog.Token,
		Language:     cfg.Catalog.Language,
		Timeout:      cfg.Catalog.Timeout,
	}, nil)

	ctl := session.NewController(client, policy, session.TriggerExplicitControl,
		session.WithLogger(cliLogger),
	)
	defer ctl.Close()

	return runSearch(c.Context, os.Stdout, ctl, client, query, pages, timeout)
}
