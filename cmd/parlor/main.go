package main

import (
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "parlor",
		Usage:   "federated forum service (content guard, moderation, listings)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/parlor/parlor.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for counters, caches, and blocklists; in-process fallbacks when empty",
			EnvVars: []string{"PARLOR_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "pds-host",
			Usage:   "method, hostname, and port of the PDS records are written to",
			Value:   "https://pds.example.com",
			EnvVars: []string{"PARLOR_PDS_HOST"},
		},
		&cli.StringFlag{
			Name:    "pds-identifier",
			Usage:   "service account identifier for PDS session auth",
			EnvVars: []string{"PARLOR_PDS_IDENTIFIER"},
		},
		&cli.StringFlag{
			Name:    "pds-password",
			Usage:   "service account password for PDS session auth",
			EnvVars: []string{"PARLOR_PDS_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "label-host",
			Usage:   "label service queried for the federation spam signal; disabled when empty",
			EnvVars: []string{"PARLOR_LABEL_HOST"},
		},
		&cli.StringFlag{
			Name:    "blocklist-file-json",
			Usage:   "file path of word blocklists to load into the in-process liststore",
			EnvVars: []string{"PARLOR_BLOCKLIST_FILE_JSON"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3900",
			EnvVars: []string{"PARLOR_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3901",
			EnvVars: []string{"PARLOR_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		srv, err := NewServer(Config{
			DatabaseURL:       cctx.String("database-url"),
			MaxDBConnections:  cctx.Int("max-db-connections"),
			RedisURL:          cctx.String("redis-url"),
			PDSHost:           cctx.String("pds-host"),
			PDSIdentifier:     cctx.String("pds-identifier"),
			PDSPassword:       cctx.String("pds-password"),
			LabelHost:         cctx.String("label-host"),
			BlocklistFileJSON: cctx.String("blocklist-file-json"),
			Logger:            logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(err)
			}
		}()

		return srv.RunAPI(cctx.String("bind"))
	},
}
