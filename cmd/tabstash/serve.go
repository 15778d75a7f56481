package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabstash/internal/backup"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/metrics"
	"github.com/hpungsan/tabstash/internal/notify"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/retention"
	"github.com/hpungsan/tabstash/internal/storage"
	"github.com/hpungsan/tabstash/internal/tabhost"
	"github.com/hpungsan/tabstash/internal/web"
)

// backupSink returns the S3 sink when backup_s3 is configured, otherwise the
// local backup directory.
func (env *appEnv) backupSink(ctx context.Context) (backup.Sink, error) {
	if env.cfg.BackupS3 != nil {
		return backup.NewS3Sink(ctx, *env.cfg.BackupS3)
	}
	return backup.NewDirSink(env.cfg.ResolveBackupDir(env.baseDir))
}

// serveCmd creates the serve command: HTTP API, change feed, metrics,
// scheduled eviction and automatic backups.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server used by the browser extension",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default: http_bind from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (default: http_port from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := env.cfg.HTTPBind, env.cfg.HTTPPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := notify.NewBroadcaster()
			snapshot := tabhost.NewSnapshot(events)
			rec := metrics.New()
			rec.WatchBroadcaster(events)

			engine := ops.NewEngine(env.backend,
				ops.WithNotifier(events),
				ops.WithTabHost(snapshot),
				ops.WithMetrics(rec),
				ops.WithLogger(env.logger),
			)
			defer engine.Close()

			sink, err := env.backupSink(ctx)
			if err != nil {
				return outputError(errors.NewStorage(err))
			}

			var wg sync.WaitGroup
			spawn := func(name string, fn func(context.Context) error) {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := fn(ctx); err != nil {
						env.logger.Warn("background task stopped", "task", name, "error", err)
					}
				}()
			}

			spawn("retention", retention.NewScheduler(engine, env.logger).Run)
			spawn("backup", backup.NewRunner(engine, sink, env.logger).Run)
			if f, ok := env.backend.(*storage.File); ok {
				spawn("watch", func(ctx context.Context) error {
					return f.Watch(ctx, env.logger, func() {
						events.Publish(notify.NewEvent(notify.TypeGroupsUpdated))
					})
				})
			}

			srv := web.NewServer(web.Options{
				Engine:   engine,
				Snapshot: snapshot,
				Events:   events,
				Metrics:  rec,
				Logger:   env.logger,
				Version:  Version,
			}, bind, port)

			err = web.Run(ctx, srv, env.logger)
			stop()
			wg.Wait()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// backupCmd creates the backup command group.
func backupCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write, list and restore backups",
		Subcommands: []*cli.Command{
			{
				Name:  "now",
				Usage: "Write a backup immediately",
				Action: func(c *cli.Context) error {
					sink, err := env.backupSink(c.Context)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					result, err := backup.NewRunner(env.Engine(), sink, env.logger).BackupNow(c.Context)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					return outputJSON(c, result)
				},
			},
			{
				Name:  "list",
				Usage: "List backups, oldest first",
				Action: func(c *cli.Context) error {
					sink, err := env.backupSink(c.Context)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					names, err := backup.Backups(c.Context, sink)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					if names == nil {
						names = []string{}
					}
					return outputJSON(c, names)
				},
			},
			{
				Name:      "restore",
				Usage:     "Import a backup (the newest when no name is given)",
				ArgsUsage: "[name]",
				Action: func(c *cli.Context) error {
					sink, err := env.backupSink(c.Context)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					name := c.Args().First()
					if name == "" {
						names, err := backup.Backups(c.Context, sink)
						if err != nil {
							return outputError(errors.NewStorage(err))
						}
						if len(names) == 0 {
							return outputError(errors.NewInvalidRequest("no backups found"))
						}
						name = names[len(names)-1]
					}
					data, err := sink.Read(c.Context, name)
					if err != nil {
						return outputError(errors.NewStorage(err))
					}
					output, err := env.Engine().Import(c.Context, ops.ImportInput{Data: string(data)})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}
