package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-blog/app"
	"github.com/goliatone/go-blog/config"
	"github.com/goliatone/go-blog/fixtures"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "blog",
		Usage: "multi-user blogging server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "configuration profile: development, testing or production",
				EnvVars: []string{"BLOG_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Usage:   "sqlite database dsn",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			serveCmd,
			deployCmd,
			fakeCmd,
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the web server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "listen address",
			EnvVars: []string{"BLOG_ADDR"},
		},
		&cli.BoolFlag{
			Name:  "deploy",
			Usage: "run deploy before serving",
		},
		&cli.DurationFlag{
			Name:  "shutdown-timeout",
			Usage: "time allowed for in flight requests and mail on shutdown",
			Value: 10 * time.Second,
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cctx)
		if err != nil {
			return err
		}
		if addr := cctx.String("addr"); addr != "" {
			a.Config().ListenAddr = addr
		}

		if cctx.Bool("deploy") {
			if _, err := a.Deploy(ctx); err != nil {
				return err
			}
		}

		errc := make(chan error, 1)
		go func() {
			errc <- a.Listen()
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		a.Logger().Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cctx.Duration("shutdown-timeout"))
		defer cancel()
		return a.Shutdown(sctx)
	},
}

var deployCmd = &cli.Command{
	Name:  "deploy",
	Usage: "create the schema, insert roles and add missing self follows",
	Action: func(cctx *cli.Context) error {
		a, err := build(cctx.Context, cctx)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		res, err := a.Deploy(cctx.Context)
		if err != nil {
			return err
		}
		fmt.Printf("roles: %d, self follows added: %d\n", len(res.Roles), res.SelfFollows)
		return nil
	},
}

var fakeCmd = &cli.Command{
	Name:  "fake",
	Usage: "fill the database with fake users and content",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "users",
			Usage: "number of users to create",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "posts",
			Usage: "number of posts to create",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "max-follows",
			Usage: "create up to this many follows for each user",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "comments",
			Usage: "number of comments to create",
			Value: 200,
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed, 0 picks one",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "password shared by the fake accounts",
			Value: fixtures.DefaultPassword,
		},
		&cli.BoolFlag{
			Name:  "hashid",
			Usage: "derive user ids from their email",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		a, err := build(ctx, cctx)
		if err != nil {
			return err
		}
		defer a.Shutdown(context.Background())

		if _, err := a.Deploy(ctx); err != nil {
			return err
		}

		gen := fixtures.New(a.Services().Repo, a.DB(),
			fixtures.WithSeed(cctx.Int64("seed")),
			fixtures.WithPassword(cctx.String("password")),
			fixtures.WithHashid(cctx.Bool("hashid")),
			fixtures.WithLogger(a.Logger()),
		)

		if _, err := gen.Users(ctx, cctx.Int("users")); err != nil {
			return err
		}
		if _, err := gen.Posts(ctx, cctx.Int("posts")); err != nil {
			return err
		}
		if _, err := gen.Follows(ctx, cctx.Int("max-follows")); err != nil {
			return err
		}
		_, err = gen.Comments(ctx, cctx.Int("comments"))
		return err
	},
}

func build(ctx context.Context, cctx *cli.Context) (*app.App, error) {
	vars := config.Environ()
	if profile := cctx.String("profile"); profile != "" {
		vars["BLOG_CONFIG"] = profile
	}
	if dsn := cctx.String("database"); dsn != "" {
		vars["DATABASE_URL"] = dsn
	}

	cfg, err := config.LoadFrom(vars)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}
