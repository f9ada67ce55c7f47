// Command prizewheel runs the promotional prize wheel service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caiqy/prizewheel/internal/app"
	"github.com/caiqy/prizewheel/internal/config"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: prizewheel <command> [flags]

commands:
  serve          run the HTTP server (default)
  migrate        create or update database tables
  create-admin   create an admin account or reset its password
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Error("prizewheel exited")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to config.yaml (default $PRIZEWHEEL_CONFIG or config.yaml)")
	email := fs.String("email", "", "admin email (create-admin)")
	password := fs.String("password", "", "admin password (create-admin; default $ADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	appCfg := config.AppConfig{ConfigPath: *configPath}

	switch command {
	case "serve":
		return app.RunServer(ctx, appCfg)
	case "migrate":
		return app.Migrate(ctx, appCfg)
	case "create-admin":
		pw := *password
		if pw == "" {
			pw = os.Getenv("ADMIN_PASSWORD")
		}
		return app.CreateAdmin(ctx, appCfg, app.CreateAdminParams{Email: *email, Password: pw})
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
