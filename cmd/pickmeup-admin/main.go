// README: Maintenance CLI: apply migrations, print schema version, reconcile seat counters.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"pickmeup/internal/config"
	"pickmeup/internal/infra"
	"pickmeup/internal/logging"
	"pickmeup/internal/modules/location"
	"pickmeup/internal/modules/pickup"
	"pickmeup/internal/modules/user"
	"pickmeup/internal/types"
)

const usage = `usage: pickmeup-admin <command>

commands:
  migrate                 apply pending migrations
  version                 print the current schema version
  reconcile -travel <id>  recompute a travel's occupied seats from accepted requests
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.Log)
	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		if err := infra.Migrate(ctx, cfg.DB.DSN); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.Info("migrations applied")
	case "version":
		v, err := infra.MigrationVersion(ctx, cfg.DB.DSN)
		if err != nil {
			log.WithError(err).Fatal("version")
		}
		fmt.Println(v)
	case "reconcile":
		fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
		travelID := fs.Int64("travel", 0, "travel id")
		_ = fs.Parse(os.Args[2:])
		if err := reconcile(ctx, cfg, log, types.ID(*travelID)); err != nil {
			log.WithError(err).Fatal("reconcile")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func reconcile(ctx context.Context, cfg config.Config, log logrus.FieldLogger, travelID types.ID) error {
	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewService(user.NewStore(db), log)
	svc := pickup.NewService(pickup.NewStore(db), users, location.NewStore(db), nil, log)
	res, err := svc.Reconcile(ctx, travelID)
	if err != nil {
		return err
	}
	state := "consistent"
	switch {
	case res.Repaired:
		state = "repaired"
	case res.Drift() != 0:
		state = "drift not repaired"
	}
	fmt.Println(strings.Join([]string{
		fmt.Sprintf("travel=%d", res.TravelID),
		fmt.Sprintf("stored=%d", res.Stored),
		fmt.Sprintf("actual=%d", res.Actual),
		state,
	}, " "))
	return nil
}
