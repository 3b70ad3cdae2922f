// README: Entry point; loads config, wires services and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pickmeup/internal/config"
	httptransport "pickmeup/internal/http"
	"pickmeup/internal/infra"
	"pickmeup/internal/logging"
	"pickmeup/internal/maps"
	"pickmeup/internal/modules/location"
	"pickmeup/internal/modules/pickup"
	"pickmeup/internal/modules/travel"
	"pickmeup/internal/modules/user"
	"pickmeup/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.Log)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PICKMEUP_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.WithError(err).Fatal("firebase init")
	}
	verifier, err := fb.Verifier(ctx)
	if err != nil {
		log.WithError(err).Fatal("firebase auth init")
	}

	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(ctx, cfg.DB.DSN); err != nil {
			log.WithError(err).Fatal("migrate")
		}
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer dbPool.Close()

	locations := location.NewStore(dbPool)
	userSvc := user.NewService(user.NewStore(dbPool), log)
	travelSvc := travel.NewService(travel.NewStore(dbPool), locations, userSvc, log)

	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps)
		if err != nil {
			log.WithError(err).Fatal("maps init")
		}
		var router maps.Router = maps.NewRouteService(client, cfg.Maps)
		if cfg.Redis.Addr != "" {
			rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
			if err != nil {
				log.WithError(err).Warn("redis unavailable, route cache disabled")
			} else {
				defer rdb.Close()
				router = maps.NewCachedRouter(router, rdb, cfg.Maps.RouteCacheTTL, log)
			}
		}
		travelSvc.WithRouter(router, cfg.Maps.Timeout).WithGeocoder(maps.NewGeocoder(client, cfg.Maps), cfg.Maps.Timeout)
	} else {
		log.Info("maps api key not set, routes and reverse geocoding disabled")
	}

	var channels notify.Multi
	if cfg.SMTP.Enabled() {
		mailer, err := notify.NewEmail(cfg.SMTP, log)
		if err != nil {
			log.WithError(err).Fatal("email init")
		}
		channels = append(channels, mailer)
	}
	if cfg.Firebase.PushEnabled {
		fcm, err := fb.Messaging(ctx)
		if err != nil {
			log.WithError(err).Fatal("firebase messaging init")
		}
		channels = append(channels, notify.NewPush(fcm, log))
	}
	var notifier pickup.Notifier
	if len(channels) > 0 {
		notifier = channels
	}
	pickupSvc := pickup.NewService(pickup.NewStore(dbPool), userSvc, locations, notifier, log)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Travels:  travelSvc,
		Requests: pickupSvc,
		Users:    userSvc,
		Verifier: verifier,
		Log:      log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("pickmeup api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server")
	}
}
