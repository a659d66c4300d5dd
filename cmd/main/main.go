package main

// @title Go WhatsApp Group Exporter
// @version 1.0.0
// @description Lists the WhatsApp groups of a linked account and exports their members as XLSX or CSV

// @contact.name gdbrns
// @contact.url https://github.com/gdbrns/go-whatsapp-group-exporter

// @license.name MIT
// @license.url https://github.com/gdbrns/go-whatsapp-group-exporter/blob/main/LICENSE

// @host localhost:1998
// @BasePath /

// @securityDefinitions.apikey AdminAuth
// @in header
// @name X-Admin-Secret
// @description Admin secret key for minting access tokens

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token, required only when JWT_SECRET_KEY is set

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/directory"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/env"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/export"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/relay"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-group-exporter/pkg/whatsapp"

	"github.com/gdbrns/go-whatsapp-group-exporter/internal"
)

type Server struct {
	Address string
	Port    string
}

func main() {
	var err error

	log.SetLevel(env.GetEnvStringOrDefault("WHATSAPP_LOG_LEVEL", "info"))

	// Initialize WhatsApp Datastore
	datastore, err := pkgWhatsApp.OpenDatastore(context.Background(), pkgWhatsApp.DatastoreConfig{
		Type:       env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite"),
		URI:        env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", ""),
		SessionDir: env.GetEnvStringOrDefault("WHATSAPP_SESSION_DIR", ".wa_session"),
	}, log.WhatsMeow("Database"))
	if err != nil {
		log.Print(nil).WithError(err).Fatal("Failed to initialize WhatsApp client datastore")
	}
	log.Print(nil).Info("database is ok")

	// Initialize Session, Relay and Directory
	hub := relay.NewHub()
	versions := pkgWhatsApp.NewVersionRefresher(env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", 10*time.Minute))
	session := pkgWhatsApp.NewSession(datastore, hub, pkgWhatsApp.NewGroupIndex(), versions, pkgWhatsApp.Config{
		ProxyURL:       env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),
		ConnectTimeout: env.GetEnvDurationOrDefault("WHATSAPP_CONNECT_TIMEOUT", 5*time.Minute),
		Logger:         log.WhatsMeow("Client"),
	})
	hub.SetReplay(session.ReplayEvents)

	official := pkgWhatsApp.NewOfficialSource(session)
	probe := pkgWhatsApp.NewProbeSource(session)
	enumerator := directory.NewEnumerator(official, probe)
	resolver := directory.NewResolver(official, probe,
		env.GetEnvIntOrDefault("WHATSAPP_CONTACT_LOOKUP_WORKERS", 8),
		env.GetEnvFloat64OrDefault("WHATSAPP_CONTACT_LOOKUP_RPS", 0))

	exportDefault, err := export.ParseKind(env.GetEnvStringOrDefault("EXPORT_DEFAULT_FORMAT", "xlsx"), export.KindXLSX)
	if err != nil {
		log.Print(nil).Warn("Invalid EXPORT_DEFAULT_FORMAT; defaulting to xlsx")
		exportDefault = export.KindXLSX
	}

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
		Next: func(c *fiber.Ctx) bool {
			return strings.Contains(c.Path(), "docs") || strings.HasSuffix(c.Path(), "/ws")
		},
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:  router.CORSOrigin,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Admin-Secret",
		AllowMethods:  "GET,POST",
		ExposeHeaders: "Content-Disposition",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router Cache
	app.Use(router.HttpCacheInMemory(router.CacheTTLSeconds))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app, internal.Dependencies{
		Session:       session,
		Groups:        enumerator,
		Members:       resolver,
		Versions:      versions,
		Index:         session.Index(),
		Hub:           hub,
		ExportDefault: exportDefault,
	})

	// Running Startup Tasks
	go internal.Startup(session, internal.StartupConfig{
		Retries:     env.GetEnvIntOrDefault("WHATSAPP_STARTUP_RECONNECT_RETRIES", 5),
		BaseBackoff: env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RECONNECT_BACKOFF_BASE", 2*time.Second),
		MaxBackoff:  env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RECONNECT_BACKOFF_MAX", 30*time.Second),
	})

	// Running Routines Tasks
	internal.Routines(c, internal.LoadRoutineConfig(), session, versions)

	// Get Server Configuration with defaults
	var serverConfig Server

	// SERVER_ADDRESS: default "0.0.0.0" (all interfaces)
	serverConfig.Address = env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")

	// SERVER_PORT: default "1998"
	serverConfig.Port = env.GetEnvStringOrDefault("SERVER_PORT", "1998")

	// Start Server
	go func() {
		if err := app.Listen(serverConfig.Address + ":" + serverConfig.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Close push subscribers first so open WebSockets do not hold the shutdown
	hub.Close()

	// Try To Shutdown Server
	err = app.ShutdownWithContext(ctxShutdown)
	if err != nil {
		log.Print(nil).Error(err.Error())
	}

	// Try To Shutdown Cron
	c.Stop()

	// Disconnect WhatsApp Client and Datastore
	session.Close()
	if err := datastore.Close(); err != nil {
		log.Print(nil).WithError(err).Error("Failed to close datastore")
	}
}
