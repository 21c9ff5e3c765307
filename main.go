package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"fieldforce/m/internal/api"
	"fieldforce/m/internal/attendance"
	"fieldforce/m/internal/config"
	"fieldforce/m/internal/database"
	"fieldforce/m/internal/filestore"
	"fieldforce/m/internal/geocode"
	"fieldforce/m/internal/invoice"
	"fieldforce/m/internal/logger"
	"fieldforce/m/internal/migrations"
	"fieldforce/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithComponent("main")

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	files, err := filestore.New(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, falling back to local")
		loc = time.Local
	}

	invoices := invoice.NewService(store.NewInvoiceStore(db), files)
	ledger := attendance.NewLedger(
		store.NewAttendanceStore(db),
		attendance.NewResolver(loc),
		geocode.NewGoogle(cfg.GeocodeAPIKey),
		files,
	)

	handler := api.New(invoices, ledger, files)

	log.Info().Str("port", cfg.HTTPPort).Msg("fieldforce backend starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
