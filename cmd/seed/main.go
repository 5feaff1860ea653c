// seed grants a trial to a development device for local testing.
// Idempotent: an existing device row is left untouched.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"coolmath-pro/backend/internal/config"
	"coolmath-pro/backend/internal/db"
	"coolmath-pro/backend/internal/device"
	devicerepo "coolmath-pro/backend/internal/device/repository"
	deviceservice "coolmath-pro/backend/internal/device/service"
)

const devDeviceID = "dev-device-001"

func main() {
	deviceID := flag.String("device", devDeviceID, "Raw device identifier to grant a trial to")
	days := flag.Int("days", 0, "Trial length in days (0 = TRIAL_DAYS from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	trialDays := *days
	if trialDays <= 0 {
		trialDays = cfg.TrialDays
	}

	svc := deviceservice.NewActivationService(devicerepo.NewPostgresRepository(database), cfg.ActivationURLBase, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := svc.GrantTrial(ctx, *deviceID, trialDays)
	if err != nil {
		log.Fatalf("grant trial: %v", err)
	}

	trialEnd := "none"
	if d.TrialEnd != nil {
		trialEnd = d.TrialEnd.Format(time.RFC3339)
	}
	log.Printf("device %s (key %s): status=%s trial_end=%s", *deviceID, device.Key(*deviceID), d.Status, trialEnd)
}
