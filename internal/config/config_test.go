package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTSecret != InsecurePlaceholderSecret {
		t.Errorf("JWTSecret = %q, want the dev placeholder", cfg.JWTSecret)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.ActivationURLBase != "https://coolmath.in/activate" {
		t.Errorf("ActivationURLBase = %q, want default", cfg.ActivationURLBase)
	}
	if cfg.TrialDays != 7 {
		t.Errorf("TrialDays = %d, want 7", cfg.TrialDays)
	}
	if cfg.EventsKafkaTopic != "coolmath-events" {
		t.Errorf("EventsKafkaTopic = %q, want coolmath-events", cfg.EventsKafkaTopic)
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("ACTIVATION_URL_BASE", "https://example.test/buy/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.ActivationURLBase != "https://example.test/buy" {
		t.Errorf("ActivationURLBase = %q, want trailing slash stripped", cfg.ActivationURLBase)
	}
}

func TestLoad_ProductionRejectsPlaceholderSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail in production with the placeholder JWT_SECRET")
	}

	os.Setenv("JWT_SECRET", "real-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret != "real-secret" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "real-secret")
	}
}

func TestLoad_ProductionRequiresWebhookSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("JWT_SECRET", "real-secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail in production without RAZORPAY_WEBHOOK_SECRET")
	}
}

func TestLoad_ProductionRejectsDevOTPMode(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("JWT_SECRET", "real-secret")
	os.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec")
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when OTP_RETURN_TO_CLIENT=true in production")
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("BCRYPT_COST", "2")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for BCRYPT_COST below 4")
	}
}

func TestTokenTTL(t *testing.T) {
	cfg := &Config{TokenTTLRaw: "48h"}
	if got := cfg.TokenTTL(); got != 48*time.Hour {
		t.Errorf("TokenTTL = %v, want 48h", got)
	}
	cfg = &Config{TokenTTLRaw: "bogus"}
	if got := cfg.TokenTTL(); got != 720*time.Hour {
		t.Errorf("TokenTTL = %v, want 720h fallback", got)
	}
}

func TestOTPTTL(t *testing.T) {
	cfg := &Config{OTPTTLRaw: "5m"}
	if got := cfg.OTPTTL(); got != 5*time.Minute {
		t.Errorf("OTPTTL = %v, want 5m", got)
	}
	cfg = &Config{}
	if got := cfg.OTPTTL(); got != 10*time.Minute {
		t.Errorf("OTPTTL = %v, want 10m fallback", got)
	}
}

func TestEventsKafkaBrokersList(t *testing.T) {
	cfg := &Config{EventsKafkaBrokers: "localhost:9092, broker2:9092 ,,"}
	got := cfg.EventsKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("EventsKafkaBrokersList = %v", got)
	}
	cfg = &Config{}
	if got := cfg.EventsKafkaBrokersList(); got != nil {
		t.Errorf("EventsKafkaBrokersList = %v, want nil", got)
	}
}
