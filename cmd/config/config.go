package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	RunAddress          string
	DatabaseURI         string
	LogLevel            string
	JWTSecret           string
	AdminUsername       string
	AdminPassword       string
	CommissionAccount   string
	ResubmitAfterReject bool
	AuditInterval       time.Duration
)

func ParseFlags() {

	// Merge .env without clobbering variables already set in the environment.
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	flag.StringVar(&RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&DatabaseURI, "d", "", "database uri")
	flag.StringVar(&LogLevel, "l", "info", "log level")
	flag.StringVar(&JWTSecret, "s", "", "jwt signing secret")
	flag.StringVar(&AdminUsername, "admin-user", "", "seed administrator username")
	flag.StringVar(&AdminPassword, "admin-pass", "", "seed administrator password")
	flag.StringVar(&CommissionAccount, "commission-account", "", "user code credited with transfer commission, empty burns it")
	flag.BoolVar(&ResubmitAfterReject, "resubmit", true, "allow resubmitting a task after rejection")
	flag.DurationVar(&AuditInterval, "audit-interval", time.Minute, "ledger supply monitor interval")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		DatabaseURI = databaseURI
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		LogLevel = logLevel
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JWTSecret = secret
	}
	if adminUser := os.Getenv("ADMIN_USERNAME"); adminUser != "" {
		AdminUsername = adminUser
	}
	if adminPass := os.Getenv("ADMIN_PASSWORD"); adminPass != "" {
		AdminPassword = adminPass
	}
	if sink := os.Getenv("COMMISSION_ACCOUNT"); sink != "" {
		CommissionAccount = sink
	}
	if resubmit := os.Getenv("RESUBMIT_AFTER_REJECT"); resubmit != "" {
		ResubmitAfterReject = resubmit == "true" || resubmit == "1"
	}
	if interval := os.Getenv("AUDIT_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			AuditInterval = parsed
		}
	}

	// Never sign tokens with an empty key. The fallback secret is ephemeral,
	// which is fine: the in-memory token registry already invalidates every
	// session on restart.
	if JWTSecret == "" {
		JWTSecret = randomSecret()
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
