package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// RegistrarDSN is the Postgres DSN of the university registrar system.
	// Empty disables the outbound allocation sync.
	RegistrarDSN      string
	RegistrarSchedule string

	// WindowSweepSchedule controls how often expired application windows
	// are closed.
	WindowSweepSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           getEnv("JWT_SECRET", "secret"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:              getEnv("DB_NAME", "acadhub"),
		SkipAuth:            getEnv("SKIP_AUTH", "false") == "true",
		Environment:         getEnv("ENVIRONMENT", "development"),
		AppId:               getEnv("APP_ID", "acadhub"),
		RegistrarDSN:        getEnv("REGISTRAR_DSN", ""),
		RegistrarSchedule:   getEnv("REGISTRAR_SCHEDULE", "@every 15m"),
		WindowSweepSchedule: getEnv("WINDOW_SWEEP_SCHEDULE", "@every 10m"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
