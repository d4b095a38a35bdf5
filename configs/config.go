package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/joho/godotenv"
)

// Config is the ticket service configuration read from the environment.
type Config struct {
	Port           string
	BackendURL     string
	BackendTimeout time.Duration // zero means no timeout
	RateLimit      int           // requests per IP per minute
	JWTSecret      string
	LiffID         string
	AllowedOrigins []string
	PostgresURL    string
	MongoURI       string
	NatsURL        string // empty runs without the page relay
	NatsToken      string
	ArchiveTTL     time.Duration
}

func LoadEnv(service string) {
	log.Infof("%s service configuration and env variables loading started ...", service)
	if err := godotenv.Load("./.env"); err != nil {
		log.Warnf("no .env file loaded, using process environment: %v", err)
		return
	}

	log.Info(".env file loaded.")
}

// Load reads Config from the environment, falling back to defaults.
func Load() (Config, error) {
	c := Config{
		Port:           getenv("SERVICE_PORT", "8080"),
		BackendURL:     getenv("BACKEND_URL", "http://localhost:8000"),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		LiffID:         os.Getenv("LIFF_ID"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		NatsURL:        os.Getenv("NATS_URL"),
		NatsToken:      os.Getenv("NATS_TOKEN"),
	}

	var err error
	if c.RateLimit, err = strconv.Atoi(getenv("RATE_LIMIT", "100")); err != nil {
		return c, err
	}
	if c.BackendTimeout, err = time.ParseDuration(getenv("BACKEND_TIMEOUT", "0s")); err != nil {
		return c, err
	}
	if c.ArchiveTTL, err = time.ParseDuration(getenv("SCAN_ARCHIVE_TTL", "720h")); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func CreateUniqueInstance(service string) string {
	id, err := uuid.NewV4() // instance identifier
	if err != nil {
		log.Errorf("error generating instanceId: %s", err)
		os.Exit(1)
	}
	log.Infof(service+" service with Instance ID: %s is ready", id)
	return id.String()
}

func CORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

// Logging sends the standard logger to .l_g/<service>.log. LOG_STDOUT=1
// keeps it on stdout.
func Logging(service string) {
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.InfoLevel)

	if os.Getenv("LOG_STDOUT") == "1" {
		return
	}

	logFolder := ".l_g"

	_, err := os.Stat(logFolder)
	if os.IsNotExist(err) {
		err = os.Mkdir(logFolder, 0755)
		if err != nil {
			log.Warnf("unable to create folder for log %s", err)
			return
		}
	}

	logFilePath := filepath.Join(logFolder, service+".log")

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}

	log.SetOutput(file)

	log.Infof("log to file started for service: %s", service)
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Printf("%s %s %s %d %s %s",
					r.Method,
					r.RequestURI,
					r.RemoteAddr,
					ww.Status(),
					http.StatusText(ww.Status()),
					time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
