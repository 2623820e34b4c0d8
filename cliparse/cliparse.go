package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Identity modes
const (
	IdentityToken  = "token"
	IdentityHeader = "header"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	BaseURL        string
	IdentitySalt   string
	IdentityMode   string
	IdentityHeader string
	BlobDir        string
	MaxUploadSize  int64
	UploadSlotTTL  time.Duration
	ResultsTTL     time.Duration
	RateLimit      float64
	RateBurst      int
	TrustedProxies []string
	AllowedOrigins []string
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile, maxUpload, slotTTL, resultsTTL, rateLimit, rateBurst, proxies, origins string

	fs := flag.NewFlagSet("doudou", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or memory)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Public base URL for share links and blobs")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.IdentitySalt, "identity-salt", "", "Identity token salt (prefer env)")
	fs.StringVar(&cfg.IdentityMode, "identity-mode", "", "Identity provider (token or header)")
	fs.StringVar(&cfg.IdentityHeader, "identity-header", "", "Trusted identity header for header mode")

	// Uploads and limits
	fs.StringVar(&cfg.BlobDir, "blob-dir", "", "Directory for uploaded images")
	fs.StringVar(&maxUpload, "max-upload", "", "Maximum image size, e.g. 32MB")
	fs.StringVar(&slotTTL, "slot-ttl", "", "Upload slot lifetime, e.g. 10m")
	fs.StringVar(&resultsTTL, "results-ttl", "", "Results cache lifetime, e.g. 30s")
	fs.StringVar(&rateLimit, "rate", "", "Requests per second per client (0 disables)")
	fs.StringVar(&rateBurst, "burst", "", "Burst size per client")
	fs.StringVar(&proxies, "trusted-proxies", "", "Comma-separated proxy IPs or CIDRs whose X-Forwarded-For is trusted")
	fs.StringVar(&origins, "cors-origins", "", "Comma-separated origins allowed for CORS (empty allows any)")

	fs.StringVar(&envFile, "env", ".env", "Optional dotenv file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Values already in the environment win over the file
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envOr("DATABASE_TYPE", "sqlite")
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseType != "memory" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = envOr("BASE_URL", "http://localhost:"+strconv.Itoa(cfg.Port))
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// Secrets - MUST be provided
	if cfg.IdentitySalt == "" {
		cfg.IdentitySalt = os.Getenv("IDENTITY_SALT")
	}
	if cfg.IdentitySalt == "" {
		return Config{}, errors.New("IDENTITY_SALT required")
	}

	if cfg.IdentityMode == "" {
		cfg.IdentityMode = envOr("IDENTITY_MODE", IdentityToken)
	}
	if cfg.IdentityMode != IdentityToken && cfg.IdentityMode != IdentityHeader {
		return Config{}, fmt.Errorf("unsupported identity mode %q", cfg.IdentityMode)
	}
	if cfg.IdentityHeader == "" {
		cfg.IdentityHeader = envOr("IDENTITY_HEADER", "X-User-ID")
	}

	if cfg.BlobDir == "" {
		cfg.BlobDir = envOr("BLOB_DIR", "./blobs")
	}

	if maxUpload == "" {
		maxUpload = envOr("MAX_UPLOAD_SIZE", "32MB")
	}
	size, err := humanize.ParseBytes(maxUpload)
	if err != nil || size == 0 {
		return Config{}, fmt.Errorf("invalid max upload size %q", maxUpload)
	}
	cfg.MaxUploadSize = int64(size)

	if cfg.UploadSlotTTL, err = parseDuration(slotTTL, "UPLOAD_SLOT_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ResultsTTL, err = parseDuration(resultsTTL, "RESULTS_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}

	if rateLimit == "" {
		rateLimit = envOr("RATE_LIMIT", "10")
	}
	if cfg.RateLimit, err = strconv.ParseFloat(rateLimit, 64); err != nil || cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("invalid rate limit %q", rateLimit)
	}
	if rateBurst == "" {
		rateBurst = envOr("RATE_BURST", "20")
	}
	if cfg.RateBurst, err = strconv.Atoi(rateBurst); err != nil || cfg.RateBurst < 1 {
		return Config{}, fmt.Errorf("invalid rate burst %q", rateBurst)
	}

	if proxies == "" {
		proxies = os.Getenv("TRUSTED_PROXIES")
	}
	cfg.TrustedProxies = splitList(proxies)
	if origins == "" {
		origins = os.Getenv("CORS_ORIGINS")
	}
	cfg.AllowedOrigins = splitList(origins)

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(flagValue, env string, fallback time.Duration) (time.Duration, error) {
	v := flagValue
	if v == "" {
		v = os.Getenv(env)
	}
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", env, v)
	}
	return d, nil
}
