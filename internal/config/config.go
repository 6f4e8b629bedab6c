package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// Version is the current version of Snapq
	Version = "1"
	// AppName is the application name
	AppName = "Snapq Server"
)

// Config holds all configuration options for the Snapq server
type Config struct {
	// Server
	Host    string
	Port    int
	BaseURL string // Full base URL for API responses (e.g., http://localhost:8000)

	// Browser (Chromium)
	ChromeBin      string // Path to an existing Chromium binary; downloaded when empty
	ChromeRevision int

	// Capture pipeline
	MaxConcurrent    int           // simultaneous browser sessions
	ViewportWidth    int           // default viewport width
	ViewportHeight   int           // default viewport height
	SessionDeadline  time.Duration // hard wall-clock limit per capture session
	NavigateTimeout  time.Duration // bounded navigation wait
	ClickWait        time.Duration // wait for a click target to become visible
	NewPageWait      time.Duration // race window for a click opening a new page
	SettleWait       time.Duration // post-interaction settle wait
	SelectorWait     time.Duration // wait for the capture element to resolve
	MaxWaitAfterLoad time.Duration // cap on the request's waitAfterLoadMs

	// Storage
	StorageBackend string // "s3" or "local"
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string // read from SNAPQ_S3_ACCESS_KEY
	S3SecretKey    string // read from SNAPQ_S3_SECRET_KEY
	S3UseSSL       bool
	S3PublicURL    string // public base URL for uploaded objects, defaults to the bucket endpoint
	LocalDir       string // directory for the local storage backend

	// Security
	RateLimitRequests int           // requests per window
	RateLimitWindow   time.Duration // time window for rate limiting
	ResultTTL         time.Duration // TTL for job records

	// Flags
	ShowVersion bool
	ShowHelp    bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8000,
		BaseURL:           "", // Will be auto-generated if empty
		ChromeBin:         "",
		ChromeRevision:    0,
		MaxConcurrent:     5,
		ViewportWidth:     1280,
		ViewportHeight:    800,
		SessionDeadline:   120 * time.Second,
		NavigateTimeout:   30 * time.Second,
		ClickWait:         10 * time.Second,
		NewPageWait:       1500 * time.Millisecond,
		SettleWait:        10 * time.Second,
		SelectorWait:      15 * time.Second,
		MaxWaitAfterLoad:  10 * time.Second,
		StorageBackend:    "s3",
		S3Endpoint:        "",
		S3Region:          "us-east-1",
		S3Bucket:          "",
		S3UseSSL:          true,
		S3PublicURL:       "",
		LocalDir:          "./data/screenshots",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		ResultTTL:         24 * time.Hour,
		ShowVersion:       false,
		ShowHelp:          false,
	}
}

// ParseFlags parses command line flags and returns the config
func ParseFlags() *Config {
	cfg := DefaultConfig()

	// Server flags
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Host address to bind the server")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port number for the server")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Base URL for API responses (e.g., http://localhost:8000)")

	// Browser flags
	flag.StringVar(&cfg.ChromeBin, "chrome-bin", cfg.ChromeBin, "Path to a Chromium binary (downloaded if empty)")
	flag.IntVar(&cfg.ChromeRevision, "chrome-revision", cfg.ChromeRevision, "Chromium revision to download (0 uses default)")

	// Capture flags
	flag.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Maximum concurrent browser sessions (1-20)")
	flag.IntVar(&cfg.ViewportWidth, "viewport-width", cfg.ViewportWidth, "Default viewport width")
	flag.IntVar(&cfg.ViewportHeight, "viewport-height", cfg.ViewportHeight, "Default viewport height")
	flag.DurationVar(&cfg.SessionDeadline, "session-deadline", cfg.SessionDeadline, "Hard deadline per capture session")
	flag.DurationVar(&cfg.NavigateTimeout, "navigate-timeout", cfg.NavigateTimeout, "Navigation timeout")

	// Storage flags
	flag.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "Storage backend: s3 or local")
	flag.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3 endpoint host (e.g., s3.amazonaws.com)")
	flag.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	flag.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket for screenshots")
	flag.BoolVar(&cfg.S3UseSSL, "s3-ssl", cfg.S3UseSSL, "Use TLS for the S3 endpoint")
	flag.StringVar(&cfg.S3PublicURL, "s3-public-url", cfg.S3PublicURL, "Public base URL for uploaded objects")
	flag.StringVar(&cfg.LocalDir, "local-dir", cfg.LocalDir, "Directory for the local storage backend")

	// Security flags
	flag.IntVar(&cfg.RateLimitRequests, "rate-limit", cfg.RateLimitRequests, "Rate limit requests per minute")

	// Other flags
	flag.BoolVar(&cfg.ShowVersion, "version", cfg.ShowVersion, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", cfg.ShowHelp, "Show help message")

	// Custom usage function
	flag.Usage = func() {
		PrintHelp()
	}

	flag.Parse()

	// Credentials come from the environment, never from flags
	cfg.S3AccessKey = os.Getenv("SNAPQ_S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("SNAPQ_S3_SECRET_KEY")
	if v := os.Getenv("SNAPQ_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("SNAPQ_S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = v
	}

	// Auto-generate BaseURL if not provided
	if cfg.BaseURL == "" {
		host := cfg.Host
		if host == "0.0.0.0" {
			host = "localhost"
		}
		cfg.BaseURL = fmt.Sprintf("http://%s:%d", host, cfg.Port)
	}

	// Validate bounds
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxConcurrent > 20 {
		cfg.MaxConcurrent = 20
	}
	if cfg.RateLimitRequests < 1 {
		cfg.RateLimitRequests = 100
	}

	return cfg
}

// ValidateStorage checks that the configured storage backend is usable.
// A failure here disables the capture API rather than crashing the server.
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case "local":
		if c.LocalDir == "" {
			return fmt.Errorf("local storage requires -local-dir")
		}
		return nil
	case "s3":
		var missing []string
		if c.S3Endpoint == "" {
			missing = append(missing, "SNAPQ_S3_ENDPOINT")
		}
		if c.S3Bucket == "" {
			missing = append(missing, "SNAPQ_S3_BUCKET")
		}
		if c.S3AccessKey == "" {
			missing = append(missing, "SNAPQ_S3_ACCESS_KEY")
		}
		if c.S3SecretKey == "" {
			missing = append(missing, "SNAPQ_S3_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required storage configuration: %s", strings.Join(missing, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
}

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("%s v%s\n", AppName, Version)
}

// PrintHelp prints help information
func PrintHelp() {
	fmt.Printf(`%s v%s (Screenshot + Queue)

Usage:
  ./server [flags]

Server:
  --host             %s
  --port             %d
  --base-url         %s (auto-generated if empty)

Browser (Chromium):
  --chrome-bin       path to an existing binary (downloaded if empty)
  --chrome-revision  %d

Capture:
  --max-concurrent   %d (simultaneous browser sessions)
  --viewport-width   %d
  --viewport-height  %d
  --session-deadline %s
  --navigate-timeout %s

Storage:
  --storage          %s (s3 or local)
  --s3-endpoint      set via flag or SNAPQ_S3_ENDPOINT
  --s3-region        %s
  --s3-bucket        set via flag or SNAPQ_S3_BUCKET
  --s3-ssl           %v
  --s3-public-url    public base URL for uploaded objects
  --local-dir        %s

  S3 credentials are read from SNAPQ_S3_ACCESS_KEY / SNAPQ_S3_SECRET_KEY.

Security:
  --rate-limit       %d (requests per minute)

Other:
  --version          show version
  --help             show this help

`, AppName, Version,
		"0.0.0.0", 8000, "http://localhost:8000",
		0,
		5, 1280, 800, "2m0s", "30s",
		"s3", "us-east-1", true, "./data/screenshots",
		100)
}

// HandleFlags handles version and help flags, exits if needed
func HandleFlags(cfg *Config) {
	if cfg.ShowVersion {
		PrintVersion()
		os.Exit(0)
	}

	if cfg.ShowHelp {
		PrintHelp()
		os.Exit(0)
	}
}
