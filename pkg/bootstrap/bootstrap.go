package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/infrastructure/database"
	infrapubsub "github.com/opsboard/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/opsboard/server/pkg/infrastructure/sentry"
	infrastorage "github.com/opsboard/server/pkg/infrastructure/storage"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID          string
	EnablePublish      bool
	GCSUploadBucket    string
	SegmentsCollection string
	SegmentCapacity    int
	SegmentMaxBytes    int
	WritePacing        time.Duration
	WriteBackoffBase   time.Duration
	WriteMaxRetries    int
	SentryDSN          string
	Environment        string
}

// Limits returns the planner limits described by the config.
func (c *Config) Limits() batching.Limits {
	return batching.Limits{MaxRecords: c.SegmentCapacity, MaxBytes: c.SegmentMaxBytes}
}

// RetryPolicy returns the writer policy described by the config.
func (c *Config) RetryPolicy() batching.RetryPolicy {
	return batching.RetryPolicy{
		MaxRetries:  c.WriteMaxRetries,
		BackoffBase: c.WriteBackoffBase,
		PacingDelay: c.WritePacing,
	}
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Store  shared.BlobStore
	Pub    shared.Publisher
	Config *Config

	closers []func() error
}

// Close releases the underlying clients.
func (s *Service) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}
	collection := os.Getenv("LEAD_SEGMENTS_COLLECTION")
	if collection == "" {
		collection = shared.CollectionLeadSegments
	}

	policy := batching.DefaultRetryPolicy()
	return &Config{
		ProjectID:          projectID,
		EnablePublish:      os.Getenv("ENABLE_PUBLISH") == "true",
		GCSUploadBucket:    os.Getenv("GCS_UPLOAD_BUCKET"),
		SegmentsCollection: collection,
		SegmentCapacity:    envInt("SEGMENT_CAPACITY", batching.DefaultMaxRecords),
		SegmentMaxBytes:    envInt("SEGMENT_MAX_BYTES", batching.DefaultMaxBytes),
		WritePacing:        envDuration("WRITE_PACING", policy.PacingDelay),
		WriteBackoffBase:   envDuration("WRITE_BACKOFF_BASE", policy.BackoffBase),
		WriteMaxRetries:    envInt("WRITE_MAX_RETRIES", policy.MaxRetries),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		Environment:        os.Getenv("ENVIRONMENT"),
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring invalid integer env var", "key", key, "value", v)
		return def
	}
	return n
}

// envDuration accepts Go durations ("1500ms") or whole seconds ("2").
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("Ignoring invalid duration env var", "key", key, "value", v)
	return def
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	comp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			comp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: comp,
	}
}

func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})

	if comp != "" {
		prefixed := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", comp, r.Message), r.PC)
		r.Attrs(func(a slog.Attr) bool {
			prefixed.AddAttrs(a)
			return true
		})
		r = prefixed
	}

	return h.Handler.Handle(ctx, r)
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	opts := GetSlogHandlerOptions(ParseLevel(os.Getenv("LOG_LEVEL")))
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewService initializes all standard dependencies. opts are passed to every
// Google Cloud client.
func NewService(ctx context.Context, serviceName string, cfg *Config, opts ...option.ClientOption) (*Service, error) {
	logger := NewLogger(serviceName)
	slog.SetDefault(logger)
	if cfg == nil {
		cfg = LoadConfig()
	}

	logger.Info("Initializing service", "project_id", cfg.ProjectID, "collection", cfg.SegmentsCollection)

	if err := infrasentry.Init(infrasentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServerName:  serviceName,
	}, logger); err != nil {
		return nil, err
	}

	svc := &Service{Config: cfg}

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		logger.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}
	svc.closers = append(svc.closers, fsClient.Close)
	svc.DB = database.NewFirestoreAdapter(fsClient, cfg.SegmentsCollection)

	// Pub/Sub
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			_ = svc.Close()
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		svc.closers = append(svc.closers, psClient.Close)
		svc.Pub = &infrapubsub.PubSubAdapter{Client: psClient}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		svc.Pub = &infrapubsub.LogPublisher{Logger: logger}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		logger.Error("Storage init failed", "error", err)
		_ = svc.Close()
		return nil, fmt.Errorf("storage init: %w", err)
	}
	svc.closers = append(svc.closers, gcsClient.Close)
	svc.Store = &infrastorage.StorageAdapter{Client: gcsClient}

	return svc, nil
}
