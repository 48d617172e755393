// Package bootstrap wires WMEC's components into a runnable Service:
// structured logging, Sentry reporting, the Catalog Store, Mapping
// Resolver stores, and artifact storage, the way the teacher's
// pkg/bootstrap wires its own adapters in NewService. Config is
// environment-variable driven, mirroring the teacher's
// GOOGLE_CLOUD_PROJECT / GCS_ARTIFACT_BUCKET / LOG_LEVEL pattern, extended
// with WMEC's own CATALOG_PATH / FUZZY_DEFAULT_THRESHOLD / USE_FIRESTORE /
// ARTIFACT_BUCKET knobs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	gcfirestore "cloud.google.com/go/firestore"
	gcstorage "cloud.google.com/go/storage"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/supergeri/workoutcanonicalmapper/internal/catalog"
	"github.com/supergeri/workoutcanonicalmapper/internal/fetch"
	"github.com/supergeri/workoutcanonicalmapper/internal/infra/blobstore"
	sentrypkg "github.com/supergeri/workoutcanonicalmapper/internal/infra/sentry"
	"github.com/supergeri/workoutcanonicalmapper/internal/resolver"
	memorystore "github.com/supergeri/workoutcanonicalmapper/internal/store/memory"
)

// Config holds WMEC's environment-driven configuration.
type Config struct {
	ProjectID string

	// CatalogPath is a local JSON file (catalog's dictFile shape); if
	// unset, the Catalog Store ships empty except for its builtin synonym
	// table, and every lookup falls through to the fuzzy/canonical layers.
	CatalogPath string

	// FuzzyDefaultThreshold overrides the Mapping Resolver's fuzzy floor
	// (resolver.Resolver.FuzzyThreshold defaults to 0.40).
	FuzzyDefaultThreshold float64

	// UseFirestore selects the Firestore-backed stores over the in-memory
	// default; false is the CLI/test guideline default.
	UseFirestore bool

	ArtifactBucket string
	SentryDSN      string
	Environment    string
	Release        string
	ServerName     string
}

// LoadConfig reads configuration from environment variables, matching the
// teacher's LoadConfig shape plus WMEC's own knobs.
func LoadConfig() *Config {
	cfg := &Config{
		ProjectID:             os.Getenv("GOOGLE_CLOUD_PROJECT"),
		CatalogPath:           os.Getenv("CATALOG_PATH"),
		FuzzyDefaultThreshold: 0.40,
		ArtifactBucket:        os.Getenv("ARTIFACT_BUCKET"),
		SentryDSN:             os.Getenv("SENTRY_DSN"),
		Environment:           os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Release:               os.Getenv("SENTRY_RELEASE"),
		ServerName:            os.Getenv("K_SERVICE"),
	}

	if v := os.Getenv("FUZZY_DEFAULT_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FuzzyDefaultThreshold = parsed
		}
	}
	if v := os.Getenv("USE_FIRESTORE"); v != "" {
		cfg.UseFirestore, _ = strconv.ParseBool(v)
	}
	if cfg.Environment == "" {
		cfg.Environment = "wmec-dev"
	}
	if cfg.Release == "" {
		if rev := os.Getenv("K_REVISION"); rev != "" {
			cfg.Release = rev
		} else {
			cfg.Release = "unknown"
		}
	}

	return cfg
}

// GetSlogHandlerOptions returns handler options matching Cloud Logging's
// expected severity/message keys, carried forward unchanged from the
// teacher's GetSlogHandlerOptions.
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
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

// ComponentHandler prefixes "[component]" onto log messages, carried
// forward unchanged from the teacher's pkg/bootstrap.
type ComponentHandler struct {
	slog.Handler
	component string
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{Handler: h.Handler.WithGroup(name), component: h.component}
}

func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{Handler: h.Handler.WithAttrs(attrs), component: newComp}
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
		newRecord := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", comp, r.Message), r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}
	return h.Handler.Handle(ctx, r)
}

// NewLogger builds a service logger with the JSONHandler -> ComponentHandler
// -> SentryHandler chain the teacher uses, reading LOG_LEVEL the same way.
func NewLogger(serviceName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, GetSlogHandlerOptions(level))
	compHandler := &ComponentHandler{Handler: jsonHandler}
	sentryHandler := sentrypkg.NewSentryHandler(compHandler)
	return slog.New(sentryHandler).With("service", serviceName)
}

// Service holds every dependency a WMEC entry point (cmd/wmec-server,
// cmd/wmec-export) needs, built once at process start.
type Service struct {
	Config *Config
	Logger *slog.Logger

	Catalog  *catalog.Store
	Resolver *resolver.Resolver
	Auth     *auth.Client
	Fetcher  *fetch.Client

	// MemJobs is non-nil when Config.UseFirestore is false; callers needing
	// job Create/Cancel (the HTTP surface) use it directly.
	MemJobs *memorystore.JobStore

	firestoreClient *gcfirestore.Client
	storageClient   *gcstorage.Client
}

// NewService initializes logging, Sentry, the Catalog Store, and the
// configured Mapping/Job stores, mirroring the teacher's NewService.
func NewService(ctx context.Context) (*Service, error) {
	cfg := LoadConfig()
	logger := NewLogger("wmec")
	slog.SetDefault(logger)

	logger.Info("initializing service", "project_id", cfg.ProjectID)

	if err := sentrypkg.Init(sentrypkg.Config{
		DSN:                cfg.SentryDSN,
		Environment:        cfg.Environment,
		Release:            cfg.Release,
		ServerName:         cfg.ServerName,
		TracesSampleRate:   0.1,
		ProfilesSampleRate: 0.1,
	}, logger); err != nil {
		logger.Warn("sentry initialization failed", "error", err)
	}

	cat := catalog.New()
	if cfg.CatalogPath != "" {
		raw, err := os.ReadFile(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		if err := cat.LoadJSON(raw); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	svc := &Service{Config: cfg, Logger: logger, Catalog: cat}

	if cfg.UseFirestore {
		fsClient, err := gcfirestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("firestore init: %w", err)
		}
		svc.firestoreClient = fsClient
		// cmd/wmec-server builds the concrete firestore.MappingStore from
		// svc.FirestoreClient() and sets svc.Resolver. No job store is
		// built here, so svc.MemJobs stays nil and bulk execute answers
		// 503. This package only owns the raw client, not WMEC's
		// domain-specific collection wrappers, so internal/bootstrap never
		// imports internal/bulkimport.
	} else {
		mem := memorystore.NewMappingStore()
		svc.Resolver = resolver.New(cat, mem, mem)
		svc.Resolver.FuzzyThreshold = cfg.FuzzyDefaultThreshold
		svc.MemJobs = memorystore.NewJobStore()
	}

	gcsClient, err := gcstorage.NewClient(ctx)
	if err != nil {
		logger.Warn("storage init failed, artifact writes will fail", "error", err)
	} else {
		svc.storageClient = gcsClient
	}

	fetcher, err := fetch.NewClient(ctx)
	if err != nil {
		logger.Warn("fetch client init failed, url/image detect will fail", "error", err)
	} else {
		svc.Fetcher = fetcher
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		logger.Warn("firebase app init failed, auth middleware disabled", "error", err)
	} else if authClient, err := fbApp.Auth(ctx); err != nil {
		logger.Warn("firebase auth init failed, auth middleware disabled", "error", err)
	} else {
		svc.Auth = authClient
	}

	return svc, nil
}

// FirestoreClient exposes the raw client for cmd/wmec-server to build
// concrete store/firestore adapters when Config.UseFirestore is set.
func (s *Service) FirestoreClient() *gcfirestore.Client { return s.firestoreClient }

// StorageClient exposes the raw client; ArtifactWriter builds its
// blobstore.GCSStore from the same client.
func (s *Service) StorageClient() *gcstorage.Client { return s.storageClient }

// BulkArtifactWriter adapts blobstore.Store's (bucket, object) shape to
// bulkimport.ArtifactWriter's (jobID, itemID) shape, keyed under
// "<jobID>/<itemID>" in Config.ArtifactBucket. It satisfies
// bulkimport.ArtifactWriter structurally without this package importing
// internal/bulkimport.
type BulkArtifactWriter struct {
	store  blobstore.Store
	bucket string
}

func (w *BulkArtifactWriter) Write(ctx context.Context, jobID, itemID string, data []byte) error {
	return w.store.Write(ctx, w.bucket, jobID+"/"+itemID, data)
}

// ArtifactWriter returns a BulkArtifactWriter bound to the Storage client
// and ArtifactBucket, or nil when either is unconfigured.
func (s *Service) ArtifactWriter() *BulkArtifactWriter {
	if s.storageClient == nil || s.Config.ArtifactBucket == "" {
		return nil
	}
	return &BulkArtifactWriter{store: &blobstore.GCSStore{Client: s.storageClient}, bucket: s.Config.ArtifactBucket}
}
