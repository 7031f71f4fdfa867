package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/roach88/lifeline/internal/clock"
	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/syncer"
)

// ErrAlreadyIngested is returned by Ingest for a known originRequestId.
var ErrAlreadyIngested = errors.New("already ingested")

// Ledger is an in-memory ingestion service, idempotent on originRequestId.
// It backs local demos, simulations and tests, either directly as a
// syncer.Backend or over HTTP through Handler.
//
// Thread-safety: all methods are safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	clock   clock.Clock
	logger  *slog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock sets the clock used for ReceivedAt.
func WithLedgerClock(c clock.Clock) LedgerOption {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithLedgerLogger sets the logger. Default: slog.Default().
func WithLedgerLogger(lg *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = lg
	}
}

// NewLedger creates an empty Ledger.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		entries: make(map[string]*Entry),
		clock:   clock.System{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ingest stores s unless its originRequestId is already held, in which
// case ErrAlreadyIngested is returned and only the copy count changes.
// Invalid records return *model.ValidationError.
func (l *Ledger) Ingest(s Submission) error {
	if err := s.RequestRecord.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := s.OriginRequestID
	if e, ok := l.entries[key]; ok {
		e.Copies++
		return fmt.Errorf("ingest %s: %w", key, ErrAlreadyIngested)
	}

	l.entries[key] = &Entry{
		Submission: s,
		ReceivedAt: model.Millis(l.clock.Now()),
		Copies:     1,
	}
	l.order = append(l.order, key)
	l.logger.Info("ledger ingested",
		"origin_request_id", key,
		"from_device", s.SyncedFromDeviceID,
		"hop_count", s.HopCount,
	)
	return nil
}

// Upload implements syncer.Backend. A duplicate is success.
func (l *Ledger) Upload(_ context.Context, u syncer.Upload) error {
	err := l.Ingest(NewSubmission(u))
	if errors.Is(err, ErrAlreadyIngested) {
		return nil
	}
	return err
}

// Get returns the entry for an originRequestId.
func (l *Ledger) Get(originRequestID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[originRequestID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns every entry in ingestion order.
func (l *Ledger) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, *l.entries[key])
	}
	return out
}

// Len returns the number of distinct logical requests held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Handler serves the ingestion contract over HTTP.
func (l *Ledger) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), l.logRequests())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/requests", func(c *gin.Context) {
		c.JSON(http.StatusOK, l.All())
	})
	r.POST("/requests", l.handleIngest)
	return r
}

func (l *Ledger) handleIngest(c *gin.Context) {
	var s Submission
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := l.Ingest(s)
	var verr *model.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"originRequestId": s.OriginRequestID})
	case errors.Is(err, ErrAlreadyIngested):
		c.JSON(http.StatusConflict, gin.H{"originRequestId": s.OriginRequestID, "error": "already ingested"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (l *Ledger) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		l.logger.Debug("ledger http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
