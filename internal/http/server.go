package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taxibook/internal/cache"
	"taxibook/internal/ledger"
	"taxibook/internal/log"
)

// ExportPublisher enqueues an export request for the worker.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, jobID string) error
}

type Server struct {
	http.Server

	logger *log.Logger

	expenses  ledger.ExpenseStore
	incomes   ledger.IncomeStore
	safety    ledger.SafetyStore
	jobs      ledger.ExportJobStore
	publisher ExportPublisher // nil when AMQP is not configured

	rateLimiter *rateLimiter

	// Report summaries are recomputed from the full record set on every
	// request, so a short TTL cache absorbs dashboard polling.
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

type Deps struct {
	Expenses  ledger.ExpenseStore
	Incomes   ledger.IncomeStore
	Safety    ledger.SafetyStore
	Jobs      ledger.ExportJobStore
	Publisher ExportPublisher
	Logger    *log.Logger
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:       logger,
		expenses:     deps.Expenses,
		incomes:      deps.Incomes,
		safety:       deps.Safety,
		jobs:         deps.Jobs,
		publisher:    deps.Publisher,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[summaryResponse](100, 2*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/expenses", s.withRequestLog(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.withRequestLog(s.handleListExpenses))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withRequestLog(s.handleDeleteExpense))
	mux.HandleFunc("POST /api/incomes", s.withRequestLog(s.handleCreateIncome))
	mux.HandleFunc("GET /api/incomes", s.withRequestLog(s.handleListIncomes))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withRequestLog(s.handleDeleteIncome))
	mux.HandleFunc("POST /api/records/import", s.withRequestLog(s.handleImportRecords))

	mux.HandleFunc("GET /api/reports/summary", s.withRequestLog(s.handleReportSummary))
	mux.HandleFunc("GET /api/reports/csv", s.withRequestLog(s.handleReportCSV))
	mux.HandleFunc("GET /api/reports/text", s.withRequestLog(s.handleReportText))

	mux.HandleFunc("POST /api/exports", s.withRequestLog(s.handleEnqueueExport))
	mux.HandleFunc("GET /api/exports", s.withRequestLog(s.handleListExports))

	mux.HandleFunc("GET /api/safety/checklist", s.withRequestLog(s.handleSafetyChecklist))
	mux.HandleFunc("POST /api/safety/rounds", s.withRequestLog(s.handleCreateSafetyRound))
	mux.HandleFunc("GET /api/safety/rounds", s.withRequestLog(s.handleListSafetyRounds))

	return s
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		requestID := generateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(r.Context(), "request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateSummaries(driverID string) {
	// Summary keys embed the period, so a single delete cannot cover
	// every cached view of this driver. Dropping the whole cache keeps
	// invalidation correct at the cost of a few recomputes.
	_ = driverID
	s.summaryCache.CleanAll()
}
