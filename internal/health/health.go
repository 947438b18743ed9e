package health

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Status — состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// severity упорядочивает статусы: общий статус равен худшему из проверок.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент. ctx ограничен таймаутом проверки.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler агрегирует зарегистрированные проверки и отдаёт их по HTTP.
type Handler struct {
	mu           sync.RWMutex
	checkers     map[string]Checker
	version      string
	startTime    time.Time
	checkTimeout time.Duration
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers:     make(map[string]Checker),
		version:      version,
		startTime:    time.Now(),
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterChecker добавляет или заменяет проверку с именем name.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// runChecks запускает проверки параллельно под общим таймаутом. Проверка, не успевшая
// ответить до таймаута, считается unhealthy; её горутина дорабатывает в фоне.
func (h *Handler) runChecks(ctx context.Context) (map[string]Check, Status) {
	h.mu.RLock()
	checkers := maps.Clone(h.checkers)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	// буфер на все проверки: опоздавшие горутины не блокируются на отправке
	results := make(chan Check, len(checkers))
	for name, checker := range checkers {
		go func() {
			check := checker.Check(ctx)
			check.Name = name
			results <- check
		}()
	}

	checks := make(map[string]Check, len(checkers))
collect:
	for len(checks) < len(checkers) {
		select {
		case check := <-results:
			checks[check.Name] = check
		case <-ctx.Done():
			break collect
		}
	}
	for name := range checkers {
		if _, ok := checks[name]; !ok {
			checks[name] = Check{
				Name:       name,
				Status:     StatusUnhealthy,
				Message:    "check timed out",
				DurationMs: h.checkTimeout.Milliseconds(),
			}
		}
	}

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status.severity() > overall.severity() {
			overall = check.Status
		}
	}
	return checks, overall
}

// ServeHTTP отдаёт подробный отчёт. degraded не снимает инстанс с трафика, 503 только для unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks, overall := h.runChecks(r.Context())

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler отвечает 200, пока процесс способен обслуживать HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// ReadinessHandler отвечает 503, если хотя бы одна проверка unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if _, overall := h.runChecks(r.Context()); overall == StatusUnhealthy {
		writeText(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeText(w, http.StatusOK, "ready")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// timed выполняет fn и проставляет в результат имя и длительность.
func timed(name string, fn func() Check) Check {
	start := time.Now()
	check := fn()
	check.Name = name
	check.DurationMs = time.Since(start).Milliseconds()
	return check
}

// SimpleChecker считает компонент здоровым, если checkFn не вернула ошибку.
type SimpleChecker struct {
	name    string
	checkFn func(ctx context.Context) error
}

func NewSimpleChecker(name string, checkFn func(ctx context.Context) error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

func (c *SimpleChecker) Check(ctx context.Context) Check {
	return timed(c.name, func() Check {
		if err := c.checkFn(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	})
}

// Pinger — всё, что умеет проверять соединение (например, postgres.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingChecker проверяет доступность хранилища через Ping.
func NewPingChecker(name string, pinger Pinger) *SimpleChecker {
	return NewSimpleChecker(name, pinger.Ping)
}

// BacklogFunc возвращает число ожидающих публикации сообщений.
type BacklogFunc func(ctx context.Context) (int, error)

// BacklogChecker помечает компонент degraded, если backlog outbox превысил порог.
type BacklogChecker struct {
	name      string
	threshold int
	backlog   BacklogFunc
}

// NewBacklogChecker создаёт проверку backlog. threshold <= 0 отключает статус degraded.
func NewBacklogChecker(name string, threshold int, backlog BacklogFunc) *BacklogChecker {
	return &BacklogChecker{name: name, threshold: threshold, backlog: backlog}
}

func (c *BacklogChecker) Check(ctx context.Context) Check {
	return timed(c.name, func() Check {
		pending, err := c.backlog(ctx)
		switch {
		case err != nil:
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		case c.threshold > 0 && pending > c.threshold:
			return Check{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%d pending messages (threshold %d)", pending, c.threshold),
			}
		default:
			return Check{Status: StatusHealthy}
		}
	})
}
