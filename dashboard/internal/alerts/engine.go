package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabiworld/pipewatch/dashboard/internal/config"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
)

// PipelineSubject is the SourceID of alerts on pipeline-wide fields.
const PipelineSubject = "pipeline"

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert is one alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"ruleName"`
	SourceID   string     `json:"sourceId"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	Coverage   *int       `json:"coveragePct,omitempty"` // source coverage when fired; nil for pipeline alerts
	FiredAt    time.Time  `json:"firedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against each snapshot and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig
	client   *http.Client

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:sourceID" or "ruleName:pipeline"
	lastFire map[string]time.Time // per key, for cooldown
	history  []*Alert             // resolved, newest last
	now      func() time.Time     // injectable for deterministic tests

	deliveries sync.WaitGroup
}

// New creates an Engine from the alerts configuration. Every condition is
// parsed up front; an unparsable rule is an error.
func New(cfg config.AlertsConfig) (*Engine, error) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		if r.Cooldown <= 0 {
			r.Cooldown = defaultCooldown
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	return &Engine{
		rules:    rules,
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// Evaluate tests every rule against snap. Per-source rules run once per
// source; rules on pipeline-wide fields run once under PipelineSubject.
// Alerts that fire are stored and delivered asynchronously. Firing alerts
// whose condition no longer holds, or whose source has left the snapshot,
// are resolved.
func (e *Engine) Evaluate(snap *state.Snapshot) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	var notify []Alert

	pipeline := subject{id: PipelineSubject, demo: snap.Demo, health: snap.Health.Score}
	perSource := make([]subject, 0, len(snap.Coverage))
	for _, cov := range snap.Coverage {
		perSource = append(perSource, subject{id: cov.SourceID, coverage: cov, demo: snap.Demo, health: snap.Health.Score, hasCoverage: true})
	}

	e.mu.Lock()
	seen := make(map[string]bool, len(e.active))
	for _, r := range e.rules {
		subjects := perSource
		if r.cond.pipelineWide() {
			subjects = []subject{pipeline}
		}
		for _, s := range subjects {
			key := r.Name + ":" + s.id
			seen[key] = true

			fires, value := r.cond.eval(s)
			if !fires {
				if a, ok := e.active[key]; ok {
					notify = append(notify, e.resolve(key, a, now))
				}
				continue
			}
			if _, firing := e.active[key]; firing {
				continue
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) <= r.Cooldown {
				continue
			}
			notify = append(notify, e.fire(key, r, s, value, now))
		}
	}
	for key, a := range e.active {
		if !seen[key] {
			notify = append(notify, e.resolve(key, a, now))
		}
	}
	e.mu.Unlock()

	for i := range notify {
		a := notify[i]
		e.deliveries.Add(1)
		go func() {
			defer e.deliveries.Done()
			e.deliver(&a)
		}()
	}
}

// fire records a new firing alert. Caller holds e.mu.
func (e *Engine) fire(key string, r rule, s subject, value float64, now time.Time) Alert {
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  r.Name,
		SourceID:  s.id,
		Severity:  r.Severity,
		Condition: r.Condition,
		Value:     value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
			r.Severity, r.Name, s.id, r.Condition, value),
		FiredAt: now,
		State:   "firing",
	}
	if s.hasCoverage {
		pct := s.coverage.CoveragePercent
		a.Coverage = &pct
	}
	e.active[key] = a
	e.lastFire[key] = now

	slog.Warn("alert fired",
		"rule", r.Name,
		"source", s.id,
		"value", value,
		"severity", r.Severity,
	)
	return *a
}

// resolve moves an active alert to history. Caller holds e.mu.
func (e *Engine) resolve(key string, a *Alert, now time.Time) Alert {
	resolved := now
	a.State = "resolved"
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}

	slog.Info("alert resolved", "rule", a.RuleName, "source", a.SourceID)
	return *a
}

// Active returns copies of all firing alerts plus alerts resolved within the
// past hour, newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b Alert) int {
		return latest(b).Compare(latest(a))
	})
	return out
}

// Firing is the number of currently firing alerts.
func (e *Engine) Firing() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.deliveries.Wait() }

func latest(a Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
