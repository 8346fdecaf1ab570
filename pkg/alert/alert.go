// Package alert notifies operators when external API spend crosses a
// configured budget.
package alert

import (
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/openincentives/matchengine/pkg/config"
	"github.com/openincentives/matchengine/pkg/costs"
)

// Alerter defines an interface for sending alerts
type Alerter interface {
	Alert(subject, message string) error
}

// EmailAlerter implements Alerter using SMTP
type EmailAlerter struct {
	cfg config.AlertConfig
}

// NewEmailAlerter creates a new email alerter
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{
		cfg: cfg,
	}
}

// Alert sends an email with the given subject and message
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)

	to := a.cfg.To
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", strings.Join(to, ","), subject, message))

	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	err := smtp.SendMail(addr, auth, a.cfg.From, to, msg)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}

// NoOpAlerter is a dummy alerter for when alerting is disabled
type NoOpAlerter struct{}

func (n *NoOpAlerter) Alert(subject, message string) error {
	return nil
}

// BudgetWatcher fires a single alert when cumulative ledger cost crosses
// the budget. Safe for concurrent use.
type BudgetWatcher struct {
	alerter   Alerter
	budgetUSD float64

	mu    sync.Mutex
	fired bool
}

// NewBudgetWatcher creates a watcher. A budget of zero or below disables
// the check entirely.
func NewBudgetWatcher(alerter Alerter, budgetUSD float64) *BudgetWatcher {
	if alerter == nil {
		alerter = &NoOpAlerter{}
	}
	return &BudgetWatcher{alerter: alerter, budgetUSD: budgetUSD}
}

// Check compares the tracker stats against the budget and alerts once if
// exceeded. It reports whether the budget is currently exceeded.
func (w *BudgetWatcher) Check(stats costs.Stats) (bool, error) {
	if w.budgetUSD <= 0 || stats.TotalCost < w.budgetUSD {
		return false, nil
	}

	w.mu.Lock()
	alreadyFired := w.fired
	w.fired = true
	w.mu.Unlock()
	if alreadyFired {
		return true, nil
	}

	subject := "matchengine: API spend budget exceeded"
	message := fmt.Sprintf(
		"Cumulative external API cost $%.4f has crossed the configured budget of $%.4f.\n"+
			"Calls: %d, cache hits: %d, failures: %d.",
		stats.TotalCost, w.budgetUSD, stats.TotalCalls, stats.CacheHits, stats.FailureCount)
	if err := w.alerter.Alert(subject, message); err != nil {
		return true, err
	}
	return true, nil
}
