// ABOUTME: Proactive token refresh scheduler running while a session is active
// ABOUTME: Refreshes ahead of expiry; failures are left to the reactive 401 path

package session

import (
	"context"
	"errors"
	"time"

	"github.com/openatms/atms-console/internal/keystore"
	"github.com/openatms/atms-console/internal/token"
)

// startScheduler launches the refresh loop if it is not already running.
// Called on every transition into the authenticated state.
func (m *Manager) startScheduler() {
	if m.refreshInterval <= 0 {
		return
	}

	m.mu.Lock()
	if m.schedulerStop != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.schedulerStop = cancel
	m.schedulerDone = done
	m.mu.Unlock()

	go m.runScheduler(ctx, done)
}

// stopScheduler tears the refresh loop down. Safe to call when not running.
func (m *Manager) stopScheduler() {
	m.mu.Lock()
	stop := m.schedulerStop
	done := m.schedulerDone
	m.schedulerStop = nil
	m.schedulerDone = nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// runScheduler checks token freshness immediately and then on every tick.
func (m *Manager) runScheduler(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	m.checkAndRefresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndRefresh(ctx)
		}
	}
}

// checkAndRefresh refreshes the access token if it is expiring soon and a
// refresh token is available. On failure the stored tokens are left
// untouched; the reactive path recovers or forces logout on the next call.
func (m *Manager) checkAndRefresh(ctx context.Context) {
	access, err := m.tokens.AccessToken(ctx)
	if errors.Is(err, keystore.ErrNotFound) || access == "" {
		return
	}
	if err != nil {
		m.logger.Warn("reading access token", "error", err)
		return
	}

	if !token.IsExpiringSoon(access, m.refreshThreshold) {
		return
	}

	if _, err := m.tokens.RefreshToken(ctx); errors.Is(err, keystore.ErrNotFound) {
		return
	}

	if err := m.client.Refresh(ctx); err != nil {
		m.logger.Warn("proactive token refresh failed", "error", err)
		return
	}
	m.logger.Debug("proactively refreshed access token")
}
