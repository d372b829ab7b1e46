package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"orion-brain/internal/models"
	"orion-brain/internal/repository"
)

var errTest = errors.New("storage failure")

// ============ Mock RunTrigger ============

type MockEngine struct {
	report *models.RunReport
	delay  time.Duration
	calls  int
	mu     sync.Mutex
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		report: &models.RunReport{Status: models.RunCompleted},
	}
}

func (m *MockEngine) RunOnce(ctx context.Context, pairs []string, force bool) *models.RunReport {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	report := *m.report
	for _, p := range pairs {
		report.Outcome(p).Actions = []string{"synced"}
	}
	return &report
}

func (m *MockEngine) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ============ Mock RunReportBroadcaster ============

type MockBroadcaster struct {
	reports []*models.RunReport
	mu      sync.Mutex
}

func (m *MockBroadcaster) BroadcastRunReport(report *models.RunReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
}

func (m *MockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// ============ Mock PositionReader ============

type MockPositionReader struct {
	positions []*models.Position
	err       error
}

func (m *MockPositionReader) ListOpen() ([]*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	open := make([]*models.Position, 0)
	for _, p := range m.positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open, nil
}

func (m *MockPositionReader) ListRecent(limit int) ([]*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > len(m.positions) {
		limit = len(m.positions)
	}
	return m.positions[:limit], nil
}

func (m *MockPositionReader) GetByID(id string) (*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.positions {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrPositionNotFound
}

// ============ Mock NotificationReader ============

type MockNotificationReader struct {
	notifications []*models.Notification
	err           error
	cleared       bool
}

func (m *MockNotificationReader) GetRecent(limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	return m.notifications[:limit], nil
}

func (m *MockNotificationReader) GetByPair(pair string, limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if n.Pair == pair && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MockNotificationReader) DeleteAll() (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	deleted := int64(len(m.notifications))
	m.notifications = nil
	m.cleared = true
	return deleted, nil
}
