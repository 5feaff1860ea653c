// Package service aggregates operational statistics for the admin endpoint.
package service

import (
	"context"
	"fmt"
	"time"
)

// DeviceCounter is the device repository surface the stats service reads.
type DeviceCounter interface {
	CountAll(ctx context.Context) (int64, error)
	CountActiveTrials(ctx context.Context, now time.Time) (int64, error)
	CountLifetime(ctx context.Context) (int64, error)
}

// RevenueReader reports the sum of recorded payment amounts in rupees.
type RevenueReader interface {
	TotalRevenue(ctx context.Context) (int64, error)
}

// Stats is the admin dashboard snapshot. TotalRevenue is in rupees.
type Stats struct {
	TotalDevices  int64 `json:"total_users"`
	ActiveTrials  int64 `json:"trial_active"`
	LifetimeUsers int64 `json:"lifetime"`
	TotalRevenue  int64 `json:"revenue"`
}

// StatsService computes admin statistics from the device and payment stores.
type StatsService struct {
	devices  DeviceCounter
	payments RevenueReader
	nowF     func() time.Time
}

// NewStatsService returns a StatsService.
func NewStatsService(devices DeviceCounter, payments RevenueReader) *StatsService {
	return &StatsService{
		devices:  devices,
		payments: payments,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot gathers the current counts. Trial counting is evaluated against the
// current time, so a trial that just lapsed is excluded without any row update.
func (s *StatsService) Snapshot(ctx context.Context) (*Stats, error) {
	total, err := s.devices.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	trials, err := s.devices.CountActiveTrials(ctx, s.nowF())
	if err != nil {
		return nil, fmt.Errorf("count active trials: %w", err)
	}
	lifetime, err := s.devices.CountLifetime(ctx)
	if err != nil {
		return nil, fmt.Errorf("count lifetime users: %w", err)
	}
	revenue, err := s.payments.TotalRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("total revenue: %w", err)
	}
	return &Stats{
		TotalDevices:  total,
		ActiveTrials:  trials,
		LifetimeUsers: lifetime,
		TotalRevenue:  revenue,
	}, nil
}
