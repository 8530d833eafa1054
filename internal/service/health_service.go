package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/blastline/blastline/internal/registry"
	"github.com/blastline/blastline/internal/repository"
)

// DispatchStatus is the view of the dispatch engine the health endpoint
// needs; implemented by the dispatcher.
type DispatchStatus interface {
	IsRunning() bool
	ActiveCampaigns() int
}

type healthService struct {
	repo        repository.Repository
	redisClient *redis.Client
	registry    *registry.Registry
	dispatcher  DispatchStatus
}

func NewHealthService(
	repo repository.Repository,
	redisClient *redis.Client,
	reg *registry.Registry,
	dispatcher DispatchStatus,
) HealthService {
	return &healthService{
		repo:        repo,
		redisClient: redisClient,
		registry:    reg,
		dispatcher:  dispatcher,
	}
}

func (s *healthService) GetHealth() *HealthStatus {
	status := &HealthStatus{
		Status:           HealthStatusHealthy,
		DispatcherActive: s.dispatcher.IsRunning(),
		ActiveCampaigns:  s.dispatcher.ActiveCampaigns(),
		Instances:        s.registry.Snapshot(),
	}

	status.DatabaseStatus = s.checkDatabaseHealth()
	status.RedisStatus = s.checkRedisHealth()

	if status.DatabaseStatus != ComponentConnected {
		status.Status = HealthStatusUnhealthy
	} else if status.RedisStatus != ComponentConnected {
		// Redis only carries the event sink and correlation cache; the
		// core keeps dispatching without it.
		status.Status = HealthStatusDegraded
	}

	return status
}

func (s *healthService) checkDatabaseHealth() ComponentStatus {
	if err := s.repo.Ping(); err != nil {
		return ComponentDisconnected
	}
	return ComponentConnected
}

func (s *healthService) checkRedisHealth() ComponentStatus {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return ComponentDisconnected
	}

	return ComponentConnected
}
