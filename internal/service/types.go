package service

import "github.com/blastline/blastline/internal/models"

type HealthState string

const (
	HealthStatusHealthy   HealthState = "healthy"
	HealthStatusDegraded  HealthState = "degraded"
	HealthStatusUnhealthy HealthState = "unhealthy"
)

type ComponentStatus string

const (
	ComponentConnected    ComponentStatus = "connected"
	ComponentDisconnected ComponentStatus = "disconnected"
)

type HealthStatus struct {
	Status           HealthState                     `json:"status"`
	DatabaseStatus   ComponentStatus                 `json:"database_status"`
	RedisStatus      ComponentStatus                 `json:"redis_status"`
	DispatcherActive bool                            `json:"dispatcher_active"`
	ActiveCampaigns  int                             `json:"active_campaigns"`
	Instances        map[int64]models.InstanceStatus `json:"instances"`
}
