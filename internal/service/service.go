package service

// Service aggregates the business services handed to the HTTP layer. The
// dispatcher sits between InstanceService and HealthService, so assembly
// happens in main rather than here.
type Service struct {
	Instance InstanceService
	Campaign CampaignService
	Health   HealthService
}

func NewService(
	instance InstanceService,
	campaign CampaignService,
	health HealthService,
) *Service {
	return &Service{
		Instance: instance,
		Campaign: campaign,
		Health:   health,
	}
}
