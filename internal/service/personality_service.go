package service

import (
	"errors"

	"docbrain-go/internal/agent"
	"docbrain-go/internal/personality"
)

// ErrPersonalityRequired is returned when an update names no personality.
var ErrPersonalityRequired = errors.New("personality type is required")

// PersonalityUpdate selects the agent's personality.
type PersonalityUpdate struct {
	Personality        string                        `json:"personality"`
	CustomInstructions string                        `json:"customInstructions"`
	Custom             *personality.CustomDefinition `json:"custom,omitempty"`
}

// PersonalityService exposes the registry and the agent's active personality.
type PersonalityService interface {
	List() []personality.Summary
	Current() (string, personality.Personality)
	// Set switches the agent. Unknown keys select the default personality.
	Set(update PersonalityUpdate) (string, personality.Personality, error)
}

type personalityService struct {
	registry *personality.Registry
	agent    *agent.Agent
}

func NewPersonalityService(registry *personality.Registry, a *agent.Agent) PersonalityService {
	return &personalityService{registry: registry, agent: a}
}

func (s *personalityService) List() []personality.Summary {
	return s.registry.List()
}

func (s *personalityService) Current() (string, personality.Personality) {
	return s.agent.Personality()
}

func (s *personalityService) Set(update PersonalityUpdate) (string, personality.Personality, error) {
	if update.Personality == "" {
		return "", personality.Personality{}, ErrPersonalityRequired
	}
	if update.Personality == personality.CustomKey && update.Custom != nil {
		s.agent.SetCustomPersonality(*update.Custom, update.CustomInstructions)
	} else {
		s.agent.SetPersonality(update.Personality, update.CustomInstructions)
	}
	key, p := s.agent.Personality()
	return key, p, nil
}
