package tools

import (
	"tavern/internal/checks"

	services "tavern/internal/domain/services/game"
)

// RegistryBuilder assembles a per-session tool registry. Tool executors
// capture the session handle, so a fresh registry is built for each session.
type RegistryBuilder struct {
	registry *Registry
	err      error
}

func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{registry: NewRegistry()}
}

// WithCheckTools registers the three dice-check tools backed by the given
// resolver.
func (b *RegistryBuilder) WithCheckTools(sess services.TurnSession, resolver *checks.Resolver) *RegistryBuilder {
	b.register(abilityCheckDefinition(), NewAbilityCheckTool(sess, resolver))
	b.register(savingThrowDefinition(), NewSavingThrowTool(sess, resolver))
	b.register(groupCheckDefinition(), NewGroupCheckTool(sess, resolver))
	return b
}

// WithControlTools registers start_combat and restrict_action.
func (b *RegistryBuilder) WithControlTools(sess services.TurnSession) *RegistryBuilder {
	b.register(startCombatDefinition(), NewStartCombatTool(sess))
	b.register(restrictActionDefinition(), NewRestrictActionTool(sess))
	return b
}

// Build returns the registry, or the first registration error.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.registry, nil
}

func (b *RegistryBuilder) register(def services.ToolDefinition, executor ToolExecutor) {
	if b.err != nil {
		return
	}
	b.err = b.registry.Register(def, executor)
}

// BuildExplorationRegistry is the convenience form used by the exploration
// session: all five fixed tools.
func BuildExplorationRegistry(sess services.TurnSession, resolver *checks.Resolver) (*Registry, error) {
	return NewRegistryBuilder().
		WithCheckTools(sess, resolver).
		WithControlTools(sess).
		Build()
}
