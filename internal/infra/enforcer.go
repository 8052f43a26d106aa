package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/blockerd/internal/domain"
)

// LogEnforcer is the OS restriction-enforcement collaborator used outside of
// a real platform integration. Enforcement is fire-and-forget with no
// feedback channel, so logging the calls is the whole contract.
type LogEnforcer struct {
	logger *zap.Logger
}

// NewLogEnforcer creates an enforcer that records activation calls.
func NewLogEnforcer(logger *zap.Logger) *LogEnforcer {
	return &LogEnforcer{logger: logger}
}

// Activate applies the restriction selection.
func (e *LogEnforcer) Activate(selection domain.RestrictionSelection, strict bool, allowModeOnly bool) {
	e.logger.Info("restrictions activated",
		zap.Int("selection_bytes", len(selection)),
		zap.Bool("strict", strict),
		zap.Bool("allow_mode", allowModeOnly))
}

// Deactivate lifts all restrictions.
func (e *LogEnforcer) Deactivate() {
	e.logger.Info("restrictions deactivated")
}

// Ensure LogEnforcer implements domain.Enforcer.
var _ domain.Enforcer = (*LogEnforcer)(nil)
