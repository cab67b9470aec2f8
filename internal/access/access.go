// Package access decides who may use the bot.
package access

import (
	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/types"
)

// Policy evaluates user access against the live configuration
type Policy struct {
	cfg *config.Store
}

func NewPolicy(cfg *config.Store) *Policy {
	return &Policy{cfg: cfg}
}

// CanUseBot reports whether userID may use swap functionality.
// Blacklisting always wins; the owner is never locked out by maintenance;
// during maintenance only whitelisted users get through.
func (p *Policy) CanUseBot(userID string) bool {
	if p.cfg.IsBlacklisted(userID) {
		return false
	}
	if p.cfg.IsOwner(userID) {
		return true
	}
	if p.cfg.Paused() {
		return p.cfg.IsWhitelisted(userID)
	}
	return true
}

// Check is CanUseBot with the reason for a denial
func (p *Policy) Check(userID string) error {
	if p.CanUseBot(userID) {
		return nil
	}
	if p.cfg.IsBlacklisted(userID) {
		return types.ErrAccessDenied
	}
	return types.ErrMaintenance
}

// IsOwner reports whether userID is the bot owner
func (p *Policy) IsOwner(userID string) bool {
	return p.cfg.IsOwner(userID)
}

// RequireOwner returns ErrNotOwner unless userID is the owner
func (p *Policy) RequireOwner(userID string) error {
	if !p.cfg.IsOwner(userID) {
		return types.ErrNotOwner
	}
	return nil
}
