package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ksred/coinkong/internal/types"
)

// Store holds the bot state owner commands can change at runtime. It is
// shared by every command handler and swap task, so all access is locked.
type Store struct {
	mu sync.RWMutex

	ownerID        string
	feePercent     float64
	minimumSwapUSD float64
	paused         bool
	whitelist      map[string]struct{}
	blacklist      map[string]struct{}
	tokens         []types.Token
	dexes          []types.Dex
	supportContact string
}

// NewStore builds the runtime state from startup settings
func NewStore(s *Settings) *Store {
	return &Store{
		ownerID:        s.OwnerID,
		feePercent:     s.DefaultFeePercent,
		minimumSwapUSD: s.MinimumSwapUSD,
		whitelist:      make(map[string]struct{}),
		blacklist:      make(map[string]struct{}),
		tokens:         append([]types.Token(nil), s.Tokens...),
		dexes:          append([]types.Dex(nil), s.Dexes...),
		supportContact: s.SupportContact,
	}
}

// NewDefaultStore returns a store with the stock token and dex lists
func NewDefaultStore(ownerID string) *Store {
	return NewStore(&Settings{
		OwnerID:           ownerID,
		DefaultFeePercent: 0.5,
		MinimumSwapUSD:    1,
		Tokens:            DefaultTokens,
		Dexes:             DefaultDexes,
		SupportContact:    "For support, contact @bammity on Telegram",
	})
}

func (s *Store) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// IsOwner reports whether userID is the configured owner. An unset owner
// matches nobody.
func (s *Store) IsOwner(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID != "" && userID == s.ownerID
}

// FeePercent returns the current platform fee percentage
func (s *Store) FeePercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feePercent
}

// SetFeePercent updates the platform fee. Values outside 0-100 are rejected.
func (s *Store) SetFeePercent(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return types.NewValidationError("percentage", "must be between 0 and 100, got %v", pct)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feePercent = pct
	return nil
}

func (s *Store) MinimumSwapUSD() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minimumSwapUSD
}

// SetMinimumSwapUSD updates the minimum swap amount
func (s *Store) SetMinimumSwapUSD(usd float64) error {
	if math.IsNaN(usd) || math.IsInf(usd, 0) || usd < 0 {
		return types.NewValidationError("minimum", "must be a non-negative amount, got %v", usd)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimumSwapUSD = usd
	return nil
}

// Paused reports whether maintenance mode is active
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Whitelist adds userID and reports whether it was newly added
func (s *Store) Whitelist(userID string) bool {
	return s.addTo(s.whitelist, userID)
}

// Blacklist adds userID and reports whether it was newly added
func (s *Store) Blacklist(userID string) bool {
	return s.addTo(s.blacklist, userID)
}

func (s *Store) addTo(set map[string]struct{}, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := set[userID]; ok {
		return false
	}
	set[userID] = struct{}{}
	return true
}

func (s *Store) IsWhitelisted(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.whitelist[userID]
	return ok
}

func (s *Store) IsBlacklisted(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blacklist[userID]
	return ok
}

// Tokens returns a copy of the supported-token list
func (s *Store) Tokens() []types.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Token(nil), s.tokens...)
}

// Token looks up a supported token by symbol, case-insensitively
func (s *Store) Token(symbol string) (types.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return types.Token{}, false
}

func (s *Store) IsTokenSupported(symbol string) bool {
	_, ok := s.Token(symbol)
	return ok
}

// Dexes returns a copy of the exchange list
func (s *Store) Dexes() []types.Dex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Dex(nil), s.dexes...)
}

func (s *Store) SupportContact() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supportContact
}

// Snapshot is a point-in-time copy of the runtime state
type Snapshot struct {
	OwnerConfigured bool     `json:"owner_configured"`
	FeePercent      float64  `json:"fee_percent"`
	MinimumSwapUSD  float64  `json:"minimum_swap_usd"`
	Paused          bool     `json:"paused"`
	Whitelist       []string `json:"whitelist"`
	Blacklist       []string `json:"blacklist"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		OwnerConfigured: s.ownerID != "",
		FeePercent:      s.feePercent,
		MinimumSwapUSD:  s.minimumSwapUSD,
		Paused:          s.paused,
		Whitelist:       keys(s.whitelist),
		Blacklist:       keys(s.blacklist),
	}
}

func (sn Snapshot) String() string {
	return fmt.Sprintf("fee=%.2f%% min=$%.2f paused=%t whitelist=%d blacklist=%d",
		sn.FeePercent, sn.MinimumSwapUSD, sn.Paused, len(sn.Whitelist), len(sn.Blacklist))
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
