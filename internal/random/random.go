// Package random provides the injectable randomness used for simulated
// market movement, exchange selection and swap outcomes.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the simulation needs
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Locked wraps a *rand.Rand so it can be shared between goroutines
type Locked struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a goroutine-safe source seeded with seed
func New(seed int64) *Locked {
	return &Locked{rnd: rand.New(rand.NewSource(seed))}
}

// NewTimeSeeded returns a goroutine-safe source seeded from the wall clock
func NewTimeSeeded() *Locked {
	return New(time.Now().UnixNano())
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// Uniform returns a value drawn uniformly from [min, max]
func Uniform(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}

// Scripted replays fixed values, cycling when exhausted. Tests use it to
// force specific jitter, exchange and outcome draws.
type Scripted struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
}

// NewScripted returns a source that yields floats then repeats them
func NewScripted(floats []float64, ints []int) *Scripted {
	return &Scripted{floats: floats, ints: ints}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

// Intn returns the next scripted int reduced modulo n
func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 || n <= 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	return v % n
}
