package location

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/datacycle/internal/weather"
)

// lookupTimeout bounds a single reverse-geocoding call.
const lookupTimeout = 10 * time.Second

var validate = validator.New()

// Sample is one location fix plus its address once resolved.
type Sample struct {
	Coordinate      weather.Coordinate `json:"coordinate"`
	ResolvedAddress *string            `json:"resolvedAddress,omitempty"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Manager holds the latest location fix and resolves its address in the
// background. A newer fix always wins over a late lookup for an older one.
type Manager struct {
	geocoder Geocoder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	current *Sample
	seq     uint64
	subs    map[int]chan Sample
	nextSub int
	closed  bool
}

// New creates a Manager. geocoder may be nil, in which case addresses stay unresolved.
func New(geocoder Geocoder) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		geocoder: geocoder,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]chan Sample),
	}
}

// Update replaces the current fix and starts an address lookup for it.
func (m *Manager) Update(lat, lon float64) error {
	at := weather.Coordinate{Lat: lat, Lon: lon}
	if err := validate.Struct(at); err != nil {
		return fmt.Errorf("invalid coordinate: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("location manager closed")
	}
	m.seq++
	seq := m.seq
	m.current = &Sample{Coordinate: at, UpdatedAt: time.Now().UTC()}
	m.publishLocked()
	if m.geocoder != nil {
		m.wg.Add(1)
		go m.resolve(seq, at)
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) resolve(seq uint64, at weather.Coordinate) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.ctx, lookupTimeout)
	defer cancel()

	addr, err := m.geocoder.Reverse(ctx, at)
	if err != nil {
		log.Printf("location: reverse geocoding %s failed: %v", at, err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq != seq || m.current == nil {
		// A newer fix arrived while we were looking this one up.
		return
	}
	m.current.ResolvedAddress = &addr
	m.publishLocked()
}

// Current returns a copy of the latest sample.
func (m *Manager) Current() (Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Sample{}, false
	}
	return copySample(*m.current), true
}

// Coordinate returns the latest fix.
func (m *Manager) Coordinate() (weather.Coordinate, bool) {
	s, ok := m.Current()
	return s.Coordinate, ok
}

// Address returns the resolved address of the latest fix.
func (m *Manager) Address() (string, bool) {
	s, ok := m.Current()
	if !ok || s.ResolvedAddress == nil {
		return "", false
	}
	return *s.ResolvedAddress, true
}

// Subscribe returns a channel receiving the latest sample on every change.
// Only the newest undelivered sample is kept.
func (m *Manager) Subscribe() (<-chan Sample, func()) {
	ch := make(chan Sample, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	if m.current != nil {
		ch <- copySample(*m.current)
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	return ch, sync.OnceFunc(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	})
}

// Close abandons in-flight lookups and closes every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Manager) publishLocked() {
	s := copySample(*m.current)
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func copySample(s Sample) Sample {
	if s.ResolvedAddress != nil {
		a := *s.ResolvedAddress
		s.ResolvedAddress = &a
	}
	return s
}
