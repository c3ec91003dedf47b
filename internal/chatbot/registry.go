package chatbot

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an unknown bot id.
	ErrNotFound = errors.New("bot not found")
	// ErrBusy is returned when a turn is already in flight for the bot.
	ErrBusy = errors.New("bot is busy")
)

type entry struct {
	bot          *Bot
	turn         sync.Mutex
	lastActivity time.Time
}

// Registry holds the bots of the web front end. Each bot runs at most one
// turn at a time; bots idle for longer than the inactivity timeout are
// dropped by the janitor.
type Registry struct {
	mu                sync.RWMutex
	bots              map[string]*entry
	inactivityTimeout time.Duration
	onExpire          func(id string)
}

// NewRegistry creates an empty registry.
func NewRegistry(inactivityTimeout time.Duration) *Registry {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Registry{
		bots:              make(map[string]*entry),
		inactivityTimeout: inactivityTimeout,
	}
}

// SetExpireHook registers a callback for bots removed by the janitor.
func (r *Registry) SetExpireHook(hook func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// Add registers bot under its id.
func (r *Registry) Add(bot *Bot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots[bot.ID()] = &entry{bot: bot, lastActivity: time.Now().UTC()}
}

// Do runs fn with exclusive access to the bot. It fails fast with ErrBusy
// instead of queueing behind another turn.
func (r *Registry) Do(id string, fn func(*Bot) error) error {
	r.mu.Lock()
	e, ok := r.bots[id]
	if ok {
		e.lastActivity = time.Now().UTC()
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if !e.turn.TryLock() {
		return ErrBusy
	}
	defer e.turn.Unlock()
	return fn(e.bot)
}

// Remove deletes a bot.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bots[id]; !ok {
		return ErrNotFound
	}
	delete(r.bots, id)
	return nil
}

// Count returns the number of live bots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bots)
}

// StartJanitor expires idle bots until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.expireInactive(time.Now().UTC())
			}
		}
	}()
}

func (r *Registry) expireInactive(now time.Time) {
	var expired []string

	r.mu.Lock()
	for id, e := range r.bots {
		if now.Sub(e.lastActivity) < r.inactivityTimeout {
			continue
		}
		// 正在处理的回合不回收
		if !e.turn.TryLock() {
			continue
		}
		e.turn.Unlock()
		delete(r.bots, id)
		expired = append(expired, id)
	}
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		for _, id := range expired {
			hook(id)
		}
	}
}
