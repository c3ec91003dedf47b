package chatbot

import (
	"errors"
	"testing"
	"time"
)

func TestRegistryDo(t *testing.T) {
	reg := NewRegistry(time.Minute)
	bot := newTestBot(t, &stubCompleter{}, Config{})
	reg.Add(bot)

	var seen string
	if err := reg.Do(bot.ID(), func(b *Bot) error {
		seen = b.Name()
		return nil
	}); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if seen != "Joy" {
		t.Fatalf("expected Joy, got %q", seen)
	}
	if err := reg.Do("missing", func(*Bot) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryRejectsConcurrentTurn(t *testing.T) {
	reg := NewRegistry(time.Minute)
	bot := newTestBot(t, &stubCompleter{}, Config{})
	reg.Add(bot)

	err := reg.Do(bot.ID(), func(*Bot) error {
		return reg.Do(bot.ID(), func(*Bot) error { return nil })
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(time.Minute)
	bot := newTestBot(t, &stubCompleter{}, Config{})
	reg.Add(bot)

	if err := reg.Remove(bot.ID()); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if err := reg.Remove(bot.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestRegistryExpiresIdleBots(t *testing.T) {
	reg := NewRegistry(time.Minute)
	bot := newTestBot(t, &stubCompleter{}, Config{})
	reg.Add(bot)

	var expired []string
	reg.SetExpireHook(func(id string) { expired = append(expired, id) })

	reg.expireInactive(time.Now().UTC())
	if reg.Count() != 1 {
		t.Fatalf("fresh bot must not expire")
	}
	reg.expireInactive(time.Now().UTC().Add(2 * time.Minute))
	if reg.Count() != 0 || len(expired) != 1 || expired[0] != bot.ID() {
		t.Fatalf("expected bot to expire, count=%d expired=%v", reg.Count(), expired)
	}
}
