package personality

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
)

type fixedPicker int

func (p fixedPicker) IntN(n int) int { return int(p) % n }

func TestSelectNumbered(t *testing.T) {
	cases := map[string]Kind{"1": Friendly, "2": Teacher, "3": Funny}
	for choice, want := range cases {
		got, err := Select(choice, nil)
		if err != nil {
			t.Fatalf("Select(%q) error = %v", choice, err)
		}
		if got != want {
			t.Fatalf("Select(%q) = %s, want %s", choice, got, want)
		}
	}
}

func TestSelectRejectsUnknown(t *testing.T) {
	for _, choice := range []string{"4", "", "0", "one", "Random", " 1"} {
		if _, err := Select(choice, fixedPicker(0)); !errors.Is(err, ErrInvalidChoice) {
			t.Fatalf("Select(%q) error = %v, want ErrInvalidChoice", choice, err)
		}
	}
}

func TestSelectRandomIsDeterministicWithSeed(t *testing.T) {
	first := make([]Kind, 0, 20)
	r := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 20; i++ {
		k, err := Select(RandomChoice, r)
		if err != nil {
			t.Fatalf("Select(random) error = %v", err)
		}
		if k != Friendly && k != Teacher && k != Funny {
			t.Fatalf("Select(random) = %s, outside 1..3", k)
		}
		first = append(first, k)
	}

	r = rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 20; i++ {
		k, _ := Select(RandomChoice, r)
		if k != first[i] {
			t.Fatalf("draw %d differs with the same seed: %s vs %s", i, k, first[i])
		}
	}
}

func TestSelectRandomUsesPicker(t *testing.T) {
	got, err := Select(RandomChoice, fixedPicker(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Funny {
		t.Fatalf("expected Funny, got %s", got)
	}
}

func TestSelectRandomWithoutPicker(t *testing.T) {
	if _, err := Select(RandomChoice, nil); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
}

func TestNewProfileTeacherRequiresSubject(t *testing.T) {
	if _, err := NewProfile(Teacher, "Albert", ""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty subject, got %v", err)
	}
	if _, err := NewProfile(Teacher, "  ", "Physics"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty name, got %v", err)
	}

	p, err := NewProfile(Teacher, "Professor Albert", "Quantum Mechanics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(p.SystemHint, "Quantum Mechanics") {
		t.Fatalf("system hint misses subject: %q", p.SystemHint)
	}
}

func TestNewProfileDefaultsName(t *testing.T) {
	p, err := NewProfile(Friendly, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Joy" {
		t.Fatalf("expected default name Joy, got %q", p.Name)
	}
	if !strings.Contains(p.SystemHint, "casual and warm") {
		t.Fatalf("unexpected hint %q", p.SystemHint)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Teacher")
	if err != nil || k != Teacher {
		t.Fatalf("ParseKind(Teacher) = %s, %v", k, err)
	}
	if _, err := ParseKind("grumpy"); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
}
