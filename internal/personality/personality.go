// Package personality defines the persona variants a bot can play and the
// selection rules used by the chat front ends.
package personality

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidChoice is returned for a selector token outside 1, 2, 3 or random.
	ErrInvalidChoice = errors.New("invalid personality choice")
	// ErrInvalidConfig is returned when a profile cannot be built from its inputs.
	ErrInvalidConfig = errors.New("invalid personality config")
)

// Kind is a persona variant.
type Kind int

const (
	Generic Kind = iota
	Friendly
	Teacher
	Funny
)

const noEmoji = " Do not use emoji or emoticons in your responses."

// RandomChoice is the selector token that picks a persona at random.
const RandomChoice = "random"

func (k Kind) String() string {
	switch k {
	case Friendly:
		return "friendly"
	case Teacher:
		return "teacher"
	case Funny:
		return "funny"
	default:
		return "generic"
	}
}

// Description is the menu line shown to the user.
func (k Kind) Description() string {
	switch k {
	case Friendly:
		return "A FriendlyBot that's casual and warm"
	case Teacher:
		return "A TeacherBot that's more formal and educational"
	case Funny:
		return "A FunnyBot with a sharp tongue and a sense of humor"
	default:
		return "A helpful and friendly assistant"
	}
}

// DefaultName is the display name used when none is supplied.
func (k Kind) DefaultName() string {
	switch k {
	case Friendly:
		return "Joy"
	case Teacher:
		return "Prof. Smith"
	case Funny:
		return "Comedy"
	default:
		return "Assistant"
	}
}

// ParseKind maps a persona name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "friendly", "friendlybot":
		return Friendly, nil
	case "teacher", "teacherbot":
		return Teacher, nil
	case "funny", "funnybot":
		return Funny, nil
	case "generic", "default", "":
		return Generic, nil
	default:
		return Generic, fmt.Errorf("%w: unknown personality %q", ErrInvalidChoice, name)
	}
}

// Picker draws a uniform integer in [0, n). *rand.Rand from math/rand/v2
// satisfies it.
type Picker interface {
	IntN(n int) int
}

// Select maps a menu token to a Kind. "random" resolves through picker.
func Select(choice string, picker Picker) (Kind, error) {
	if choice == RandomChoice {
		if picker == nil {
			return Generic, fmt.Errorf("%w: no random source configured", ErrInvalidChoice)
		}
		choice = fmt.Sprintf("%d", picker.IntN(3)+1)
	}
	switch choice {
	case "1":
		return Friendly, nil
	case "2":
		return Teacher, nil
	case "3":
		return Funny, nil
	default:
		return Generic, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
}

// Profile is the immutable persona of a session.
type Profile struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	SystemHint string `json:"system_hint"`
	Subject    string `json:"subject,omitempty"`
}

// NewProfile builds a profile. Teacher needs both a name and a subject; the
// other kinds fall back to their default name.
func NewProfile(kind Kind, name, subject string) (Profile, error) {
	name = strings.TrimSpace(name)
	subject = strings.TrimSpace(subject)

	if kind == Teacher {
		if name == "" || subject == "" {
			return Profile{}, fmt.Errorf("%w: teacher needs both a name and a subject", ErrInvalidConfig)
		}
	} else if name == "" {
		name = kind.DefaultName()
	}

	return Profile{
		Kind:       kind,
		Name:       name,
		SystemHint: systemHint(kind, subject),
		Subject:    subject,
	}, nil
}

func systemHint(kind Kind, subject string) string {
	switch kind {
	case Friendly:
		return "you need to play a person that's casual and warm." + noEmoji
	case Teacher:
		hint := "you need to play a person that's more formal and educational."
		if subject != "" {
			hint += " You are teaching " + subject + "."
		}
		return hint + noEmoji
	case Funny:
		return "You need to play a person with a sharp tongue and a good sense of humor, but don't act too exaggerated." + noEmoji
	default:
		return "you need to play a helpful and friendly assistant." + noEmoji
	}
}
