package core

import "time"

// NameRecord is a single lowercase creature identifier as published by the
// name-list source.
type NameRecord = string

// NamedResource is the {name, url} pair the detail source uses for every
// reference to another resource.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// TypeSlot is one type tag of a creature.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// AbilitySlot is one ability tag of a creature.
type AbilitySlot struct {
	Slot     int           `json:"slot"`
	IsHidden bool          `json:"is_hidden"`
	Ability  NamedResource `json:"ability"`
}

// StatEntry is one base stat of a creature.
type StatEntry struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// Sprites holds still-image references. Only the default front sprite is used.
type Sprites struct {
	FrontDefault string `json:"front_default,omitempty"`
	FrontShiny   string `json:"front_shiny,omitempty"`
}

// Cries holds sound-clip references.
type Cries struct {
	Latest string `json:"latest,omitempty"`
	Legacy string `json:"legacy,omitempty"`
}

// Pokemon is the detail record returned by the detail source. Records are
// replaced wholesale and never mutated after decoding.
type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	BaseExperience int           `json:"base_experience"`
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Stats          []StatEntry   `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
	Cries          Cries         `json:"cries"`
}

// TypeNames returns the type tag names in slot order.
func (p *Pokemon) TypeNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		if t.Type.Name != "" {
			names = append(names, t.Type.Name)
		}
	}
	return names
}

// ImageURL returns the still-image reference, or "" when absent.
func (p *Pokemon) ImageURL() string {
	if p == nil {
		return ""
	}
	return p.Sprites.FrontDefault
}

// SoundURL returns the latest sound-clip reference, or "" when absent.
func (p *Pokemon) SoundURL() string {
	if p == nil {
		return ""
	}
	return p.Cries.Latest
}

// HasSound reports whether the record carries a playable sound clip.
func (p *Pokemon) HasSound() bool {
	return p.SoundURL() != ""
}

// MaxStat returns the highest base stat, or 1 when the record has no stats.
// Stat bars are drawn relative to this value.
func (p *Pokemon) MaxStat() int {
	if p == nil || len(p.Stats) == 0 {
		return 1
	}
	highest := p.Stats[0].BaseStat
	for _, s := range p.Stats[1:] {
		if s.BaseStat > highest {
			highest = s.BaseStat
		}
	}
	if highest <= 0 {
		return 1
	}
	return highest
}

// RequestStatus is the lifecycle state of the most recent detail fetch.
type RequestStatus int

const (
	StatusIdle RequestStatus = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (s RequestStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind distinguishes the failure taxonomy. Every kind still produces a
// single user-visible message.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureNotFound
	FailureTransport
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureNotFound:
		return "not_found"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// RequestState holds exactly one RequestStatus plus the failure reason when
// the status is StatusFailed.
type RequestState struct {
	Status RequestStatus
	Kind   FailureKind
	Reason string
}

// Failed reports whether the request settled with an error.
func (r RequestState) Failed() bool {
	return r.Status == StatusFailed
}

// RateLimitState is the persisted request window for one upstream host.
type RateLimitState struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}
