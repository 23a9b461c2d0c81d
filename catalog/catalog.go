package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// PuzzleType selects how a stage is answered.
type PuzzleType string

const (
	TypeInput   PuzzleType = "input"   // free text
	TypeUpDown  PuzzleType = "updown"  // guess the number, higher/lower hints
	TypeTap     PuzzleType = "tap"     // tap the screen N times
	TypePattern PuzzleType = "pattern" // grid state encoded as a 0/1 string
	TypePath    PuzzleType = "path"    // direction symbols encoded as a string
	TypeChoice  PuzzleType = "choice"  // group A/B vote, minority advances
)

// Vote resolution modes for choice stages.
const (
	ModeMinority = "minority" // fewest votes advances (default)
	ModeMajority = "majority" // most votes advances
)

// DefaultWindowMs is the round window for choice stages that don't set one.
const DefaultWindowMs = 60_000

type TapConfig struct {
	RequiredTaps int   `json:"requiredTaps"`
	ResetAfterMs int64 `json:"resetAfterMs,omitempty"`
}

type UpDownConfig struct {
	Target int64 `json:"target"`
}

type ChoiceOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type ChoiceConfig struct {
	GroupID  string         `json:"groupId"`
	Options  []ChoiceOption `json:"options"`
	WindowMs int64          `json:"windowMs"`
	Mode     string         `json:"mode,omitempty"`
}

// Option returns the option with the given ID, if configured.
func (c *ChoiceConfig) Option(id string) (ChoiceOption, bool) {
	for _, opt := range c.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ChoiceOption{}, false
}

// OptionIDs returns the configured option IDs in declaration order.
func (c *ChoiceConfig) OptionIDs() []string {
	ids := make([]string, len(c.Options))
	for i, opt := range c.Options {
		ids[i] = opt.ID
	}
	return ids
}

// Stage is one immutable stage definition. Exactly one of the per-type
// config pointers is set, matching Type.
type Stage struct {
	Number      int           `json:"stage"`
	Type        PuzzleType    `json:"type"`
	Title       string        `json:"title"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	Description string        `json:"description,omitempty"`
	Answer      string        `json:"answer"`
	Tap         *TapConfig    `json:"tapConfig,omitempty"`
	UpDown      *UpDownConfig `json:"updownConfig,omitempty"`
	Choice      *ChoiceConfig `json:"choiceConfig,omitempty"`
}

// Catalog is the ordered, read-only set of stages.
type Catalog struct {
	stages   []Stage
	byNumber map[int]Stage
}

var (
	ErrEmptyCatalog = errors.New("catalog has no stages")
)

// New builds a catalog from stage definitions, validating as it goes.
func New(stages []Stage) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, ErrEmptyCatalog
	}

	sorted := make([]Stage, len(stages))
	copy(sorted, stages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	byNumber := make(map[int]Stage, len(sorted))
	for i := range sorted {
		s := &sorted[i]
		if s.Number < 1 {
			return nil, fmt.Errorf("stage %d: number must be >= 1", s.Number)
		}
		if _, dup := byNumber[s.Number]; dup {
			return nil, fmt.Errorf("stage %d: duplicate stage number", s.Number)
		}

		switch s.Type {
		case "":
			s.Type = TypeInput
			fallthrough
		case TypeInput, TypePattern, TypePath:
			if s.Answer == "" {
				return nil, fmt.Errorf("stage %d: answer required", s.Number)
			}
		case TypeUpDown:
			if s.UpDown == nil {
				return nil, fmt.Errorf("stage %d: updown stage missing updownConfig", s.Number)
			}
		case TypeTap:
			if s.Tap == nil || s.Tap.RequiredTaps < 1 {
				return nil, fmt.Errorf("stage %d: tap stage missing requiredTaps", s.Number)
			}
			if s.Tap.ResetAfterMs == 0 {
				s.Tap.ResetAfterMs = 5000
			}
			// The client submits a fixed sentinel string once the tap
			// count is reached; the stage answer is derived, not authored.
			s.Answer = fmt.Sprintf("TAP_%d", s.Tap.RequiredTaps)
		case TypeChoice:
			if s.Choice == nil {
				return nil, fmt.Errorf("stage %d: choice stage missing choiceConfig", s.Number)
			}
			if len(s.Choice.Options) < 2 {
				return nil, fmt.Errorf("stage %d: choice stage needs at least 2 options", s.Number)
			}
			if s.Choice.GroupID == "" {
				s.Choice.GroupID = fmt.Sprintf("stage-%d", s.Number)
			}
			if s.Choice.WindowMs <= 0 {
				s.Choice.WindowMs = DefaultWindowMs
			}
			switch s.Choice.Mode {
			case "":
				s.Choice.Mode = ModeMinority
			case ModeMinority, ModeMajority:
			default:
				return nil, fmt.Errorf("stage %d: unknown choice mode %q", s.Number, s.Choice.Mode)
			}
		default:
			return nil, fmt.Errorf("stage %d: unknown puzzle type %q", s.Number, s.Type)
		}

		byNumber[s.Number] = *s
	}

	return &Catalog{stages: sorted, byNumber: byNumber}, nil
}

// Load reads a JSON array of stage definitions from a file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var stages []Stage
	if err := json.Unmarshal(data, &stages); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return New(stages)
}

// Lookup returns the stage definition for a stage number.
func (c *Catalog) Lookup(number int) (Stage, bool) {
	s, ok := c.byNumber[number]
	return s, ok
}

// NextAt returns the first stage at or above the given number. Stage
// numbers need not be contiguous; a miss means the game is finished.
func (c *Catalog) NextAt(number int) (Stage, bool) {
	for _, s := range c.stages {
		if s.Number >= number {
			return s, true
		}
	}
	return Stage{}, false
}

// MaxStage returns the highest stage number in the catalog.
func (c *Catalog) MaxStage() int {
	return c.stages[len(c.stages)-1].Number
}

// Stages returns all stages in ascending number order.
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Builtin returns the default game used when no catalog file is given.
func Builtin() *Catalog {
	cat, err := New([]Stage{
		{
			Number:      1,
			Type:        TypeInput,
			Title:       "Room 1",
			ImageURL:    "/img/q1.png",
			Description: "Look at the picture and type the hidden word.",
			Answer:      "APPLE",
		},
		{
			Number:      2,
			Type:        TypeUpDown,
			Title:       "Room 2",
			ImageURL:    "/img/q2.png",
			Description: "Guess the number on the lock.",
			UpDown:      &UpDownConfig{Target: 517},
		},
		{
			Number:      3,
			Type:        TypeTap,
			Title:       "Room 3",
			ImageURL:    "/img/q3.png",
			Description: "Something in this room reacts to touch.",
			Tap:         &TapConfig{RequiredTaps: 5},
		},
		{
			Number:      4,
			Type:        TypeChoice,
			Title:       "Room 4",
			ImageURL:    "/img/q4.png",
			Description: "Two doors. Only the less-crowded one opens.",
			Choice: &ChoiceConfig{
				GroupID: "doors",
				Options: []ChoiceOption{
					{ID: "A", Label: "Left door"},
					{ID: "B", Label: "Right door"},
				},
				WindowMs: DefaultWindowMs,
			},
		},
		{
			Number:      5,
			Type:        TypePattern,
			Title:       "Room 5",
			ImageURL:    "/img/q5.png",
			Description: "Light up the tiles to match the mural.",
			Answer:      "101010011",
		},
		{
			Number:      6,
			Type:        TypePath,
			Title:       "Room 6",
			ImageURL:    "/img/q6.png",
			Description: "Walk the maze exactly as the map shows.",
			Answer:      "UULDDR",
		},
	})
	if err != nil {
		panic(err) // built-in catalog is validated by tests
	}
	return cat
}
