package preset

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/playmatatu/arcade/internal/aim"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultsYAML []byte

const (
	NameSnooker = "snooker"
	NameBubble  = "bubble"
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrInvalidPreset = errors.New("invalid preset")
)

// Presets is the full set of game configurations.
type Presets struct {
	Snooker aim.Table `yaml:"snooker" json:"snooker"`
	Bubble  aim.Board `yaml:"bubble" json:"bubble"`
}

// Load decodes presets from YAML. Unknown keys are rejected.
func Load(r io.Reader) (*Presets, error) {
	var p Presets
	if err := decodeStrict(r, &p); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Defaults returns the built-in presets.
func Defaults() (*Presets, error) {
	return Load(bytes.NewReader(defaultsYAML))
}

// LoadFile reads presets from path, layered over the built-in defaults.
func LoadFile(path string) (*Presets, error) {
	p, err := Defaults()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()

	if err := decodeStrict(f, p); err != nil {
		return nil, fmt.Errorf("decode presets file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Presets) Validate() error {
	if err := validateTable(p.Snooker); err != nil {
		return err
	}
	return validateBoard(p.Bubble)
}

func validateTable(t aim.Table) error {
	switch {
	case t.Width <= 0 || t.Height <= 0:
		return fmt.Errorf("%w: snooker table size must be positive", ErrInvalidPreset)
	case t.BallRadius <= 0 || 2*t.BallRadius >= t.Width || 2*t.BallRadius >= t.Height:
		return fmt.Errorf("%w: snooker ball radius must fit the table", ErrInvalidPreset)
	case t.Friction <= 0 || t.Friction > 1:
		return fmt.Errorf("%w: snooker friction must be in (0, 1]", ErrInvalidPreset)
	case t.CushionRestitution < 0 || t.CushionRestitution > 1:
		return fmt.Errorf("%w: snooker cushion restitution must be in [0, 1]", ErrInvalidPreset)
	case t.PocketRadius <= 0 || t.PocketHighlightDistSq <= 0:
		return fmt.Errorf("%w: snooker pocket sizes must be positive", ErrInvalidPreset)
	case t.MaxSteps < 0:
		return fmt.Errorf("%w: snooker max steps must not be negative", ErrInvalidPreset)
	}
	return nil
}

func validateBoard(b aim.Board) error {
	switch {
	case b.GridW < 2 || b.GridH < 1:
		return fmt.Errorf("%w: bubble grid must be at least 2x1", ErrInvalidPreset)
	case b.HexSize <= 0 || b.HexRadius <= 0 || b.YSpacing <= 0:
		return fmt.Errorf("%w: bubble cell sizes must be positive", ErrInvalidPreset)
	case b.HitRadiusScale <= 0:
		return fmt.Errorf("%w: bubble hit radius scale must be positive", ErrInvalidPreset)
	case b.FloorY >= b.Cannon.Y:
		return fmt.Errorf("%w: bubble floor must sit below the cannon", ErrInvalidPreset)
	case b.MaxSteps < 0:
		return fmt.Errorf("%w: bubble max steps must not be negative", ErrInvalidPreset)
	}
	return nil
}

func decodeStrict(r io.Reader, out any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty document", ErrInvalidPreset)
		}
		return err
	}
	return nil
}

// Registry serves the live presets. Reads vastly outnumber admin writes.
type Registry struct {
	mu      sync.RWMutex
	snooker aim.Table
	bubble  aim.Board
	version uint64
}

func NewRegistry(p *Presets) *Registry {
	return &Registry{snooker: p.Snooker, bubble: p.Bubble}
}

func (r *Registry) Snooker() aim.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snooker
}

func (r *Registry) Bubble() aim.Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bubble
}

// Names lists the preset names in sorted order.
func Names() []string {
	return []string{NameBubble, NameSnooker}
}

// Get returns the named preset as a value suitable for encoding.
func (r *Registry) Get(name string) (any, error) {
	switch name {
	case NameSnooker:
		return r.Snooker(), nil
	case NameBubble:
		return r.Bubble(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
}

// Snapshot returns every preset.
func (r *Registry) Snapshot() Presets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Presets{Snooker: r.snooker, Bubble: r.bubble}
}

// Apply layers a partial YAML document over the named preset. Fields not in
// raw keep their current values. The preset is left untouched on error.
func (r *Registry) Apply(name string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch name {
	case NameSnooker:
		next := r.snooker
		if err := decodeStrict(bytes.NewReader(raw), &next); err != nil {
			return fmt.Errorf("apply %s preset: %w", name, err)
		}
		if err := validateTable(next); err != nil {
			return err
		}
		r.snooker = next
	case NameBubble:
		next := r.bubble
		if err := decodeStrict(bytes.NewReader(raw), &next); err != nil {
			return fmt.Errorf("apply %s preset: %w", name, err)
		}
		if err := validateBoard(next); err != nil {
			return err
		}
		r.bubble = next
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	r.version++
	return nil
}

// Version increases every time a preset changes.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// OverrideSource lists persisted preset overrides.
type OverrideSource interface {
	List(ctx context.Context) ([]Override, error)
}

// Hydrate applies every stored override, oldest first.
func (r *Registry) Hydrate(ctx context.Context, src OverrideSource) error {
	overrides, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if err := r.Apply(o.Name, []byte(o.Body)); err != nil {
			return fmt.Errorf("hydrate preset %s: %w", o.Name, err)
		}
	}
	return nil
}
