package reorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTiers indicates a pack-size tier list that is empty, non-positive
// or not strictly ascending.
var ErrInvalidTiers = errors.New("invalid pack-size tiers")

// Tiers is an ascending sequence of pack sizes an order is rounded up to.
type Tiers []int

// Named tier presets.
const (
	PresetStandard = "standard"
	PresetLegacy   = "legacy"
)

var presets = map[string]Tiers{
	PresetStandard: {1, 3, 5, 10, 20, 50},
	PresetLegacy:   {1, 2, 5, 10, 20, 50},
}

// StandardTiers returns the default pack sizes.
func StandardTiers() Tiers {
	return append(Tiers(nil), presets[PresetStandard]...)
}

// ParseTiers accepts a preset name or a comma-separated list such as
// "1,3,5,10,20,50".
func ParseTiers(spec string) (Tiers, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" {
		return StandardTiers(), nil
	}
	if preset, ok := presets[spec]; ok {
		return append(Tiers(nil), preset...), nil
	}

	parts := strings.Split(spec, ",")
	tiers := make(Tiers, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidTiers, p)
		}
		tiers = append(tiers, v)
	}
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return tiers, nil
}

// Validate checks the tiers are non-empty, positive and strictly ascending.
func (t Tiers) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTiers)
	}
	for i, v := range t {
		if v <= 0 {
			return fmt.Errorf("%w: %d is not positive", ErrInvalidTiers, v)
		}
		if i > 0 && v <= t[i-1] {
			return fmt.Errorf("%w: %d does not follow %d", ErrInvalidTiers, v, t[i-1])
		}
	}
	return nil
}

// Max is the largest tier.
func (t Tiers) Max() int {
	return t[len(t)-1]
}

func (t Tiers) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
