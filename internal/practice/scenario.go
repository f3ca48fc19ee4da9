package practice

import (
	"fmt"
	"strings"
)

// Scenario describes one guided session.
type Scenario struct {
	ID            string
	Title         string
	Description   string
	TotalDuration int // seconds
	Guidance      []string
}

// NewScenario validates and builds a Scenario.
func NewScenario(id, title string, totalDuration int, guidance []string) (Scenario, error) {
	s := Scenario{
		ID:            id,
		Title:         title,
		TotalDuration: totalDuration,
		Guidance:      append([]string(nil), guidance...),
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate rejects scenarios that would put the session machine into an
// ill-defined state.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidScenario)
	}
	if s.TotalDuration <= 0 {
		return fmt.Errorf("%w: %s: duration must be positive, got %d", ErrInvalidScenario, s.ID, s.TotalDuration)
	}
	if len(s.Guidance) == 0 {
		return fmt.Errorf("%w: %s: no guidance segments", ErrInvalidScenario, s.ID)
	}
	for i, g := range s.Guidance {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("%w: %s: guidance segment %d is empty", ErrInvalidScenario, s.ID, i)
		}
	}
	return nil
}

// ShortTitle is the archetype part of a "月亮 · 潜意识净化" style title.
func (s Scenario) ShortTitle() string {
	head, _, _ := strings.Cut(s.Title, "·")
	return strings.TrimSpace(head)
}

// SplitGuidance breaks a guide paragraph into sentence segments on "。".
func SplitGuidance(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "。") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
