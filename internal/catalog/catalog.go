// Package catalog holds the static content the app is built around: guided
// scenarios, sensory calibration senses and tasks, and the tarot deck.
package catalog

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"

	"echo-moon/internal/journal"
	"echo-moon/internal/practice"
)

//go:embed catalog.yaml
var embedded []byte

type Sense struct {
	ID    journal.Sense `yaml:"id"`
	Title string        `yaml:"title"`
	Guide string        `yaml:"guide"`
	Tasks []string      `yaml:"tasks"`
}

// ShortTitle is the part of the title before "·".
func (s Sense) ShortTitle() string {
	head, _, _ := strings.Cut(s.Title, "·")
	return strings.TrimSpace(head)
}

type Card struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Meaning  string   `yaml:"meaning"`
	ImageURL string   `yaml:"image_url"`
}

type scenarioDoc struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    int    `yaml:"duration"`
	Guide       string `yaml:"guide"`
}

type document struct {
	Scenarios []scenarioDoc `yaml:"scenarios"`
	Senses    []Sense       `yaml:"senses"`
	Tarot     []Card        `yaml:"tarot"`
}

type Catalog struct {
	Scenarios []practice.Scenario
	Senses    []Sense
	Deck      []Card
}

// Default parses the catalogue compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Parse decodes a catalogue document and validates every scenario.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{Senses: doc.Senses, Deck: doc.Tarot}
	for _, d := range doc.Scenarios {
		sc, err := practice.NewScenario(d.ID, d.Title, d.Duration, practice.SplitGuidance(d.Guide))
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", d.ID, err)
		}
		sc.Description = d.Description
		c.Scenarios = append(c.Scenarios, sc)
	}
	return c, nil
}

func (c *Catalog) Scenario(id string) (practice.Scenario, bool) {
	for _, sc := range c.Scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return practice.Scenario{}, false
}

func (c *Catalog) Sense(id journal.Sense) (Sense, bool) {
	for _, s := range c.Senses {
		if s.ID == id {
			return s, true
		}
	}
	return Sense{}, false
}

func (c *Catalog) Card(id string) (Card, bool) {
	for _, card := range c.Deck {
		if card.ID == id {
			return card, true
		}
	}
	return Card{}, false
}

// Draw returns a random card.
func (c *Catalog) Draw() Card {
	return c.Deck[rand.IntN(len(c.Deck))]
}
