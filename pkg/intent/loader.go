package intent

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Rules    []ruleFile `yaml:"rules"`
	Fallback *ruleFile  `yaml:"fallback"`
}

type replyFile struct {
	Hindi   string `yaml:"hindi"`
	English string `yaml:"english"`
}

type ruleFile struct {
	Name        string    `yaml:"name"`
	Category    string    `yaml:"category"`
	Triggers    []string  `yaml:"triggers"`
	Reply       replyFile `yaml:"reply"`
	Action      string    `yaml:"action"`
	URL         string    `yaml:"url"`
	Compute     string    `yaml:"compute"`
	Unavailable replyFile `yaml:"unavailable"`
	Choices     []string  `yaml:"choices"`
	DelayMS     int       `yaml:"delay_ms"`
	Search      struct {
		Engine        string   `yaml:"engine"`
		Fillers       []string `yaml:"fillers"`
		Default       string   `yaml:"default"`
		SpokenDefault string   `yaml:"spoken_default"`
	} `yaml:"search"`
}

func (f ruleFile) rule() Rule {
	return Rule{
		Name:     f.Name,
		Category: f.Category,
		Triggers: f.Triggers,
		Reply:    Reply(f.Reply),
		Action: Action{
			Kind:    ActionKind(f.Action),
			URL:     f.URL,
			Compute: ComputeKind(f.Compute),
			Search: Search{
				Engine:        Engine(f.Search.Engine),
				Fillers:       f.Search.Fillers,
				Default:       f.Search.Default,
				SpokenDefault: f.Search.SpokenDefault,
			},
			Unavailable: Reply(f.Unavailable),
			Choices:     f.Choices,
			Delay:       time.Duration(f.DelayMS) * time.Millisecond,
		},
	}
}

// LoadCatalog decodes a YAML rule list. A missing fallback section uses
// DefaultFallback.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("decode catalog: no rules")
	}
	rules := make([]Rule, 0, len(file.Rules))
	for _, rf := range file.Rules {
		rules = append(rules, rf.rule())
	}
	fallback := DefaultFallback()
	if file.Fallback != nil {
		fallback = file.Fallback.rule()
	}
	return NewCatalog(rules, fallback)
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
