package controller

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// ErrUnknownGreenhouse is returned when a snapshot names a greenhouse that
// the sites file does not list.
var ErrUnknownGreenhouse = errors.New("unknown greenhouse")

// Sites is the set of greenhouses the controller serves. An empty set
// accepts every greenhouse ID.
type Sites struct {
	Greenhouses []entities.Greenhouse `yaml:"greenhouses"`
	byID        map[string]entities.Greenhouse
}

// LoadSites reads a YAML sites file:
//
//	greenhouses:
//	  - id: gh-1
//	    name: North tunnel
//	    retention: 200
//
// An empty path yields an open Sites.
func LoadSites(path string) (*Sites, error) {
	if strings.TrimSpace(path) == "" {
		return NewSites(nil), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites %s: %w", path, err)
	}
	return ParseSites(b)
}

// ParseSites decodes a YAML sites document.
func ParseSites(b []byte) (*Sites, error) {
	var s Sites
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse sites: %w", err)
	}
	for i, g := range s.Greenhouses {
		if strings.TrimSpace(g.ID) == "" {
			return nil, fmt.Errorf("parse sites: greenhouse #%d has no id", i)
		}
		if g.Retention < 0 {
			return nil, fmt.Errorf("parse sites: greenhouse %s: negative retention", g.ID)
		}
	}
	return NewSites(s.Greenhouses), nil
}

func NewSites(gs []entities.Greenhouse) *Sites {
	s := &Sites{Greenhouses: gs, byID: make(map[string]entities.Greenhouse, len(gs))}
	for _, g := range gs {
		s.byID[g.ID] = g
	}
	return s
}

// Check returns ErrUnknownGreenhouse if the set is restricted and id is not in it.
func (s *Sites) Check(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownGreenhouse)
	}
	if s == nil || len(s.byID) == 0 {
		return nil
	}
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGreenhouse, id)
	}
	return nil
}
