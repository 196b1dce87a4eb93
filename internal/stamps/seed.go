package stamps

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/stampd/internal/resource"
)

// Seed is the YAML document accepted by the seed command:
//
//	stamps:
//	  - hash: 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
//	    type: sha256
type Seed struct {
	Stamps []SeedStamp `yaml:"stamps"`
}

// SeedStamp is one entry of a Seed. An empty Type means DefaultType.
type SeedStamp struct {
	Hash string `yaml:"hash"`
	Type Type   `yaml:"type"`
}

// LoadSeed decodes and validates a seed document. Every entry is checked
// before the caller writes anything.
func LoadSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, nil
		}
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}

	for i := range s.Stamps {
		e := &s.Stamps[i]
		if e.Type == "" {
			e.Type = DefaultType
		}
		if _, err := prepare(resource.Record{"hash": e.Hash, "type": string(e.Type)}); err != nil {
			return Seed{}, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return s, nil
}

// Apply creates every stamp in s in one transaction and returns the created
// stamps in order. On failure nothing is written and no stamps are returned.
func (s Seed) Apply(ctx context.Context, repo *Repository) ([]Stamp, error) {
	out := make([]Stamp, 0, len(s.Stamps))
	err := repo.InTx(ctx, func(tx *Repository) error {
		for i, e := range s.Stamps {
			st, err := tx.CreateStamp(ctx, e.Hash, e.Type)
			if err != nil {
				return fmt.Errorf("seed entry %d: %w", i, err)
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
