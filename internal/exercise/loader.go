package exercise

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// File is the top-level structure of an exercise catalogue YAML file.
//
// Example:
//
//	exercises:
//	  - id: ex-001
//	    title: Simple Greetings
//	    category: repeat_after_me
//	    difficulty: easy
//	    target_text: "Hello, how are you today?"
//	    instructions: Listen carefully, then repeat the greeting.
type File struct {
	Exercises []Exercise `yaml:"exercises"`
}

// LoadFile reads, parses and validates a catalogue YAML file from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("exercise: open catalogue %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("exercise: load catalogue %q: %w", path, err)
	}
	return c, nil
}

// LoadFromReader parses and validates catalogue YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("exercise: decode catalogue yaml: %w", err)
	}
	return NewCatalog(cf.Exercises)
}

// Default returns the built-in catalogue.
func Default() *Catalog {
	c, err := LoadFromReader(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic("exercise: built-in catalogue is invalid: " + err.Error())
	}
	return c
}

// Load returns the catalogue at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
