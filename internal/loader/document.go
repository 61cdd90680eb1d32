package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"fjShop/internal/shop"
)

// Document is the YAML/JSON form of a problem instance.
type Document struct {
	Machines []MachineDoc `yaml:"machines" json:"machines" validate:"required,min=1,dive"`
	Jobs     []JobDoc     `yaml:"jobs" json:"jobs" validate:"dive"`
}

type MachineDoc struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Capacity *int   `yaml:"capacity" json:"capacity" validate:"required,min=0"`
}

type JobDoc struct {
	Name       string         `yaml:"name" json:"name" validate:"required"`
	Operations []OperationDoc `yaml:"operations" json:"operations" validate:"dive"`
}

type OperationDoc struct {
	ID       int            `yaml:"id" json:"id"`
	Duration float64        `yaml:"duration" json:"duration" validate:"min=0"`
	Setup    float64        `yaml:"setup" json:"setup" validate:"min=0"`
	Tools    map[string]int `yaml:"tools" json:"tools" validate:"required,min=1,dive,keys,required,endkeys,min=0"`
}

var validate = validator.New()

// Instance validates the document and converts it to a shop.Instance.
func (d *Document) Instance() (*shop.Instance, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("invalid instance document: %w", err)
	}

	machines := make([]shop.Machine, len(d.Machines))
	for i, m := range d.Machines {
		machines[i] = shop.Machine{Name: m.Name, Capacity: *m.Capacity}
	}

	jobs := make([]shop.Job, len(d.Jobs))
	for i, j := range d.Jobs {
		ops := make([]shop.Operation, len(j.Operations))
		for k, o := range j.Operations {
			tools := make(map[string]int, len(o.Tools))
			for m, u := range o.Tools {
				tools[m] = u
			}
			ops[k] = shop.Operation{ID: o.ID, Duration: o.Duration, Setup: o.Setup, Tools: tools}
		}
		jobs[i] = shop.Job{Name: j.Name, Operations: ops}
	}
	return shop.NewInstance(machines, jobs)
}

// FromInstance is the inverse of Document.Instance.
func FromInstance(inst *shop.Instance) *Document {
	d := &Document{Machines: make([]MachineDoc, len(inst.Machines)), Jobs: make([]JobDoc, len(inst.Jobs))}
	for i, m := range inst.Machines {
		c := m.Capacity
		d.Machines[i] = MachineDoc{Name: m.Name, Capacity: &c}
	}
	for i, j := range inst.Jobs {
		jd := JobDoc{Name: j.Name, Operations: make([]OperationDoc, len(j.Operations))}
		for k, op := range j.Operations {
			jd.Operations[k] = OperationDoc{ID: op.ID, Duration: op.Duration, Setup: op.Setup, Tools: op.Tools}
		}
		d.Jobs[i] = jd
	}
	return d
}

// Parse decodes a YAML or JSON document.
func Parse(data []byte) (*shop.Instance, error) {
	var d Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing instance: %w", err)
	}
	return d.Instance()
}

// LoadFile reads a .yaml, .yml or .json instance file.
func LoadFile(path string) (*shop.Instance, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	case ".csv":
		return nil, errors.New("csv instances need a machines file, use LoadCSV")
	default:
		return nil, fmt.Errorf("unsupported instance format %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instance file: %w", err)
	}
	return Parse(data)
}
