package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"metaprops/internal/core/entity"
	"metaprops/internal/metadata"
)

// fixture is the YAML document accepted by --fixture.
//
//	timezone: Europe/Zurich
//	propertyTypes:
//	  - {code: SIZE, dataType: INTEGER}
//	entityTypes:
//	  - code: CELL
//	    kind: SAMPLE
//	    assignments:
//	      - {property: SIZE, mandatory: true, patternType: RANGES, pattern: "1-10"}
//	entities:
//	  - code: C1
//	    type: CELL
//	    properties: {SIZE: 5, TAGS: [a, b]}
type fixture struct {
	TimeZone      string                  `yaml:"timezone"`
	PropertyTypes []metadata.PropertyType `yaml:"propertyTypes"`
	EntityTypes   []fixtureEntityType     `yaml:"entityTypes"`
	Entities      []fixtureEntity         `yaml:"entities"`
}

type fixtureEntityType struct {
	Code        string              `yaml:"code"`
	Kind        metadata.EntityKind `yaml:"kind"`
	Description string              `yaml:"description"`
	Assignments []fixtureAssignment `yaml:"assignments"`
}

type fixtureAssignment struct {
	Property     string `yaml:"property"`
	Mandatory    bool   `yaml:"mandatory"`
	PatternType  string `yaml:"patternType"`
	Pattern      string `yaml:"pattern"`
	InitialValue string `yaml:"initialValue"`
}

type fixtureEntity struct {
	Code       string                   `yaml:"code"`
	PermID     string                   `yaml:"permId"`
	Type       string                   `yaml:"type"`
	Properties map[string]fixtureValues `yaml:"properties"`
}

// fixtureValues accepts a scalar or a sequence of scalars.
type fixtureValues []string

func (v *fixtureValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = fixtureValues{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	return fmt.Errorf("line %d: property value must be a scalar or a list", node.Line)
}

func loadFixtureFile(path string) (*fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeFixture(f)
}

func decodeFixture(r io.Reader) (*fixture, error) {
	var fx fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// apply stores the fixture through the services, so every assignment and
// entity passes the same checks as any other write.
func (fx *fixture) apply(ctx context.Context, a *app) error {
	propertyTypes := make(map[string]metadata.PropertyType, len(fx.PropertyTypes))
	for _, pt := range fx.PropertyTypes {
		dt, err := metadata.ParseDataType(string(pt.DataType))
		if err != nil {
			return fmt.Errorf("property type %s: %w", pt.Code, err)
		}
		pt.DataType = dt
		propertyTypes[pt.Code] = pt
	}

	kinds := make(map[string]metadata.EntityKind, len(fx.EntityTypes))
	for _, et := range fx.EntityTypes {
		kinds[et.Code] = et.Kind
		for i, fa := range et.Assignments {
			pt, ok := propertyTypes[fa.Property]
			if !ok {
				return fmt.Errorf("entity type %s: unknown property type %s", et.Code, fa.Property)
			}
			patternType, err := parsePatternType(fa.PatternType)
			if err != nil {
				return fmt.Errorf("entity type %s, property %s: %w", et.Code, fa.Property, err)
			}
			_, err = a.assignments.Create(ctx, metadata.PropertyAssignment{
				EntityType:   et.Code,
				PropertyType: pt,
				Mandatory:    fa.Mandatory,
				PatternType:  patternType,
				Pattern:      fa.Pattern,
				InitialValue: fa.InitialValue,
				Ordinal:      i + 1,
			})
			if err != nil {
				return fmt.Errorf("entity type %s, property %s: %w", et.Code, fa.Property, err)
			}
		}
	}

	entities := make([]*entity.Entity, 0, len(fx.Entities))
	for _, fe := range fx.Entities {
		e := entity.New(fe.Code, fe.Type, kinds[fe.Type])
		e.PermID = fe.PermID
		for code, values := range fe.Properties {
			e.Properties.Set(code, entity.PropertyValue{Values: values})
		}
		entities = append(entities, e)
	}
	_, err := a.properties.Import(ctx, entities)
	return err
}
