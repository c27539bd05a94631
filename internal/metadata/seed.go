package metadata

import (
	"context"
	"database/sql"
	"fmt"

	"gopkg.in/yaml.v3"

	"trackerql/internal/domain"
)

// Document is a metadata fixture.
type Document struct {
	TrackedEntityTypes []domain.TrackedEntityType `yaml:"trackedEntityTypes"`
	Programs           []SeedProgram              `yaml:"programs"`
	ProgramStages      []domain.ProgramStage      `yaml:"programStages"`
	DataElements       []domain.DataElement       `yaml:"dataElements"`
	Attributes         []domain.Attribute         `yaml:"attributes"`
}

// SeedProgram is a program with the attributes it enrolls.
type SeedProgram struct {
	domain.Program `yaml:",inline"`
	Attributes     []string `yaml:"attributes"`
}

// ParseDocument decodes and validates a YAML metadata document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.ErrValidation("parse metadata: %v", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	uids := func(kind string, list ...string) error {
		for _, uid := range list {
			if !domain.IsValidUID(uid) {
				return domain.ErrValidation("invalid %s uid %q", kind, uid)
			}
		}
		return nil
	}
	for _, t := range d.TrackedEntityTypes {
		if err := uids("tracked entity type", t.UID); err != nil {
			return err
		}
	}
	for _, p := range d.Programs {
		if err := uids("program", p.UID); err != nil {
			return err
		}
		if err := uids("attribute", p.Attributes...); err != nil {
			return err
		}
	}
	for _, st := range d.ProgramStages {
		if err := uids("program stage", st.UID); err != nil {
			return err
		}
	}
	for i, de := range d.DataElements {
		if err := uids("data element", de.UID); err != nil {
			return err
		}
		vt, err := parseValueType(de.ValueType)
		if err != nil {
			return err
		}
		d.DataElements[i].ValueType = vt
	}
	for i, a := range d.Attributes {
		if err := uids("attribute", a.UID); err != nil {
			return err
		}
		vt, err := parseValueType(a.ValueType)
		if err != nil {
			return err
		}
		d.Attributes[i].ValueType = vt
	}
	return nil
}

func parseValueType(vt domain.ValueType) (domain.ValueType, error) {
	if vt == "" {
		return domain.ValueTypeText, nil
	}
	return domain.ParseValueType(string(vt))
}

// Seed loads a YAML metadata document into db in one transaction. Existing
// rows with the same uid are updated.
func Seed(ctx context.Context, db *sql.DB, data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed metadata: %w", err)
		}
		return nil
	}

	for _, t := range doc.TrackedEntityTypes {
		if err := exec(`INSERT INTO tracked_entity_types (uid, name) VALUES (?, ?)
			ON CONFLICT (uid) DO UPDATE SET name = excluded.name`, t.UID, t.Name); err != nil {
			return err
		}
	}
	for _, a := range doc.Attributes {
		if err := exec(`INSERT INTO attributes (uid, name, value_type) VALUES (?, ?, ?)
			ON CONFLICT (uid) DO UPDATE SET name = excluded.name, value_type = excluded.value_type`,
			a.UID, a.Name, string(a.ValueType)); err != nil {
			return err
		}
	}
	for _, de := range doc.DataElements {
		if err := exec(`INSERT INTO data_elements (uid, name, value_type) VALUES (?, ?, ?)
			ON CONFLICT (uid) DO UPDATE SET name = excluded.name, value_type = excluded.value_type`,
			de.UID, de.Name, string(de.ValueType)); err != nil {
			return err
		}
	}
	for _, p := range doc.Programs {
		if err := exec(`INSERT INTO programs (uid, name, tracked_entity_type) VALUES (?, ?, ?)
			ON CONFLICT (uid) DO UPDATE SET name = excluded.name, tracked_entity_type = excluded.tracked_entity_type`,
			p.UID, p.Name, p.TrackedEntityType); err != nil {
			return err
		}
		for _, attr := range p.Attributes {
			if err := exec(`INSERT OR IGNORE INTO program_attributes (program, attribute) VALUES (?, ?)`,
				p.UID, attr); err != nil {
				return err
			}
		}
	}
	for _, st := range doc.ProgramStages {
		if err := exec(`INSERT INTO program_stages (uid, name, program, repeatable) VALUES (?, ?, ?, ?)
			ON CONFLICT (uid) DO UPDATE SET name = excluded.name, program = excluded.program, repeatable = excluded.repeatable`,
			st.UID, st.Name, st.Program, st.Repeatable); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
