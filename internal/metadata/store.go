// Package metadata resolves program, stage, data element and attribute
// identifiers against the SQLite metadata database.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"trackerql/internal/domain"
)

// Compile-time check.
var _ domain.MetadataCatalog = (*Store)(nil)

// Store implements domain.MetadataCatalog. Lookups are cached for the life
// of the store; metadata is not expected to change while it is in use.
type Store struct {
	db *sql.DB

	dimensions sync.Map // lookup key → resolved
	tets       sync.Map // uid → *domain.TrackedEntityType
}

type resolved struct {
	name      string
	valueType domain.ValueType
}

// NewStore creates a Store reading from db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ResolveDimension checks the identifier's program and stage and returns it
// with the value type of its data element or attribute.
func (s *Store) ResolveDimension(ctx context.Context, id domain.DimensionIdentifier) (domain.ResolvedDimension, error) {
	key := lookupKey(id)
	if v, ok := s.dimensions.Load(key); ok {
		r := v.(resolved)
		return domain.ResolvedDimension{Identifier: id.WithValueType(r.valueType), Name: r.name, ValueType: r.valueType}, nil
	}

	r, err := s.resolve(ctx, id)
	if err != nil {
		return domain.ResolvedDimension{}, err
	}
	s.dimensions.Store(key, r)
	return domain.ResolvedDimension{Identifier: id.WithValueType(r.valueType), Name: r.name, ValueType: r.valueType}, nil
}

func lookupKey(id domain.DimensionIdentifier) string {
	var program, stage string
	if id.Program != nil {
		program = id.Program.UID
	}
	if id.ProgramStage != nil {
		stage = id.ProgramStage.UID
	}
	return program + "/" + stage + "/" + id.Dimension.UID
}

func (s *Store) resolve(ctx context.Context, id domain.DimensionIdentifier) (resolved, error) {
	dim := id.Dimension.UID

	if id.Program != nil {
		if err := s.requireProgram(ctx, id.Program.UID); err != nil {
			return resolved{}, err
		}
	}

	switch id.Level() {
	case domain.LevelEvent:
		if err := s.requireStage(ctx, id.Program.UID, id.ProgramStage.UID); err != nil {
			return resolved{}, err
		}
		return s.lookup(ctx, "data element", dim,
			`SELECT name, value_type FROM data_elements WHERE uid = ?`, dim)
	case domain.LevelEnrollment:
		return s.lookup(ctx, "program attribute", dim,
			`SELECT a.name, a.value_type FROM attributes a
			 JOIN program_attributes pa ON pa.attribute = a.uid
			 WHERE pa.program = ? AND a.uid = ?`, id.Program.UID, dim)
	default:
		return s.lookup(ctx, "attribute", dim,
			`SELECT name, value_type FROM attributes WHERE uid = ?`, dim)
	}
}

func (s *Store) requireProgram(ctx context.Context, uid string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM programs WHERE uid = ?`, uid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("program %q not found", uid)
	}
	if err != nil {
		return fmt.Errorf("lookup program: %w", err)
	}
	return nil
}

func (s *Store) requireStage(ctx context.Context, program, stage string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT program FROM program_stages WHERE uid = ?`, stage).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("program stage %q not found", stage)
	}
	if err != nil {
		return fmt.Errorf("lookup program stage: %w", err)
	}
	if owner != program {
		return domain.ErrValidation("program stage %q does not belong to program %q", stage, program)
	}
	return nil
}

func (s *Store) lookup(ctx context.Context, kind, uid, query string, args ...any) (resolved, error) {
	var name, vt string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&name, &vt)
	if errors.Is(err, sql.ErrNoRows) {
		return resolved{}, domain.ErrNotFound("%s %q not found", kind, uid)
	}
	if err != nil {
		return resolved{}, fmt.Errorf("lookup %s: %w", kind, err)
	}
	valueType, err := domain.ParseValueType(vt)
	if err != nil {
		return resolved{}, domain.ErrCompile("%s %q has unknown value type %q", kind, uid, vt)
	}
	return resolved{name: name, valueType: valueType}, nil
}

// TrackedEntityType returns the tracked entity type with the given uid.
func (s *Store) TrackedEntityType(ctx context.Context, uid string) (*domain.TrackedEntityType, error) {
	if v, ok := s.tets.Load(uid); ok {
		tet := *v.(*domain.TrackedEntityType)
		return &tet, nil
	}

	tet := &domain.TrackedEntityType{UID: uid}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM tracked_entity_types WHERE uid = ?`, uid).Scan(&tet.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("tracked entity type %q not found", uid)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tracked entity type: %w", err)
	}
	s.tets.Store(uid, tet)
	out := *tet
	return &out, nil
}
