package metadata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackerql/internal/db"
	"trackerql/internal/domain"
	"trackerql/internal/metadata"
)

// === ParseDocument ===

func TestParseDocument(t *testing.T) {
	doc, err := metadata.ParseDocument([]byte(fixture))
	require.NoError(t, err)

	assert.Len(t, doc.TrackedEntityTypes, 1)
	assert.Len(t, doc.Programs, 2)
	assert.Equal(t, []string{attrUID}, doc.Programs[0].Attributes)
	assert.Equal(t, tetUID, doc.Programs[0].TrackedEntityType)
	assert.True(t, doc.ProgramStages[1].Repeatable)
	assert.Equal(t, domain.ValueTypeInteger, doc.DataElements[0].ValueType)
	assert.Equal(t, domain.ValueTypeText, doc.Attributes[1].ValueType, "missing value type defaults to TEXT")
}

func TestParseDocument_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"bad yaml", "programs: [", "parse metadata"},
		{"bad program uid", "programs:\n  - uid: short\n", `invalid program uid "short"`},
		{"bad attribute ref", "programs:\n  - uid: IpHINAT79UW\n    attributes: [x]\n", `invalid attribute uid "x"`},
		{"bad stage uid", "programStages:\n  - uid: 1abcdefghij\n", `invalid program stage uid "1abcdefghij"`},
		{"bad value type", "dataElements:\n  - uid: a3kGcGDCuk6\n    valueType: BLOB\n", `unknown value type "BLOB"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := metadata.ParseDocument([]byte(tt.doc))
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Message, tt.wantMsg)
		})
	}
}

// === Seed ===

func TestSeed(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, metadata.Seed(ctx, writeDB, []byte(fixture)))

	counts := map[string]int{
		"tracked_entity_types": 1,
		"programs":             2,
		"program_stages":       2,
		"data_elements":        1,
		"attributes":           2,
		"program_attributes":   1,
	}
	for table, want := range counts {
		var n int
		require.NoError(t, writeDB.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
		assert.Equal(t, want, n, table)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, metadata.Seed(ctx, writeDB, []byte(fixture)))
	require.NoError(t, metadata.Seed(ctx, writeDB, []byte(fixture)))

	update := `
dataElements:
  - uid: a3kGcGDCuk6
    name: Apgar
    valueType: NUMBER
`
	require.NoError(t, metadata.Seed(ctx, writeDB, []byte(update)))

	var name, vt string
	require.NoError(t, writeDB.QueryRow(`SELECT name, value_type FROM data_elements WHERE uid = ?`, deUID).Scan(&name, &vt))
	assert.Equal(t, "Apgar", name)
	assert.Equal(t, "NUMBER", vt)

	var n int
	require.NoError(t, writeDB.QueryRow(`SELECT count(*) FROM program_attributes`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSeed_RollsBackOnForeignKeyError(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)

	doc := `
trackedEntityTypes:
  - uid: nEenWmSyUEp
    name: Person
programs:
  - uid: IpHINAT79UW
    name: Child Programme
    trackedEntityType: xxxxxxxxxxx
`
	err := metadata.Seed(context.Background(), writeDB, []byte(doc))
	require.Error(t, err)

	var n int
	require.NoError(t, writeDB.QueryRow(`SELECT count(*) FROM tracked_entity_types`).Scan(&n))
	assert.Zero(t, n)
}
