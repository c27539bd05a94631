package metadata_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"trackerql/internal/db"
	"trackerql/internal/metadata"
)

const (
	tetUID     = "nEenWmSyUEp"
	programUID = "IpHINAT79UW"
	stageUID   = "A03MvHHogjR"
	deUID      = "a3kGcGDCuk6"
	attrUID    = "w75KJ2mc4zz"
	otherAttr  = "zDhUuAYrxNC"
	otherProg  = "ur1Edk5Oe2n"
	otherStage = "ZkbAXlQUYJG"
)

const fixture = `
trackedEntityTypes:
  - uid: nEenWmSyUEp
    name: Person
attributes:
  - uid: w75KJ2mc4zz
    name: First name
    valueType: TEXT
  - uid: zDhUuAYrxNC
    name: Last name
dataElements:
  - uid: a3kGcGDCuk6
    name: MCH Apgar Score
    valueType: integer
programs:
  - uid: IpHINAT79UW
    name: Child Programme
    trackedEntityType: nEenWmSyUEp
    attributes: [w75KJ2mc4zz]
  - uid: ur1Edk5Oe2n
    name: TB program
    trackedEntityType: nEenWmSyUEp
programStages:
  - uid: A03MvHHogjR
    name: Birth
    program: IpHINAT79UW
  - uid: ZkbAXlQUYJG
    name: TB visit
    program: ur1Edk5Oe2n
    repeatable: true
`

func seededStore(t *testing.T) (*metadata.Store, *sql.DB) {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)
	require.NoError(t, metadata.Seed(context.Background(), writeDB, []byte(fixture)))
	return metadata.NewStore(readDB), writeDB
}
