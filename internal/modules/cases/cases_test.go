package cases

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/models"
)

// dryRunDB builds a gorm handle that renders SQL without a connection.
func dryRunDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "host=localhost user=test dbname=test",
		PreferSimpleProtocol: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestEvidenceCountsIsOneGroupedQuery(t *testing.T) {
	svc := NewService(dryRunDB(t), nil, zap.NewNop())

	var rows []evidenceCountRow
	tx := svc.evidenceCountQuery([]string{"id-a", "id-b", "id-c"}).Scan(&rows)
	require.NoError(t, tx.Error)

	sql := tx.Statement.SQL.String()
	require.Contains(t, sql, "GROUP BY")
	require.Contains(t, sql, "COUNT(*)")
	require.Contains(t, sql, "case_id IN")
}

func TestEvidenceCountsEmptyListSkipsQuery(t *testing.T) {
	svc := NewService(dryRunDB(t), nil, zap.NewNop())

	counts, err := svc.evidenceCounts(nil)
	require.NoError(t, err)
	require.Empty(t, counts)
}

func TestCaseResponseShape(t *testing.T) {
	m := &models.CaseModel{Name: "arson inquiry", UserID: "u1"}
	m.ID = "11111111-2222-4333-8444-555555555555"

	out := toResponse(m, 3)
	require.Equal(t, m.ID, out.ID)
	require.Equal(t, "arson inquiry", out.Name)
	require.Equal(t, int64(3), out.EvidenceCount)
	require.Nil(t, out.CacheID)
}
