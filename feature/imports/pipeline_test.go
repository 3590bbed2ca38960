package imports

import (
	"context"
	"testing"

	"ipocket/core/database"
	"ipocket/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite DB with the inventory schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Vendor{},
		&models.Project{},
		&models.Host{},
		&models.Tag{},
		&models.IPAsset{},
		&models.IPAssetTag{},
		&models.ImportRunSummary{},
	)
	require.NoError(t, err)
	return db
}

func TestPipeline_BundleRun(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())
	inputs := map[string][]byte{InputBundle: []byte(validBundle)}

	t.Run("Dry Run Writes Nothing", func(t *testing.T) {
		result, err := pipeline.Run(ctx, NewBundleAdapter(), inputs, true)
		require.NoError(t, err)
		assert.Equal(t, StatePreviewed, result.State)
		assert.Equal(t, 2, result.Summary.IPAssets.Created)

		var assetCount, auditCount int64
		require.NoError(t, db.Model(&models.IPAsset{}).Count(&assetCount).Error)
		require.NoError(t, db.Model(&models.ImportRunSummary{}).Count(&auditCount).Error)
		assert.Zero(t, assetCount)
		assert.Zero(t, auditCount)
	})

	t.Run("Apply Commits And Audits", func(t *testing.T) {
		result, err := pipeline.Run(ctx, NewBundleAdapter(), inputs, false)
		require.NoError(t, err)
		assert.Equal(t, StateApplied, result.State)

		var assets []models.IPAsset
		require.NoError(t, db.Find(&assets).Error)
		assert.Len(t, assets, 2)

		var hosts []models.Host
		require.NoError(t, db.Find(&hosts).Error)
		require.Len(t, hosts, 1)
		assert.NotNil(t, hosts[0].VendorID)
		assert.NotNil(t, hosts[0].ProjectID)

		var joins []models.IPAssetTag
		require.NoError(t, db.Find(&joins).Error)
		assert.Len(t, joins, 2)

		var audits []models.ImportRunSummary
		require.NoError(t, db.Find(&audits).Error)
		require.Len(t, audits, 1)
		assert.Equal(t, result.RunID, audits[0].RunID)
		assert.Equal(t, "APPLY", audits[0].Action)
		assert.Equal(t, "bundle", audits[0].Source)
	})

	t.Run("Reapply Is Idempotent", func(t *testing.T) {
		result, err := pipeline.Run(ctx, NewBundleAdapter(), inputs, false)
		require.NoError(t, err)
		assert.Equal(t, StateApplied, result.State)

		total := result.Summary.Total()
		assert.Zero(t, total.Created)
		assert.Zero(t, total.Updated)
		assert.Equal(t, 7, total.Skipped)

		var assetCount int64
		require.NoError(t, db.Model(&models.IPAsset{}).Count(&assetCount).Error)
		assert.EqualValues(t, 2, assetCount)

		// Every committed apply leaves exactly one audit row.
		var auditCount int64
		require.NoError(t, db.Model(&models.ImportRunSummary{}).Count(&auditCount).Error)
		assert.EqualValues(t, 2, auditCount)
	})
}

func TestPipeline_AbortOnHardError(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())

	// One bad row aborts the whole batch, valid rows included.
	assets := "ip_address,type\n10.0.0.1,OS\nnot-an-ip,OS\n"
	result, err := pipeline.Run(ctx, NewCSVAdapter(), map[string][]byte{InputIPAssets: []byte(assets)}, false)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, result.State)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Location, "ip-assets.csv:line 3")

	var assetCount int64
	require.NoError(t, db.Model(&models.IPAsset{}).Count(&assetCount).Error)
	assert.Zero(t, assetCount)
}

func TestPipeline_ParseFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())

	result, err := pipeline.Run(ctx, NewBundleAdapter(), map[string][]byte{InputBundle: []byte("{...")}, false)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, result.State)
	require.Len(t, result.Errors, 1)
}

func TestPipeline_ArchiveRestore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())

	require.NoError(t, db.Create(&models.IPAsset{
		IPAddress: "10.0.0.9",
		AssetType: models.AssetTypeVM,
		Archived:  true,
	}).Error)

	payload := `{"schema_version": "1", "data": {"ip_assets": [{"ip_address": "10.0.0.9", "type": "VM"}]}}`
	result, err := pipeline.Run(ctx, NewBundleAdapter(), map[string][]byte{InputBundle: []byte(payload)}, false)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, result.State)
	assert.Equal(t, 1, result.Summary.IPAssets.Updated)
	require.Len(t, result.Changes, 1)
	assert.True(t, result.Changes[0].Restored)

	// The archived row came back; no second row was inserted.
	var rows []models.IPAsset
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Archived)
}

func TestPipeline_DiscoveryRestoreKeepsOperatorFields(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())

	require.NoError(t, db.Create(&models.IPAsset{
		IPAddress: "10.0.0.7",
		AssetType: models.AssetTypeBMC,
		Notes:     strPtr("operator note"),
		Archived:  true,
	}).Error)

	report := `<nmaprun>
	<host><status state="up"/><address addr="10.0.0.7" addrtype="ipv4"/></host>
</nmaprun>`
	result, err := pipeline.Run(ctx, NewNmapAdapter(), map[string][]byte{InputNmap: []byte(report)}, false)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, result.State)
	assert.Equal(t, 1, result.Summary.IPAssets.Updated)

	// Discovery restores the row but never rewrites what an operator
	// recorded on it.
	var rows []models.IPAsset
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Archived)
	assert.Equal(t, models.AssetTypeBMC, rows[0].AssetType)
	require.NotNil(t, rows[0].Notes)
	assert.Equal(t, "operator note", *rows[0].Notes)
}

func TestPipeline_DuplicateActiveConflict(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	pipeline := NewPipeline(db, zap.NewNop())

	require.NoError(t, db.Create(&models.IPAsset{
		IPAddress: "10.0.0.1",
		AssetType: models.AssetTypeOS,
	}).Error)

	report := `<nmaprun>
	<host><status state="up"/><address addr="10.0.0.1" addrtype="ipv4"/></host>
	<host><status state="up"/><address addr="10.0.0.2" addrtype="ipv4"/></host>
</nmaprun>`
	result, err := pipeline.Run(ctx, NewNmapAdapter(), map[string][]byte{InputNmap: []byte(report)}, false)
	require.NoError(t, err)

	// The conflict is per-record: the run still applies the clean
	// discovery.
	assert.Equal(t, StateApplied, result.State)
	assert.Equal(t, 1, result.Summary.IPAssets.Created)
	assert.Equal(t, 1, result.Summary.IPAssets.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "10.0.0.1")

	var rowCount int64
	require.NoError(t, db.Model(&models.IPAsset{}).Count(&rowCount).Error)
	assert.EqualValues(t, 2, rowCount)
}
