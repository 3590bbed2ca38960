package exports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ipocket/core/database"
	"ipocket/core/storage/mocks"
	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const seedBundle = `{
	"schema_version": "1",
	"data": {
		"vendors": [{"name": "Dell"}],
		"projects": [{"name": "backbone", "color": "#00ff00"}, {"name": "edge"}],
		"hosts": [{"name": "rack1-node1", "vendor_name": "Dell", "project_name": "backbone"}],
		"ip_assets": [
			{"ip_address": "10.0.0.2", "type": "BMC", "host_name": "rack1-node1", "tags": []},
			{"ip_address": "10.0.0.1", "type": "OS", "project_name": "backbone", "host_name": "rack1-node1", "tags": ["web", "prod"], "notes": "primary"},
			{"ip_address": "10.0.0.9", "type": "VM", "project_name": "edge", "tags": [], "archived": true}
		]
	}
}`

func setupExportDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Vendor{},
		&models.Project{},
		&models.Host{},
		&models.Tag{},
		&models.IPAsset{},
		&models.IPAssetTag{},
		&models.ImportRunSummary{},
	))

	pipeline := imports.NewPipeline(db, zap.NewNop())
	result, err := pipeline.Run(context.Background(), imports.NewBundleAdapter(),
		map[string][]byte{imports.InputBundle: []byte(seedBundle)}, false)
	require.NoError(t, err)
	require.Equal(t, imports.StateApplied, result.State)
	return db
}

func TestBuildBundle(t *testing.T) {
	ctx := context.Background()
	db := setupExportDB(t)
	now := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	t.Run("Full Export", func(t *testing.T) {
		bundle, err := BuildBundle(ctx, db, Options{}, now)
		require.NoError(t, err)

		assert.Equal(t, AppName, bundle.App)
		assert.Equal(t, imports.SchemaVersion, bundle.SchemaVersion)
		assert.Equal(t, "2026-04-01T09:30:00Z", bundle.ExportedAt)

		require.Len(t, bundle.Data.Vendors, 1)
		require.Len(t, bundle.Data.Projects, 2)
		assert.Equal(t, "backbone", bundle.Data.Projects[0].Name)
		require.Len(t, bundle.Data.Hosts, 1)

		// Archived assets are excluded by default; output is sorted by
		// address.
		require.Len(t, bundle.Data.IPAssets, 2)
		assert.Equal(t, "10.0.0.1", bundle.Data.IPAssets[0].IPAddress)
		assert.Equal(t, []string{"prod", "web"}, bundle.Data.IPAssets[0].Tags)
		assert.Equal(t, "10.0.0.2", bundle.Data.IPAssets[1].IPAddress)
		assert.Equal(t, []string{}, bundle.Data.IPAssets[1].Tags)
	})

	t.Run("Include Archived", func(t *testing.T) {
		bundle, err := BuildBundle(ctx, db, Options{IncludeArchived: true}, now)
		require.NoError(t, err)
		require.Len(t, bundle.Data.IPAssets, 3)
		assert.True(t, bundle.Data.IPAssets[2].Archived)
	})

	t.Run("Type Filter", func(t *testing.T) {
		bundle, err := BuildBundle(ctx, db, Options{AssetType: "bmc"}, now)
		require.NoError(t, err)
		require.Len(t, bundle.Data.IPAssets, 1)
		assert.Equal(t, "10.0.0.2", bundle.Data.IPAssets[0].IPAddress)
	})

	t.Run("Project Filter", func(t *testing.T) {
		bundle, err := BuildBundle(ctx, db, Options{ProjectName: "backbone"}, now)
		require.NoError(t, err)
		require.Len(t, bundle.Data.Projects, 1)
		require.Len(t, bundle.Data.IPAssets, 1)
		assert.Equal(t, "10.0.0.1", bundle.Data.IPAssets[0].IPAddress)
	})

	t.Run("Invalid Type Filter", func(t *testing.T) {
		_, err := BuildBundle(ctx, db, Options{AssetType: "ROUTER"}, now)
		assert.Error(t, err)
	})
}

// Exporting and re-importing the same inventory must be a no-op run.
func TestBundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupExportDB(t)

	bundle, err := BuildBundle(ctx, db, Options{IncludeArchived: true}, time.Now())
	require.NoError(t, err)
	payload, err := json.Marshal(bundle)
	require.NoError(t, err)

	pipeline := imports.NewPipeline(db, zap.NewNop())
	result, err := pipeline.Run(ctx, imports.NewBundleAdapter(),
		map[string][]byte{imports.InputBundle: payload}, false)
	require.NoError(t, err)

	assert.Equal(t, imports.StateApplied, result.State)
	total := result.Summary.Total()
	assert.Zero(t, total.Created)
	assert.Zero(t, total.Updated)
	assert.Empty(t, result.Errors)
}

func TestService_Archive(t *testing.T) {
	ctx := context.Background()
	db := setupExportDB(t)

	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "inventory", mock.MatchedBy(func(name string) bool {
		return len(name) > 0
	}), mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	svc := NewService(db, mockClient, "inventory", zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	}

	bundle, err := svc.BuildBundle(ctx, Options{})
	require.NoError(t, err)

	objectName, err := svc.Archive(ctx, bundle)
	require.NoError(t, err)
	assert.Equal(t, "exports/bundle-20260401T093000Z.json", objectName)
	mockClient.AssertExpectations(t)
}

func TestService_ArchiveWithoutStorage(t *testing.T) {
	db := setupExportDB(t)
	svc := NewService(db, nil, "", zap.NewNop())
	_, err := svc.Archive(context.Background(), &Bundle{})
	assert.Error(t, err)
}
