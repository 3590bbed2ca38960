package imports

import (
	"testing"

	"ipocket/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidate_Structural(t *testing.T) {
	snap := NewSnapshot()

	t.Run("Missing Required Fields", func(t *testing.T) {
		model := &Model{
			Vendors:  []VendorRecord{{Name: "", Location: "data.vendors[0]"}},
			Hosts:    []HostRecord{{Name: "", Location: "data.hosts[0]"}},
			IPAssets: []IPAssetRecord{{IPAddress: "", Location: "data.ip_assets[0]"}},
		}
		result := Validate(model, snap)
		assert.False(t, result.IsValid())
		assert.Len(t, result.Errors, 3)
	})

	t.Run("Invalid IPv4", func(t *testing.T) {
		model := &Model{IPAssets: []IPAssetRecord{
			{IPAddress: "not-an-ip", Type: "OS", Location: "data.ip_assets[0]"},
			{IPAddress: "2001:db8::1", Type: "OS", Location: "data.ip_assets[1]"},
		}}
		result := Validate(model, snap)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0].Location, "ip_address")
	})

	t.Run("Type Normalization", func(t *testing.T) {
		model := &Model{IPAssets: []IPAssetRecord{
			{IPAddress: "10.0.0.1", Type: "ipmi_ilo", Location: "data.ip_assets[0]"},
		}}
		result := Validate(model, snap)
		require.True(t, result.IsValid())
		require.Len(t, result.Model.IPAssets, 1)
		assert.Equal(t, string(models.AssetTypeBMC), result.Model.IPAssets[0].Type)
	})

	t.Run("Invalid Type", func(t *testing.T) {
		model := &Model{IPAssets: []IPAssetRecord{
			{IPAddress: "10.0.0.1", Type: "ROUTER", Location: "data.ip_assets[0]"},
		}}
		result := Validate(model, snap)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Location, "type")
	})

	t.Run("Invalid Tag Is Hard Error", func(t *testing.T) {
		model := &Model{IPAssets: []IPAssetRecord{
			{IPAddress: "10.0.0.1", Type: "OS", Tags: []string{"Bad Tag!"}, Location: "data.ip_assets[0]"},
		}}
		result := Validate(model, snap)
		assert.False(t, result.IsValid())
	})

	t.Run("Invalid Color Is Hard Error", func(t *testing.T) {
		model := &Model{Projects: []ProjectRecord{
			{Name: "p1", Color: strPtr("#zzz"), Location: "data.projects[0]"},
		}}
		result := Validate(model, snap)
		assert.False(t, result.IsValid())
	})

	t.Run("Shorthand Color Expanded", func(t *testing.T) {
		model := &Model{Projects: []ProjectRecord{
			{Name: "p1", Color: strPtr("#0F0"), Location: "data.projects[0]"},
		}}
		result := Validate(model, snap)
		require.True(t, result.IsValid())
		require.NotNil(t, result.Model.Projects[0].Color)
		assert.Equal(t, "#00ff00", *result.Model.Projects[0].Color)
	})
}

func TestValidate_Duplicates(t *testing.T) {
	snap := NewSnapshot()

	model := &Model{
		Projects: []ProjectRecord{
			{Name: "backbone", Description: strPtr("first"), Location: "data.projects[0]"},
			{Name: "backbone", Description: strPtr("second"), Location: "data.projects[1]"},
		},
		IPAssets: []IPAssetRecord{
			{IPAddress: "10.0.0.1", Type: "OS", Notes: strPtr("first"), Location: "data.ip_assets[0]"},
			{IPAddress: "10.0.0.1", Type: "VM", Notes: strPtr("second"), Location: "data.ip_assets[1]"},
		},
	}
	result := Validate(model, snap)
	require.True(t, result.IsValid())

	// First occurrence wins; the rest demote to warnings.
	require.Len(t, result.Model.Projects, 1)
	assert.Equal(t, "first", *result.Model.Projects[0].Description)
	require.Len(t, result.Model.IPAssets, 1)
	assert.Equal(t, "first", *result.Model.IPAssets[0].Notes)
	assert.Len(t, result.Warnings, 2)
}

func TestValidate_References(t *testing.T) {
	snap := NewSnapshot()
	snap.AddProject(&models.Project{ID: 1, Name: "existing"})
	snap.AddHost(&models.Host{ID: 1, Name: "known-host"})

	t.Run("Strict Unresolved Is Error", func(t *testing.T) {
		model := &Model{
			StrictRefs: true,
			IPAssets: []IPAssetRecord{
				{IPAddress: "10.0.0.1", Type: "OS", ProjectName: strPtr("ghost"), Location: "data.ip_assets[0]"},
			},
		}
		result := Validate(model, snap)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Message, `"ghost"`)
	})

	t.Run("Lenient Unresolved Warns And Unassigns", func(t *testing.T) {
		model := &Model{
			IPAssets: []IPAssetRecord{
				{IPAddress: "10.0.0.1", Type: "OS", HostName: strPtr("ghost"), Location: "nmap.host[0]"},
			},
		}
		result := Validate(model, snap)
		require.True(t, result.IsValid())
		require.Len(t, result.Warnings, 1)
		require.Len(t, result.Model.IPAssets, 1)
		assert.Nil(t, result.Model.IPAssets[0].HostName)
	})

	t.Run("In-Run References Resolve Before Snapshot", func(t *testing.T) {
		model := &Model{
			StrictRefs: true,
			Projects:   []ProjectRecord{{Name: "new-project", Location: "data.projects[0]"}},
			Hosts:      []HostRecord{{Name: "new-host", ProjectName: strPtr("new-project"), Location: "data.hosts[0]"}},
			IPAssets: []IPAssetRecord{
				{IPAddress: "10.0.0.1", Type: "OS", HostName: strPtr("new-host"), Location: "data.ip_assets[0]"},
				{IPAddress: "10.0.0.2", Type: "OS", HostName: strPtr("known-host"), Location: "data.ip_assets[1]"},
			},
		}
		result := Validate(model, snap)
		assert.True(t, result.IsValid())
		assert.Empty(t, result.Warnings)
	})

	t.Run("Color-Invalid Project Still Resolves", func(t *testing.T) {
		// The color error alone aborts the run; records referencing
		// the project must not pile on unresolved-reference errors.
		model := &Model{
			StrictRefs: true,
			Projects:   []ProjectRecord{{Name: "tinted", Color: strPtr("#zzz"), Location: "data.projects[0]"}},
			IPAssets: []IPAssetRecord{
				{IPAddress: "10.0.0.1", Type: "OS", ProjectName: strPtr("tinted"), Location: "data.ip_assets[0]"},
			},
		}
		result := Validate(model, snap)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Location, "color")
	})

	t.Run("Explicit Clear Is Not A Reference", func(t *testing.T) {
		model := &Model{
			StrictRefs: true,
			IPAssets: []IPAssetRecord{
				{IPAddress: "10.0.0.1", Type: "OS", ProjectName: strPtr(""), Location: "data.ip_assets[0]"},
			},
		}
		result := Validate(model, snap)
		assert.True(t, result.IsValid())
	})
}
