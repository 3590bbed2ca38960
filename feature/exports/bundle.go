package exports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"

	"gorm.io/gorm"
)

// AppName is the producer stamp on exported bundles.
const AppName = "ipocket"

// Bundle is the versioned export document. Re-importing an unmodified
// bundle is a no-op: every field round-trips through the bundle
// adapter without producing a diff.
type Bundle struct {
	App           string     `json:"app"`
	SchemaVersion string     `json:"schema_version"`
	ExportedAt    string     `json:"exported_at"`
	Data          BundleData `json:"data"`
}

// BundleData holds the exported entity sections.
type BundleData struct {
	Vendors  []VendorEntry  `json:"vendors"`
	Projects []ProjectEntry `json:"projects"`
	Hosts    []HostEntry    `json:"hosts"`
	IPAssets []AssetEntry   `json:"ip_assets"`
}

// VendorEntry is one exported vendor.
type VendorEntry struct {
	Name string `json:"name"`
}

// ProjectEntry is one exported project.
type ProjectEntry struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// HostEntry is one exported host.
type HostEntry struct {
	Name        string  `json:"name"`
	Notes       *string `json:"notes,omitempty"`
	VendorName  *string `json:"vendor_name,omitempty"`
	ProjectName *string `json:"project_name,omitempty"`
}

// AssetEntry is one exported IP asset.
type AssetEntry struct {
	IPAddress   string   `json:"ip_address"`
	Type        string   `json:"type"`
	ProjectName *string  `json:"project_name,omitempty"`
	HostName    *string  `json:"host_name,omitempty"`
	Tags        []string `json:"tags"`
	Notes       *string  `json:"notes,omitempty"`
	Archived    bool     `json:"archived"`
}

// Options filters an export.
type Options struct {
	// IncludeArchived also exports soft-deleted assets.
	IncludeArchived bool
	// AssetType restricts the asset section to one type.
	AssetType string
	// ProjectName restricts projects and assets to one project.
	ProjectName string
	// HostName restricts hosts and assets to one host.
	HostName string
}

// BuildBundle reads the inventory and assembles an export document.
// Output is sorted by natural key for deterministic bundles.
func BuildBundle(ctx context.Context, db *gorm.DB, opts Options, now time.Time) (*Bundle, error) {
	snap, err := imports.LoadSnapshot(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory for export: %w", err)
	}

	var assetType models.AssetType
	if opts.AssetType != "" {
		assetType, err = models.NormalizeAssetType(opts.AssetType)
		if err != nil {
			return nil, err
		}
	}

	bundle := &Bundle{
		App:           AppName,
		SchemaVersion: imports.SchemaVersion,
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Data: BundleData{
			Vendors:  []VendorEntry{},
			Projects: []ProjectEntry{},
			Hosts:    []HostEntry{},
			IPAssets: []AssetEntry{},
		},
	}

	for _, vendor := range snap.Vendors {
		bundle.Data.Vendors = append(bundle.Data.Vendors, VendorEntry{Name: vendor.Name})
	}
	sort.Slice(bundle.Data.Vendors, func(i, j int) bool {
		return bundle.Data.Vendors[i].Name < bundle.Data.Vendors[j].Name
	})

	for _, project := range snap.Projects {
		if opts.ProjectName != "" && project.Name != opts.ProjectName {
			continue
		}
		bundle.Data.Projects = append(bundle.Data.Projects, ProjectEntry{
			Name:        project.Name,
			Description: project.Description,
			Color:       project.Color,
		})
	}
	sort.Slice(bundle.Data.Projects, func(i, j int) bool {
		return bundle.Data.Projects[i].Name < bundle.Data.Projects[j].Name
	})

	for _, host := range snap.Hosts {
		if opts.HostName != "" && host.Name != opts.HostName {
			continue
		}
		bundle.Data.Hosts = append(bundle.Data.Hosts, HostEntry{
			Name:        host.Name,
			Notes:       host.Notes,
			VendorName:  optionalName(snap.VendorName(host.VendorID)),
			ProjectName: optionalName(snap.ProjectName(host.ProjectID)),
		})
	}
	sort.Slice(bundle.Data.Hosts, func(i, j int) bool {
		return bundle.Data.Hosts[i].Name < bundle.Data.Hosts[j].Name
	})

	appendAsset := func(asset *models.IPAsset) {
		if opts.AssetType != "" && asset.AssetType != assetType {
			return
		}
		projectName := snap.ProjectName(asset.ProjectID)
		hostName := snap.HostName(asset.HostID)
		if opts.ProjectName != "" && projectName != opts.ProjectName {
			return
		}
		if opts.HostName != "" && hostName != opts.HostName {
			return
		}
		tags := snap.AssetTags[asset.ID]
		if tags == nil {
			tags = []string{}
		}
		sorted := append([]string{}, tags...)
		sort.Strings(sorted)
		bundle.Data.IPAssets = append(bundle.Data.IPAssets, AssetEntry{
			IPAddress:   asset.IPAddress,
			Type:        string(asset.AssetType),
			ProjectName: optionalName(projectName),
			HostName:    optionalName(hostName),
			Tags:        sorted,
			Notes:       asset.Notes,
			Archived:    asset.Archived,
		})
	}

	for _, asset := range snap.Active {
		appendAsset(asset)
	}
	if opts.IncludeArchived {
		for _, asset := range snap.Archived {
			appendAsset(asset)
		}
	}
	sort.Slice(bundle.Data.IPAssets, func(i, j int) bool {
		return bundle.Data.IPAssets[i].IPAddress < bundle.Data.IPAssets[j].IPAddress
	})

	return bundle, nil
}

func optionalName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}
