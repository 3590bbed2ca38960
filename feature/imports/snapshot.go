package imports

import (
	"context"
	"fmt"

	"ipocket/feature/inventory/models"

	"gorm.io/gorm"
)

// Snapshot is the existing inventory state loaded once per run. Both
// the validator (reference resolution) and the planner (diffing) read
// it; nothing writes to it.
type Snapshot struct {
	Vendors  map[string]*models.Vendor
	Projects map[string]*models.Project
	Hosts    map[string]*models.Host
	Tags     map[string]*models.Tag

	// Active holds non-archived assets by address, Archived the
	// soft-deleted ones eligible for restore.
	Active   map[string]*models.IPAsset
	Archived map[string]*models.IPAsset

	// AssetTags maps asset ID to its normalized tag names.
	AssetTags map[uint][]string

	projectNamesByID map[uint]string
	hostNamesByID    map[uint]string
	vendorNamesByID  map[uint]string
}

// NewSnapshot returns an empty snapshot, useful for tests and for runs
// against a blank inventory.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Vendors:          make(map[string]*models.Vendor),
		Projects:         make(map[string]*models.Project),
		Hosts:            make(map[string]*models.Host),
		Tags:             make(map[string]*models.Tag),
		Active:           make(map[string]*models.IPAsset),
		Archived:         make(map[string]*models.IPAsset),
		AssetTags:        make(map[uint][]string),
		projectNamesByID: make(map[uint]string),
		hostNamesByID:    make(map[uint]string),
		vendorNamesByID:  make(map[uint]string),
	}
}

// AddVendor indexes a vendor row.
func (s *Snapshot) AddVendor(vendor *models.Vendor) {
	s.Vendors[vendor.Name] = vendor
	s.vendorNamesByID[vendor.ID] = vendor.Name
}

// AddProject indexes a project row.
func (s *Snapshot) AddProject(project *models.Project) {
	s.Projects[project.Name] = project
	s.projectNamesByID[project.ID] = project.Name
}

// AddHost indexes a host row.
func (s *Snapshot) AddHost(host *models.Host) {
	s.Hosts[host.Name] = host
	s.hostNamesByID[host.ID] = host.Name
}

// AddTag indexes a tag row.
func (s *Snapshot) AddTag(tag *models.Tag) {
	s.Tags[tag.Name] = tag
}

// AddAsset indexes an IP asset row. Active rows shadow archived ones
// under the same address.
func (s *Snapshot) AddAsset(asset *models.IPAsset, tags []string) {
	if asset.Archived {
		s.Archived[asset.IPAddress] = asset
	} else {
		s.Active[asset.IPAddress] = asset
	}
	if tags != nil {
		s.AssetTags[asset.ID] = tags
	}
}

// ProjectName resolves a project ID to its name for diff rendering.
func (s *Snapshot) ProjectName(id *uint) string {
	if id == nil {
		return ""
	}
	return s.projectNamesByID[*id]
}

// HostName resolves a host ID to its name for diff rendering.
func (s *Snapshot) HostName(id *uint) string {
	if id == nil {
		return ""
	}
	return s.hostNamesByID[*id]
}

// VendorName resolves a vendor ID to its name for diff rendering.
func (s *Snapshot) VendorName(id *uint) string {
	if id == nil {
		return ""
	}
	return s.vendorNamesByID[*id]
}

// LoadSnapshot reads the whole inventory into lookup maps. One load
// serves the entire run; the engine performs no further reads.
func LoadSnapshot(ctx context.Context, db *gorm.DB) (*Snapshot, error) {
	snap := NewSnapshot()

	var vendors []models.Vendor
	if err := db.WithContext(ctx).Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	for i := range vendors {
		snap.AddVendor(&vendors[i])
	}

	var projects []models.Project
	if err := db.WithContext(ctx).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	for i := range projects {
		snap.AddProject(&projects[i])
	}

	var hosts []models.Host
	if err := db.WithContext(ctx).Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("failed to load hosts: %w", err)
	}
	for i := range hosts {
		snap.AddHost(&hosts[i])
	}

	var tags []models.Tag
	if err := db.WithContext(ctx).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	tagNamesByID := make(map[uint]string, len(tags))
	for i := range tags {
		snap.AddTag(&tags[i])
		tagNamesByID[tags[i].ID] = tags[i].Name
	}

	var assets []models.IPAsset
	if err := db.WithContext(ctx).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to load ip assets: %w", err)
	}

	var joins []models.IPAssetTag
	if err := db.WithContext(ctx).Find(&joins).Error; err != nil {
		return nil, fmt.Errorf("failed to load ip asset tags: %w", err)
	}
	tagsByAsset := make(map[uint][]string)
	for _, join := range joins {
		if name, ok := tagNamesByID[join.TagID]; ok {
			tagsByAsset[join.IPAssetID] = append(tagsByAsset[join.IPAssetID], name)
		}
	}

	for i := range assets {
		snap.AddAsset(&assets[i], tagsByAsset[assets[i].ID])
	}

	return snap, nil
}
