package imports

import (
	"context"
	"fmt"

	"ipocket/feature/inventory/models"

	"gorm.io/gorm"
)

// Execute commits a plan inside one transaction, in strict entity
// order so every reference resolved later in the pass already exists.
// Any failure rolls back the entire run; there are no partial commits.
func Execute(ctx context.Context, db *gorm.DB, plan *Plan, snap *Snapshot) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vendorIDs := make(map[string]uint, len(snap.Vendors))
		for name, vendor := range snap.Vendors {
			vendorIDs[name] = vendor.ID
		}
		projectIDs := make(map[string]uint, len(snap.Projects))
		for name, project := range snap.Projects {
			projectIDs[name] = project.ID
		}
		hostIDs := make(map[string]uint, len(snap.Hosts))
		for name, host := range snap.Hosts {
			hostIDs[name] = host.ID
		}
		tagIDs := make(map[string]uint, len(snap.Tags))
		for name, tag := range snap.Tags {
			tagIDs[name] = tag.ID
		}

		for _, action := range plan.Vendors {
			vendor := models.Vendor{Name: action.Name}
			if err := tx.Create(&vendor).Error; err != nil {
				return fmt.Errorf("failed to create vendor %q: %w", action.Name, err)
			}
			vendorIDs[action.Name] = vendor.ID
		}

		for _, action := range plan.Projects {
			switch action.Action {
			case ActionCreate:
				project := models.Project{
					Name:        action.Name,
					Description: action.Description,
					Color:       action.Color,
				}
				if err := tx.Create(&project).Error; err != nil {
					return fmt.Errorf("failed to create project %q: %w", action.Name, err)
				}
				projectIDs[action.Name] = project.ID
			case ActionUpdate:
				updates := map[string]any{
					"description": action.Description,
					"color":       action.Color,
				}
				if err := tx.Model(&models.Project{}).Where("name = ?", action.Name).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update project %q: %w", action.Name, err)
				}
			}
		}

		resolve := func(ids map[string]uint, name *string) *uint {
			if name == nil {
				return nil
			}
			if id, ok := ids[*name]; ok {
				return &id
			}
			return nil
		}

		for _, action := range plan.Hosts {
			vendorID := resolve(vendorIDs, action.VendorName)
			projectID := resolve(projectIDs, action.ProjectName)
			switch action.Action {
			case ActionCreate:
				host := models.Host{
					Name:      action.Name,
					Notes:     action.Notes,
					VendorID:  vendorID,
					ProjectID: projectID,
				}
				if err := tx.Create(&host).Error; err != nil {
					return fmt.Errorf("failed to create host %q: %w", action.Name, err)
				}
				hostIDs[action.Name] = host.ID
			case ActionUpdate:
				updates := map[string]any{
					"notes":      action.Notes,
					"vendor_id":  vendorID,
					"project_id": projectID,
				}
				if err := tx.Model(&models.Host{}).Where("name = ?", action.Name).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update host %q: %w", action.Name, err)
				}
			}
		}

		for _, action := range plan.Tags {
			tag := models.Tag{Name: action.Name}
			if err := tx.Create(&tag).Error; err != nil {
				return fmt.Errorf("failed to create tag %q: %w", action.Name, err)
			}
			tagIDs[action.Name] = tag.ID
		}

		for _, action := range plan.Assets {
			projectID := resolve(projectIDs, action.ProjectName)
			hostID := resolve(hostIDs, action.HostName)
			switch action.Action {
			case ActionCreate:
				asset := models.IPAsset{
					IPAddress: action.IPAddress,
					AssetType: action.Type,
					ProjectID: projectID,
					HostID:    hostID,
					Notes:     action.Notes,
					Archived:  action.Archived,
				}
				if err := tx.Create(&asset).Error; err != nil {
					return fmt.Errorf("failed to create ip asset %q: %w", action.IPAddress, err)
				}
				if err := replaceAssetTags(tx, asset.ID, action.Tags, tagIDs, false); err != nil {
					return err
				}
			case ActionUpdate:
				existing := snap.Active[action.IPAddress]
				if existing == nil {
					existing = snap.Archived[action.IPAddress]
				}
				if existing == nil {
					return fmt.Errorf("planned update for unknown ip asset %q", action.IPAddress)
				}
				updates := map[string]any{
					"asset_type": action.Type,
					"project_id": projectID,
					"host_id":    hostID,
					"notes":      action.Notes,
					"archived":   action.Archived,
				}
				if err := tx.Model(&models.IPAsset{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update ip asset %q: %w", action.IPAddress, err)
				}
				if err := replaceAssetTags(tx, existing.ID, action.Tags, tagIDs, true); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// replaceAssetTags rewrites the tag joins for one asset to exactly the
// target set.
func replaceAssetTags(tx *gorm.DB, assetID uint, tags []string, tagIDs map[string]uint, clearFirst bool) error {
	if clearFirst {
		if err := tx.Where("ip_asset_id = ?", assetID).Delete(&models.IPAssetTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear tags for asset %d: %w", assetID, err)
		}
	}
	for _, tag := range tags {
		id, ok := tagIDs[tag]
		if !ok {
			return fmt.Errorf("tag %q missing from run, cannot link asset %d", tag, assetID)
		}
		join := models.IPAssetTag{IPAssetID: assetID, TagID: id}
		if err := tx.Create(&join).Error; err != nil {
			return fmt.Errorf("failed to link tag %q to asset %d: %w", tag, assetID, err)
		}
	}
	return nil
}
