package imports

import (
	"fmt"
	"net/netip"

	"ipocket/feature/inventory/models"
)

// ValidationResult carries the pruned model plus everything the
// validator found. A non-empty Errors list means the run aborts and the
// applier is never invoked.
type ValidationResult struct {
	Errors   []Issue
	Warnings []Issue
	Model    *Model
}

// IsValid reports whether the model can be applied.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validate runs the structural and referential checks over a canonical
// model, in order: required fields, enum membership, IPv4
// parseability, tag normalization, in-run duplicate keys (demoted to
// warnings, first occurrence wins) and soft-reference resolution
// against the run model first, then the storage snapshot.
//
// Records failing a structural check are excluded from the returned
// model and reported as errors. Duplicates and (under lenient
// references) unresolved references only degrade the record.
func Validate(model *Model, snap *Snapshot) ValidationResult {
	result := ValidationResult{}
	pruned := &Model{StrictRefs: model.StrictRefs}

	vendorNames := make(map[string]struct{})
	for _, vendor := range model.Vendors {
		if vendor.Name == "" {
			result.Errors = append(result.Errors, errorIssue(vendor.Location, "vendor name is required"))
			continue
		}
		if _, dup := vendorNames[vendor.Name]; dup {
			result.Warnings = append(result.Warnings, warningIssue(vendor.Location, fmt.Sprintf("duplicate vendor %q in run, first occurrence wins", vendor.Name)))
			continue
		}
		vendorNames[vendor.Name] = struct{}{}
		pruned.Vendors = append(pruned.Vendors, vendor)
	}

	projectNames := make(map[string]struct{})
	for _, project := range model.Projects {
		if project.Name == "" {
			result.Errors = append(result.Errors, errorIssue(project.Location, "project name is required"))
			continue
		}
		if _, dup := projectNames[project.Name]; dup {
			result.Warnings = append(result.Warnings, warningIssue(project.Location, fmt.Sprintf("duplicate project %q in run, first occurrence wins", project.Name)))
			continue
		}
		// Register the name before the color check so records
		// referencing a color-invalid project report only the color
		// error, not a spurious unresolved reference.
		projectNames[project.Name] = struct{}{}
		if project.Color != nil {
			normalized, err := models.NormalizeHexColor(*project.Color)
			if err != nil {
				result.Errors = append(result.Errors, errorIssue(project.Location+".color", err.Error()))
				continue
			}
			project.Color = &normalized
		}
		pruned.Projects = append(pruned.Projects, project)
	}

	resolveVendor := func(name string) bool {
		if _, ok := vendorNames[name]; ok {
			return true
		}
		_, ok := snap.Vendors[name]
		return ok
	}
	resolveProject := func(name string) bool {
		if _, ok := projectNames[name]; ok {
			return true
		}
		_, ok := snap.Projects[name]
		return ok
	}

	hostNames := make(map[string]struct{})
	for _, host := range model.Hosts {
		if host.Name == "" {
			result.Errors = append(result.Errors, errorIssue(host.Location, "host name is required"))
			continue
		}
		if _, dup := hostNames[host.Name]; dup {
			result.Warnings = append(result.Warnings, warningIssue(host.Location, fmt.Sprintf("duplicate host %q in run, first occurrence wins", host.Name)))
			continue
		}
		hostNames[host.Name] = struct{}{}

		if host.VendorName != nil && *host.VendorName != "" && !resolveVendor(*host.VendorName) {
			if model.StrictRefs {
				result.Errors = append(result.Errors, errorIssue(host.Location+".vendor_name", fmt.Sprintf("vendor %q does not exist", *host.VendorName)))
				continue
			}
			result.Warnings = append(result.Warnings, warningIssue(host.Location+".vendor_name", fmt.Sprintf("vendor %q not found, host left unassigned", *host.VendorName)))
			host.VendorName = nil
		}
		if host.ProjectName != nil && *host.ProjectName != "" && !resolveProject(*host.ProjectName) {
			if model.StrictRefs {
				result.Errors = append(result.Errors, errorIssue(host.Location+".project_name", fmt.Sprintf("project %q does not exist", *host.ProjectName)))
				continue
			}
			result.Warnings = append(result.Warnings, warningIssue(host.Location+".project_name", fmt.Sprintf("project %q not found, host left unassigned", *host.ProjectName)))
			host.ProjectName = nil
		}
		pruned.Hosts = append(pruned.Hosts, host)
	}

	resolveHost := func(name string) bool {
		if _, ok := hostNames[name]; ok {
			return true
		}
		_, ok := snap.Hosts[name]
		return ok
	}

	tagNames := make(map[string]struct{})
	for _, tag := range model.Tags {
		normalized, err := models.NormalizeTagName(tag.Name)
		if err != nil {
			result.Errors = append(result.Errors, errorIssue(tag.Location, err.Error()))
			continue
		}
		if _, dup := tagNames[normalized]; dup {
			continue
		}
		tag.Name = normalized
		tagNames[normalized] = struct{}{}
		pruned.Tags = append(pruned.Tags, tag)
	}

	assetAddresses := make(map[string]struct{})
	for _, asset := range model.IPAssets {
		if asset.IPAddress == "" {
			result.Errors = append(result.Errors, errorIssue(asset.Location, "IP address is required"))
			continue
		}
		parsed, err := netip.ParseAddr(asset.IPAddress)
		if err != nil || !parsed.Is4() {
			result.Errors = append(result.Errors, errorIssue(asset.Location+".ip_address", fmt.Sprintf("invalid IPv4 address %q", asset.IPAddress)))
			continue
		}
		asset.IPAddress = parsed.String()

		if asset.Type == "" {
			result.Errors = append(result.Errors, errorIssue(asset.Location+".type", "asset type is required"))
			continue
		}
		normalizedType, err := models.NormalizeAssetType(asset.Type)
		if err != nil {
			result.Errors = append(result.Errors, errorIssue(asset.Location+".type", err.Error()))
			continue
		}
		asset.Type = string(normalizedType)

		if asset.Tags != nil {
			normalizedTags := make([]string, 0, len(asset.Tags))
			tagsValid := true
			seenTags := make(map[string]struct{})
			for _, raw := range asset.Tags {
				name, err := models.NormalizeTagName(raw)
				if err != nil {
					result.Errors = append(result.Errors, errorIssue(asset.Location+".tags", err.Error()))
					tagsValid = false
					break
				}
				if _, dup := seenTags[name]; dup {
					result.Warnings = append(result.Warnings, warningIssue(asset.Location+".tags", fmt.Sprintf("duplicate tag %q in record", name)))
					continue
				}
				seenTags[name] = struct{}{}
				normalizedTags = append(normalizedTags, name)
			}
			if !tagsValid {
				continue
			}
			asset.Tags = normalizedTags
		}

		if _, dup := assetAddresses[asset.IPAddress]; dup {
			result.Warnings = append(result.Warnings, warningIssue(asset.Location, fmt.Sprintf("duplicate IP %q in run, first occurrence wins", asset.IPAddress)))
			continue
		}
		assetAddresses[asset.IPAddress] = struct{}{}

		if asset.ProjectName != nil && *asset.ProjectName != "" && !resolveProject(*asset.ProjectName) {
			if model.StrictRefs {
				result.Errors = append(result.Errors, errorIssue(asset.Location+".project_name", fmt.Sprintf("project %q does not exist", *asset.ProjectName)))
				continue
			}
			result.Warnings = append(result.Warnings, warningIssue(asset.Location+".project_name", fmt.Sprintf("project %q not found, asset left unassigned", *asset.ProjectName)))
			asset.ProjectName = nil
		}
		if asset.HostName != nil && *asset.HostName != "" && !resolveHost(*asset.HostName) {
			if model.StrictRefs {
				result.Errors = append(result.Errors, errorIssue(asset.Location+".host_name", fmt.Sprintf("host %q does not exist", *asset.HostName)))
				continue
			}
			result.Warnings = append(result.Warnings, warningIssue(asset.Location+".host_name", fmt.Sprintf("host %q not found, asset left unassigned", *asset.HostName)))
			asset.HostName = nil
		}

		pruned.IPAssets = append(pruned.IPAssets, asset)
	}

	result.Model = pruned
	return result
}
