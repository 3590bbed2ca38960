package imports

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaVersion is the only bundle schema this build reads and writes.
const SchemaVersion = "1"

// BundleAdapter parses the versioned JSON bundle format. It consumes
// the InputBundle key and requires schema_version "1".
type BundleAdapter struct{}

// NewBundleAdapter creates a bundle adapter.
func NewBundleAdapter() *BundleAdapter {
	return &BundleAdapter{}
}

// Name identifies the adapter.
func (a *BundleAdapter) Name() string {
	return "bundle"
}

type bundleEnvelope struct {
	App           string      `json:"app"`
	SchemaVersion string      `json:"schema_version"`
	ExportedAt    string      `json:"exported_at"`
	Data          *bundleData `json:"data"`
}

type bundleData struct {
	Vendors  []bundleVendor  `json:"vendors"`
	Projects []bundleProject `json:"projects"`
	Hosts    []bundleHost    `json:"hosts"`
	IPAssets []bundleAsset   `json:"ip_assets"`
}

type bundleVendor struct {
	Name string `json:"name"`
}

type bundleProject struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

type bundleHost struct {
	Name        string  `json:"name"`
	Notes       *string `json:"notes"`
	VendorName  *string `json:"vendor_name"`
	ProjectName *string `json:"project_name"`
}

type bundleAsset struct {
	IPAddress   string   `json:"ip_address"`
	Type        string   `json:"type"`
	ProjectName *string  `json:"project_name"`
	HostName    *string  `json:"host_name"`
	Tags        []string `json:"tags"`
	Notes       *string  `json:"notes"`
	Archived    *bool    `json:"archived"`
}

// Parse decodes a bundle document into a canonical model. References
// are strict: a bundle names only vendors, projects and hosts it
// carries or that already exist.
func (a *BundleAdapter) Parse(inputs map[string][]byte) (*Model, []Issue, error) {
	raw, ok := inputs[InputBundle]
	if !ok || len(raw) == 0 {
		return nil, nil, parseErrorf("bundle", "missing bundle.json input")
	}

	var envelope bundleEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			return nil, nil, parseErrorf(typeErr.Field, "unexpected %s value (expected %s)", typeErr.Value, typeErr.Type)
		}
		return nil, nil, parseErrorf("bundle", "invalid JSON payload: %v", err)
	}

	if envelope.SchemaVersion != SchemaVersion {
		return nil, nil, parseErrorf("schema_version", "unsupported schema_version %q (expected %q)", envelope.SchemaVersion, SchemaVersion)
	}
	if envelope.Data == nil {
		return nil, nil, parseErrorf("data", "missing data section")
	}

	model := &Model{StrictRefs: true}

	for i, vendor := range envelope.Data.Vendors {
		model.Vendors = append(model.Vendors, VendorRecord{
			Name:     strings.TrimSpace(vendor.Name),
			Location: fmt.Sprintf("data.vendors[%d]", i),
		})
	}

	for i, project := range envelope.Data.Projects {
		model.Projects = append(model.Projects, ProjectRecord{
			Name:        strings.TrimSpace(project.Name),
			Description: trimOptional(project.Description),
			Color:       trimOptional(project.Color),
			Location:    fmt.Sprintf("data.projects[%d]", i),
		})
	}

	for i, host := range envelope.Data.Hosts {
		model.Hosts = append(model.Hosts, HostRecord{
			Name:        strings.TrimSpace(host.Name),
			Notes:       host.Notes,
			VendorName:  trimOptional(host.VendorName),
			ProjectName: trimOptional(host.ProjectName),
			Location:    fmt.Sprintf("data.hosts[%d]", i),
		})
	}

	for i, asset := range envelope.Data.IPAssets {
		model.IPAssets = append(model.IPAssets, IPAssetRecord{
			IPAddress:   strings.TrimSpace(asset.IPAddress),
			Type:        strings.TrimSpace(asset.Type),
			ProjectName: trimOptional(asset.ProjectName),
			HostName:    trimOptional(asset.HostName),
			Tags:        asset.Tags,
			Notes:       asset.Notes,
			Archived:    asset.Archived,
			Location:    fmt.Sprintf("data.ip_assets[%d]", i),
		})
	}

	model.CollectTags()
	return model, nil, nil
}

// trimOptional trims an optional string; whitespace-only values become
// absent rather than explicit clears.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
