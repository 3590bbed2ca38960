package imports

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ipocket/feature/inventory/models"
)

// EntityAction is a planned upsert for a name-keyed entity without
// mutable fields (vendors, tags).
type EntityAction struct {
	Action ChangeAction
	Name   string
}

// ProjectAction is a planned project upsert carrying the target field
// values.
type ProjectAction struct {
	Action      ChangeAction
	Name        string
	Description *string
	Color       *string
}

// HostAction is a planned host upsert. Reference targets are names;
// the executor resolves them to IDs, which may only exist after
// earlier steps of the same pass.
type HostAction struct {
	Action      ChangeAction
	Name        string
	Notes       *string
	VendorName  *string
	ProjectName *string
}

// AssetAction is a planned IP asset upsert with the fully merged
// target state. Restored marks an archived row brought back to life.
type AssetAction struct {
	Action      ChangeAction
	IPAddress   string
	Restored    bool
	Type        models.AssetType
	ProjectName *string
	HostName    *string
	Tags        []string
	Notes       *string
	Archived    bool
}

// Plan is the complete, ordered set of storage mutations one run would
// perform, computed without touching storage. Dry-run returns the plan
// as-is; apply executes it. The symmetry between the two is this type.
type Plan struct {
	Vendors  []EntityAction
	Projects []ProjectAction
	Hosts    []HostAction
	Tags     []EntityAction
	Assets   []AssetAction

	Summary Summary
	Changes []RecordChange

	// Errors holds per-record conflicts (duplicate active address for
	// a create-only record). They do not abort the rest of the plan.
	Errors []Issue
}

// BuildPlan computes the ordered diff between a validated model and
// the storage snapshot. It is pure: the same model and snapshot always
// produce the same plan.
func BuildPlan(model *Model, snap *Snapshot) *Plan {
	plan := &Plan{}
	plan.planVendors(model, snap)
	plan.planProjects(model, snap)
	plan.planHosts(model, snap)
	plan.planTags(model, snap)
	plan.planAssets(model, snap)
	return plan
}

func (p *Plan) planVendors(model *Model, snap *Snapshot) {
	for _, vendor := range model.Vendors {
		if _, exists := snap.Vendors[vendor.Name]; exists {
			p.Summary.Vendors.Skipped++
			continue
		}
		p.Summary.Vendors.Created++
		p.Vendors = append(p.Vendors, EntityAction{Action: ActionCreate, Name: vendor.Name})
	}
}

func (p *Plan) planProjects(model *Model, snap *Snapshot) {
	for _, project := range model.Projects {
		existing, exists := snap.Projects[project.Name]
		if !exists {
			p.Summary.Projects.Created++
			p.Projects = append(p.Projects, ProjectAction{
				Action:      ActionCreate,
				Name:        project.Name,
				Description: project.Description,
				Color:       project.Color,
			})
			continue
		}

		targetDescription := existing.Description
		if project.Description != nil {
			targetDescription = project.Description
		}
		targetColor := existing.Color
		if project.Color != nil {
			targetColor = project.Color
		}
		if equalOptional(targetDescription, existing.Description) && equalOptional(targetColor, existing.Color) {
			p.Summary.Projects.Skipped++
			continue
		}
		p.Summary.Projects.Updated++
		p.Projects = append(p.Projects, ProjectAction{
			Action:      ActionUpdate,
			Name:        project.Name,
			Description: targetDescription,
			Color:       targetColor,
		})
	}
}

func (p *Plan) planHosts(model *Model, snap *Snapshot) {
	for _, host := range model.Hosts {
		existing, exists := snap.Hosts[host.Name]
		if !exists {
			p.Summary.Hosts.Created++
			p.Hosts = append(p.Hosts, HostAction{
				Action:      ActionCreate,
				Name:        host.Name,
				Notes:       cleanOptional(host.Notes),
				VendorName:  refTarget(host.VendorName, ""),
				ProjectName: refTarget(host.ProjectName, ""),
			})
			continue
		}

		targetNotes := existing.Notes
		if host.Notes != nil {
			targetNotes = cleanOptional(host.Notes)
		}
		targetVendor := refTarget(host.VendorName, snap.VendorName(existing.VendorID))
		targetProject := refTarget(host.ProjectName, snap.ProjectName(existing.ProjectID))

		if equalOptional(targetNotes, existing.Notes) &&
			equalOptional(targetVendor, optionalName(snap.VendorName(existing.VendorID))) &&
			equalOptional(targetProject, optionalName(snap.ProjectName(existing.ProjectID))) {
			p.Summary.Hosts.Skipped++
			continue
		}
		p.Summary.Hosts.Updated++
		p.Hosts = append(p.Hosts, HostAction{
			Action:      ActionUpdate,
			Name:        host.Name,
			Notes:       targetNotes,
			VendorName:  targetVendor,
			ProjectName: targetProject,
		})
	}
}

func (p *Plan) planTags(model *Model, snap *Snapshot) {
	for _, tag := range model.Tags {
		if _, exists := snap.Tags[tag.Name]; exists {
			p.Summary.Tags.Skipped++
			continue
		}
		p.Summary.Tags.Created++
		p.Tags = append(p.Tags, EntityAction{Action: ActionCreate, Name: tag.Name})
	}
}

func (p *Plan) planAssets(model *Model, snap *Snapshot) {
	for _, record := range model.IPAssets {
		active, hasActive := snap.Active[record.IPAddress]
		archived, hasArchived := snap.Archived[record.IPAddress]

		if hasActive && record.CreateOnly {
			// Create-only records never touch an existing active row.
			p.Summary.IPAssets.Skipped++
			p.Errors = append(p.Errors, errorIssue(record.Location, fmt.Sprintf("IP %q already exists as an active asset", record.IPAddress)))
			p.Changes = append(p.Changes, RecordChange{IPAddress: record.IPAddress, Action: ActionConflict})
			continue
		}

		switch {
		case hasActive:
			p.planAssetUpdate(record, active, snap, false)
		case hasArchived:
			// Restore the soft-deleted row in place instead of
			// inserting a second row for the same address.
			p.planAssetUpdate(record, archived, snap, true)
		default:
			p.planAssetCreate(record)
		}
	}
}

func (p *Plan) planAssetCreate(record IPAssetRecord) {
	assetType := models.AssetType(record.Type)
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	archived := false
	if record.Archived != nil {
		archived = *record.Archived
	}
	notes := cleanOptional(record.Notes)

	action := AssetAction{
		Action:      ActionCreate,
		IPAddress:   record.IPAddress,
		Type:        assetType,
		ProjectName: refTarget(record.ProjectName, ""),
		HostName:    refTarget(record.HostName, ""),
		Tags:        tags,
		Notes:       notes,
		Archived:    archived,
	}
	p.Summary.IPAssets.Created++
	p.Assets = append(p.Assets, action)
	p.Changes = append(p.Changes, RecordChange{
		IPAddress: record.IPAddress,
		Action:    ActionCreate,
		Fields: []FieldChange{
			{Field: "type", Before: "", After: string(assetType)},
			{Field: "project", Before: "", After: labelOrUnassigned(deref(action.ProjectName))},
			{Field: "host", Before: "", After: labelOrUnassigned(deref(action.HostName))},
			{Field: "tags", Before: "", After: formatTags(tags)},
			{Field: "notes", Before: "", After: deref(notes)},
			{Field: "archived", Before: "", After: strconv.FormatBool(archived)},
		},
	})
}

// planAssetUpdate merges one incoming record into an existing row.
// This is the only place the reconciliation policy is interpreted.
func (p *Plan) planAssetUpdate(record IPAssetRecord, existing *models.IPAsset, snap *Snapshot, restore bool) {
	policy := record.Policy

	targetType := models.AssetType(record.Type)
	if policy.PreserveType {
		targetType = existing.AssetType
	}

	existingTags := snap.AssetTags[existing.ID]
	var targetTags []string
	switch {
	case record.Tags == nil:
		targetTags = existingTags
	case policy.MergeTags:
		targetTags = unionTags(existingTags, record.Tags)
	default:
		targetTags = record.Tags
	}

	targetNotes := existing.Notes
	if record.Notes != nil {
		targetNotes = cleanOptional(record.Notes)
		if policy.PreserveNotes && deref(existing.Notes) != "" {
			targetNotes = existing.Notes
		}
	}

	existingProject := snap.ProjectName(existing.ProjectID)
	existingHost := snap.HostName(existing.HostID)
	targetProject := refTarget(record.ProjectName, existingProject)
	targetHost := refTarget(record.HostName, existingHost)

	targetArchived := existing.Archived
	if record.Archived != nil {
		targetArchived = *record.Archived
	} else if restore {
		targetArchived = false
	}

	var fields []FieldChange
	if targetType != existing.AssetType {
		fields = append(fields, FieldChange{Field: "type", Before: string(existing.AssetType), After: string(targetType)})
	}
	if deref(targetProject) != existingProject {
		fields = append(fields, FieldChange{Field: "project", Before: labelOrUnassigned(existingProject), After: labelOrUnassigned(deref(targetProject))})
	}
	if deref(targetHost) != existingHost {
		fields = append(fields, FieldChange{Field: "host", Before: labelOrUnassigned(existingHost), After: labelOrUnassigned(deref(targetHost))})
	}
	if !equalTagSets(targetTags, existingTags) {
		fields = append(fields, FieldChange{Field: "tags", Before: formatTags(existingTags), After: formatTags(targetTags)})
	}
	if deref(targetNotes) != deref(existing.Notes) {
		fields = append(fields, FieldChange{Field: "notes", Before: deref(existing.Notes), After: deref(targetNotes)})
	}
	if targetArchived != existing.Archived {
		fields = append(fields, FieldChange{Field: "archived", Before: strconv.FormatBool(existing.Archived), After: strconv.FormatBool(targetArchived)})
	}

	if len(fields) == 0 {
		p.Summary.IPAssets.Skipped++
		p.Changes = append(p.Changes, RecordChange{IPAddress: record.IPAddress, Action: ActionSkip})
		return
	}

	restored := existing.Archived && !targetArchived
	p.Summary.IPAssets.Updated++
	p.Assets = append(p.Assets, AssetAction{
		Action:      ActionUpdate,
		IPAddress:   record.IPAddress,
		Restored:    restored,
		Type:        targetType,
		ProjectName: targetProject,
		HostName:    targetHost,
		Tags:        targetTags,
		Notes:       targetNotes,
		Archived:    targetArchived,
	})
	p.Changes = append(p.Changes, RecordChange{
		IPAddress: record.IPAddress,
		Action:    ActionUpdate,
		Restored:  restored,
		Fields:    fields,
	})
}

// refTarget resolves a tri-state reference: nil keeps the existing
// assignment, an empty value is an explicit clear, anything else is
// the new target name.
func refTarget(incoming *string, existingName string) *string {
	if incoming == nil {
		return optionalName(existingName)
	}
	return optionalName(strings.TrimSpace(*incoming))
}

func optionalName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}

// cleanOptional collapses explicit empty values to "no value".
func cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func equalOptional(a, b *string) bool {
	return deref(a) == deref(b)
}

// unionTags keeps existing order and appends unseen incoming tags.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	result := make([]string, 0, len(existing)+len(incoming))
	for _, tag := range existing {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	for _, tag := range incoming {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

func equalTagSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}

func labelOrUnassigned(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unassigned"
	}
	return name
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
