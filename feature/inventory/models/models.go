package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// AssetType classifies an IP asset.
type AssetType string

const (
	AssetTypeOS    AssetType = "OS"
	AssetTypeBMC   AssetType = "BMC"
	AssetTypeVM    AssetType = "VM"
	AssetTypeVIP   AssetType = "VIP"
	AssetTypeOther AssetType = "OTHER"
)

// NormalizeAssetType parses a raw type value case-insensitively.
// Legacy IPMI aliases map to BMC.
func NormalizeAssetType(value string) (AssetType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "IPMI_ILO":
		return AssetTypeBMC, nil
	case string(AssetTypeOS), string(AssetTypeBMC), string(AssetTypeVM), string(AssetTypeVIP), string(AssetTypeOther):
		return AssetType(normalized), nil
	default:
		return "", fmt.Errorf("invalid asset type %q (use OS, BMC, VM, VIP, OTHER)", value)
	}
}

var tagNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeTagName trims and lowercases a tag name and rejects anything
// outside [a-z0-9_-].
func NormalizeTagName(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("tag name must not be empty")
	}
	if !tagNamePattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid tag name %q (use lowercase letters, digits, '-' and '_')", value)
	}
	return normalized, nil
}

// NormalizeTagNames normalizes a list of tag names, dropping duplicates
// while keeping first-seen order.
func NormalizeTagNames(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		normalized, err := NormalizeTagName(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result, nil
}

var hexColorPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// NormalizeHexColor validates a "#rrggbb" color, accepting the shorthand
// "#rgb" form and upper-case digits.
func NormalizeHexColor(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if len(normalized) == 4 && strings.HasPrefix(normalized, "#") {
		expanded := "#"
		for _, r := range normalized[1:] {
			expanded += string(r) + string(r)
		}
		normalized = expanded
	}
	if !hexColorPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid color %q (use #rrggbb)", value)
	}
	return normalized, nil
}

// Vendor is a hardware or platform vendor. Natural key: Name.
type Vendor struct {
	ID   uint   `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;uniqueIndex"`
}

// TableName overrides the table name.
func (Vendor) TableName() string {
	return "vendors"
}

// Project groups IP assets. Natural key: Name.
type Project struct {
	ID          uint    `gorm:"column:id;primaryKey"`
	Name        string  `gorm:"column:name;uniqueIndex"`
	Description *string `gorm:"column:description"`
	Color       *string `gorm:"column:color"`
}

// TableName overrides the table name.
func (Project) TableName() string {
	return "projects"
}

// Host is a physical or virtual machine. Natural key: Name.
type Host struct {
	ID        uint    `gorm:"column:id;primaryKey"`
	Name      string  `gorm:"column:name;uniqueIndex"`
	Notes     *string `gorm:"column:notes"`
	VendorID  *uint   `gorm:"column:vendor_id"`
	ProjectID *uint   `gorm:"column:project_id"`
}

// TableName overrides the table name.
func (Host) TableName() string {
	return "hosts"
}

// Tag is a normalized label attached to IP assets. Natural key: Name.
type Tag struct {
	ID    uint    `gorm:"column:id;primaryKey"`
	Name  string  `gorm:"column:name;uniqueIndex"`
	Color *string `gorm:"column:color"`
}

// TableName overrides the table name.
func (Tag) TableName() string {
	return "tags"
}

// IPAsset is a tracked IPv4 address. Natural key: IPAddress among
// non-archived rows; archived rows keep the address for restore.
type IPAsset struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	IPAddress string    `gorm:"column:ip_address;index"`
	AssetType AssetType `gorm:"column:asset_type"`
	ProjectID *uint     `gorm:"column:project_id"`
	HostID    *uint     `gorm:"column:host_id"`
	Notes     *string   `gorm:"column:notes"`
	Archived  bool      `gorm:"column:archived"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName overrides the table name.
func (IPAsset) TableName() string {
	return "ip_assets"
}

// IPAssetTag joins IP assets to tags.
type IPAssetTag struct {
	IPAssetID uint `gorm:"column:ip_asset_id;primaryKey"`
	TagID     uint `gorm:"column:tag_id;primaryKey"`
}

// TableName overrides the table name.
func (IPAssetTag) TableName() string {
	return "ip_asset_tags"
}

// ImportRunSummary is the audit record written once per committed import
// run. Dry-runs and aborted runs never produce one.
type ImportRunSummary struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	RunID     string    `gorm:"column:run_id"`
	Source    string    `gorm:"column:source"`
	Action    string    `gorm:"column:action"`
	Created   int       `gorm:"column:created_count"`
	Updated   int       `gorm:"column:updated_count"`
	Skipped   int       `gorm:"column:skipped_count"`
	Warnings  int       `gorm:"column:warning_count"`
	Errors    int       `gorm:"column:error_count"`
	Changes   string    `gorm:"column:changes"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (ImportRunSummary) TableName() string {
	return "import_run_summaries"
}

// Connector job states.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// ConnectorJob tracks one background connector run. Clients poll it by
// ID; there is no cancellation, a running job finishes or fails.
type ConnectorJob struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Connector string    `gorm:"column:connector" json:"connector"`
	Status    string    `gorm:"column:status" json:"status"`
	DryRun    bool      `gorm:"column:dry_run" json:"dry_run"`
	Created   int       `gorm:"column:created_count" json:"created"`
	Updated   int       `gorm:"column:updated_count" json:"updated"`
	Skipped   int       `gorm:"column:skipped_count" json:"skipped"`
	Warnings  int       `gorm:"column:warning_count" json:"warnings"`
	Errors    int       `gorm:"column:error_count" json:"errors"`
	Error     string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (ConnectorJob) TableName() string {
	return "connector_jobs"
}
