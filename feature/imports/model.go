package imports

import (
	"fmt"

	"ipocket/feature/inventory/models"
)

// IssueLevel distinguishes run-aborting errors from skip-and-continue
// warnings.
type IssueLevel string

const (
	LevelError   IssueLevel = "error"
	LevelWarning IssueLevel = "warning"
)

// Issue is a single validation or parse finding. Location is a locator
// the user can act on: a JSON path for bundles ("data.ip_assets[3].type")
// or a file:line pair for CSV ("ip-assets.csv:line 4").
type Issue struct {
	Location string     `json:"location"`
	Message  string     `json:"message"`
	Level    IssueLevel `json:"level"`
}

func errorIssue(location, message string) Issue {
	return Issue{Location: location, Message: message, Level: LevelError}
}

func warningIssue(location, message string) Issue {
	return Issue{Location: location, Message: message, Level: LevelWarning}
}

// ParseError aborts a run before validation. It carries the locator of
// the structural problem that made the input unreadable.
type ParseError struct {
	Location string
	Message  string
}

func (e *ParseError) Error() string {
	return e.Message
}

func parseErrorf(location, format string, args ...any) *ParseError {
	return &ParseError{Location: location, Message: fmt.Sprintf(format, args...)}
}

// Policy controls how an incoming IP asset record resolves conflicts
// with an existing row. Adapters set it once per record; the planner is
// the only place that branches on it.
type Policy struct {
	// PreserveNotes keeps a non-empty existing note instead of the
	// incoming one on update.
	PreserveNotes bool `json:"preserve_existing_notes"`
	// MergeTags unions incoming tags with existing ones instead of
	// replacing them.
	MergeTags bool `json:"merge_tags"`
	// PreserveType keeps the existing asset type on update. New rows
	// always use the incoming type.
	PreserveType bool `json:"preserve_existing_type"`
}

// VendorRecord is a vendor keyed by name.
type VendorRecord struct {
	Name     string
	Location string
}

// ProjectRecord is a project keyed by name.
type ProjectRecord struct {
	Name        string
	Description *string
	Color       *string
	Location    string
}

// HostRecord is a host keyed by name. VendorName and ProjectName are
// soft references resolved by lookup during validation.
type HostRecord struct {
	Name        string
	Notes       *string
	VendorName  *string
	ProjectName *string
	Location    string
}

// TagRecord is a tag keyed by its normalized name.
type TagRecord struct {
	Name     string
	Color    *string
	Location string
}

// IPAssetRecord is an IP asset keyed by address. Pointer fields are
// tri-state: nil means "not provided, leave the existing value alone",
// a pointer to the zero value means an explicit clear.
type IPAssetRecord struct {
	IPAddress   string
	Type        string
	ProjectName *string
	HostName    *string
	Tags        []string
	Notes       *string
	Archived    *bool
	Location    string

	// Policy is the per-source conflict resolution contract.
	Policy Policy

	// CreateOnly marks discovery-style records that must never update
	// an existing active row. A create hitting an active duplicate is
	// a per-record conflict; one hitting an archived row restores it.
	CreateOnly bool
}

// Model is the canonical entity graph produced by one adapter for one
// run. It holds no cross-run state and is discarded when the run ends.
type Model struct {
	Vendors  []VendorRecord
	Projects []ProjectRecord
	Hosts    []HostRecord
	Tags     []TagRecord
	IPAssets []IPAssetRecord

	// StrictRefs makes unresolved soft references hard errors instead
	// of warnings. Bundle and CSV adapters set it; discovery and
	// connector adapters leave references lenient.
	StrictRefs bool
}

// CollectTags derives TagRecords from the inline tag lists on the IP
// asset records, normalized and deduplicated first-wins. Invalid names
// are left in place for the validator to report with a locator.
func (m *Model) CollectTags() {
	seen := make(map[string]struct{})
	for _, asset := range m.IPAssets {
		for _, raw := range asset.Tags {
			name, err := models.NormalizeTagName(raw)
			if err != nil {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			m.Tags = append(m.Tags, TagRecord{Name: name, Location: asset.Location})
		}
	}
}

// EntityCounts aggregates per-entity created/updated/skipped totals.
type EntityCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (c *EntityCounts) add(other EntityCounts) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
}

// Summary holds per-entity counts for one run.
type Summary struct {
	Vendors  EntityCounts `json:"vendors"`
	Projects EntityCounts `json:"projects"`
	Hosts    EntityCounts `json:"hosts"`
	Tags     EntityCounts `json:"tags"`
	IPAssets EntityCounts `json:"ip_assets"`
}

// Total sums the per-entity counts.
func (s Summary) Total() EntityCounts {
	var total EntityCounts
	total.add(s.Vendors)
	total.add(s.Projects)
	total.add(s.Hosts)
	total.add(s.Tags)
	total.add(s.IPAssets)
	return total
}

// ChangeAction is the per-record outcome in a plan.
type ChangeAction string

const (
	ActionCreate   ChangeAction = "CREATE"
	ActionUpdate   ChangeAction = "UPDATE"
	ActionSkip     ChangeAction = "SKIP"
	ActionConflict ChangeAction = "CONFLICT"
)

// FieldChange is one before/after pair in a record diff.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// RecordChange describes what happens (or would happen) to one IP asset.
// Previews and applies produce identical RecordChange lists.
type RecordChange struct {
	IPAddress string        `json:"ip_address"`
	Action    ChangeAction  `json:"action"`
	Restored  bool          `json:"restored,omitempty"`
	Fields    []FieldChange `json:"fields,omitempty"`
}

// RunState is the terminal state of a run.
type RunState string

const (
	StateAborted   RunState = "ABORTED"
	StatePreviewed RunState = "PREVIEWED"
	StateApplied   RunState = "APPLIED"
)

// RunResult is the uniform outcome shape every run returns, regardless
// of whether it previewed, applied, or aborted.
type RunResult struct {
	State    RunState       `json:"state"`
	RunID    string         `json:"run_id"`
	Source   string         `json:"source"`
	Summary  Summary        `json:"summary"`
	Changes  []RecordChange `json:"changes"`
	Errors   []Issue        `json:"errors"`
	Warnings []Issue        `json:"warnings"`
}
