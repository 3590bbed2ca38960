package imports

// Well-known input keys handed to adapters. Each adapter documents
// which keys it consumes.
const (
	InputBundle   = "bundle"
	InputHosts    = "hosts"
	InputIPAssets = "ip_assets"
	InputNmap     = "nmap"
)

// Adapter turns raw input bytes into a canonical Model. It returns a
// best-effort model plus soft warnings; a non-nil error (normally a
// *ParseError) means the input was structurally unreadable and the run
// aborts before validation.
//
// The pipeline selects exactly one adapter per run; nothing downstream
// branches on the input format.
type Adapter interface {
	// Name identifies the source in run results and audit records.
	Name() string

	// Parse converts raw inputs into a canonical model.
	Parse(inputs map[string][]byte) (*Model, []Issue, error)
}
