package connectors

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"sort"
	"strings"
	"time"

	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"
)

// InputNodes is the input key carrying a fetched Elasticsearch nodes
// response.
const InputNodes = "nodes"

// ElasticsearchSettings shapes how cluster nodes become IP assets.
type ElasticsearchSettings struct {
	// DefaultType is the asset type for extracted assets (OTHER when
	// empty).
	DefaultType string
	// ProjectName optionally assigns extracted assets to a project.
	ProjectName string
	// Tags are attached to every extracted asset.
	Tags []string
	// Note is an optional fixed note; when empty, existing notes are
	// left untouched.
	Note string
}

// ElasticsearchAdapter converts an Elasticsearch nodes-info response
// into a canonical model. Records carry the merge-tags policy:
// repeated syncs accumulate labels instead of wiping manually assigned
// tags.
type ElasticsearchAdapter struct {
	settings ElasticsearchSettings
}

// NewElasticsearchAdapter creates an Elasticsearch connector adapter.
func NewElasticsearchAdapter(settings ElasticsearchSettings) *ElasticsearchAdapter {
	return &ElasticsearchAdapter{settings: settings}
}

// Name identifies the adapter.
func (a *ElasticsearchAdapter) Name() string {
	return "elasticsearch"
}

type elasticsearchNodesResponse struct {
	Nodes map[string]elasticsearchNode `json:"nodes"`
}

type elasticsearchNode struct {
	Name      string                 `json:"name"`
	IP        string                 `json:"ip"`
	Host      string                 `json:"host"`
	HTTP      elasticsearchTransport `json:"http"`
	Transport elasticsearchTransport `json:"transport"`
}

type elasticsearchTransport struct {
	PublishAddress string `json:"publish_address"`
}

// Parse decodes the _nodes response and extracts one asset per node.
// Address candidates are tried in order: http publish address,
// transport publish address, the node's ip field, then its host field.
// Nodes without a usable non-loopback IPv4 degrade to warnings, as do
// duplicates.
func (a *ElasticsearchAdapter) Parse(inputs map[string][]byte) (*imports.Model, []imports.Issue, error) {
	raw, ok := inputs[InputNodes]
	if !ok || len(raw) == 0 {
		return nil, nil, &imports.ParseError{Location: "elasticsearch", Message: "missing Elasticsearch nodes response"}
	}

	var response elasticsearchNodesResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, nil, &imports.ParseError{Location: "elasticsearch", Message: fmt.Sprintf("invalid Elasticsearch API payload: %v", err)}
	}
	if response.Nodes == nil {
		return nil, nil, &imports.ParseError{Location: "elasticsearch", Message: "Elasticsearch payload is missing a valid 'nodes' object"}
	}

	defaultType := a.settings.DefaultType
	if defaultType == "" {
		defaultType = string(models.AssetTypeOther)
	}
	normalizedType, err := models.NormalizeAssetType(defaultType)
	if err != nil {
		return nil, nil, &imports.ParseError{Location: "elasticsearch", Message: err.Error()}
	}

	var projectName *string
	if name := strings.TrimSpace(a.settings.ProjectName); name != "" {
		projectName = &name
	}
	tags := make([]string, 0, len(a.settings.Tags))
	for _, tag := range a.settings.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	var note *string
	if trimmed := strings.TrimSpace(a.settings.Note); trimmed != "" {
		note = &trimmed
	}

	// Stable node order keeps warnings and duplicate resolution
	// deterministic.
	nodeIDs := make([]string, 0, len(response.Nodes))
	for id := range response.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	model := &imports.Model{StrictRefs: false}
	var warnings []imports.Issue
	seen := make(map[string]struct{})

	for _, id := range nodeIDs {
		node := response.Nodes[id]
		label := node.Name
		if label == "" {
			label = id
		}
		location := fmt.Sprintf("elasticsearch.node[%s]", id)

		candidates := nodeAddressCandidates(node)
		if len(candidates) == 0 {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("node %q skipped: no IP candidate found in http.publish_address, transport.publish_address, ip, or host", label),
				Level:    imports.LevelWarning,
			})
			continue
		}

		address := ""
		skipReason := ""
		for _, candidate := range candidates {
			host := ExtractNodeHostCandidate(candidate.value)
			parsed, err := netip.ParseAddr(host)
			if err != nil {
				skipReason = fmt.Sprintf("source %q value %q does not contain a valid IPv4 address", candidate.source, candidate.value)
				continue
			}
			if !parsed.Is4() {
				skipReason = fmt.Sprintf("source %q value %q resolved to IPv6, but only IPv4 is supported", candidate.source, candidate.value)
				continue
			}
			if parsed.IsLoopback() {
				skipReason = fmt.Sprintf("loopback IP %q is not allowed", parsed.String())
				continue
			}
			address = parsed.String()
			break
		}
		if address == "" {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("node %q skipped: %s", label, skipReason),
				Level:    imports.LevelWarning,
			})
			continue
		}

		if _, dup := seen[address]; dup {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("duplicate IP %q skipped (node %q)", address, label),
				Level:    imports.LevelWarning,
			})
			continue
		}
		seen[address] = struct{}{}

		var recordTags []string
		if len(tags) > 0 {
			recordTags = append([]string(nil), tags...)
		}
		model.IPAssets = append(model.IPAssets, imports.IPAssetRecord{
			IPAddress:   address,
			Type:        string(normalizedType),
			ProjectName: projectName,
			Tags:        recordTags,
			Notes:       note,
			Location:    location,
			Policy:      imports.Policy{MergeTags: true},
		})
	}

	if projectName != nil {
		model.Projects = append(model.Projects, imports.ProjectRecord{
			Name:     *projectName,
			Location: "elasticsearch.project",
		})
	}

	model.CollectTags()
	return model, warnings, nil
}

type nodeAddressCandidate struct {
	source string
	value  string
}

func nodeAddressCandidates(node elasticsearchNode) []nodeAddressCandidate {
	var candidates []nodeAddressCandidate
	for _, candidate := range []nodeAddressCandidate{
		{source: "http.publish_address", value: node.HTTP.PublishAddress},
		{source: "transport.publish_address", value: node.Transport.PublishAddress},
		{source: "ip", value: node.IP},
		{source: "host", value: node.Host},
	} {
		if strings.TrimSpace(candidate.value) != "" {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// ExtractNodeHostCandidate unwraps the publish-address forms
// Elasticsearch has used over the years: the legacy "inet[/ip:port]"
// wrapper, a leading slash, bracketed IPv6 and a trailing :port.
func ExtractNodeHostCandidate(value string) string {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return candidate
	}

	if strings.HasPrefix(candidate, "inet[") && strings.HasSuffix(candidate, "]") {
		candidate = strings.TrimSpace(candidate[len("inet[") : len(candidate)-1])
	}
	if strings.HasPrefix(candidate, "/") && len(candidate) > 1 {
		candidate = candidate[1:]
	}

	return ExtractHostCandidate(candidate)
}

// ElasticsearchClient fetches node information from a cluster. The raw
// response bytes feed straight into the adapter.
type ElasticsearchClient struct {
	httpClient *http.Client
}

// NewElasticsearchClient creates a nodes-info client. With insecure
// set, certificate verification is disabled.
func NewElasticsearchClient(timeout time.Duration, insecure bool) *ElasticsearchClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &ElasticsearchClient{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Nodes queries /_nodes/http,transport and returns the raw API
// response bytes. An API key takes precedence over Basic credentials;
// an "id:key" form is base64-encoded first, anything else is assumed
// to be encoded already.
func (c *ElasticsearchClient) Nodes(ctx context.Context, baseURL, username, password, apiKey string) ([]byte, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/_nodes/http,transport"

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Elasticsearch request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	switch {
	case strings.TrimSpace(apiKey) != "":
		key := strings.TrimSpace(apiKey)
		if strings.Contains(key, ":") {
			key = base64.StdEncoding.EncodeToString([]byte(key))
		}
		request.Header.Set("Authorization", "ApiKey "+key)
	case username != "":
		encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		request.Header.Set("Authorization", "Basic "+encoded)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to call Elasticsearch API: %w", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Elasticsearch response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elasticsearch node query failed with HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}
