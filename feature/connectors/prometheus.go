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
	"net/url"
	"strings"
	"time"

	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"
)

// InputSamples is the input key carrying a fetched Prometheus query
// response.
const InputSamples = "samples"

// PrometheusSettings shapes how metric samples become IP assets.
type PrometheusSettings struct {
	// Query is the PromQL expression, recorded in asset notes.
	Query string
	// IPLabel is the label carrying the address, e.g. "instance".
	IPLabel string
	// DefaultType is the asset type for extracted assets (OTHER when
	// empty).
	DefaultType string
	// ProjectName optionally assigns extracted assets to a project.
	ProjectName string
	// Tags are attached to every extracted asset.
	Tags []string
}

// PrometheusAdapter converts a Prometheus instant query response into
// a canonical model. Records carry the merge-tags policy: repeated
// scrapes accumulate labels instead of wiping manually assigned tags.
type PrometheusAdapter struct {
	settings PrometheusSettings
}

// NewPrometheusAdapter creates a Prometheus connector adapter.
func NewPrometheusAdapter(settings PrometheusSettings) *PrometheusAdapter {
	return &PrometheusAdapter{settings: settings}
}

// Name identifies the adapter.
func (a *PrometheusAdapter) Name() string {
	return "prometheus"
}

type prometheusResponse struct {
	Status    string         `json:"status"`
	ErrorType string         `json:"errorType"`
	Error     string         `json:"error"`
	Data      prometheusData `json:"data"`
}

type prometheusData struct {
	ResultType string             `json:"resultType"`
	Result     []prometheusSample `json:"result"`
}

type prometheusSample struct {
	Metric map[string]string `json:"metric"`
	Value  []json.RawMessage `json:"value"`
}

// Parse decodes the query response and extracts one asset per sample
// whose IP label holds a usable IPv4 address. Missing labels,
// non-IPv4 values, loopback addresses and duplicates degrade to
// warnings.
func (a *PrometheusAdapter) Parse(inputs map[string][]byte) (*imports.Model, []imports.Issue, error) {
	raw, ok := inputs[InputSamples]
	if !ok || len(raw) == 0 {
		return nil, nil, &imports.ParseError{Location: "prometheus", Message: "missing Prometheus query response"}
	}

	ipLabel := strings.TrimSpace(a.settings.IPLabel)
	if ipLabel == "" {
		return nil, nil, &imports.ParseError{Location: "prometheus", Message: "IP label must not be empty"}
	}

	var response prometheusResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, nil, &imports.ParseError{Location: "prometheus", Message: fmt.Sprintf("invalid Prometheus API payload: %v", err)}
	}
	if response.Status != "success" {
		message := "Prometheus query status was not success"
		if response.ErrorType != "" || response.Error != "" {
			message = fmt.Sprintf("%s (%s: %s)", message, response.ErrorType, response.Error)
		}
		return nil, nil, &imports.ParseError{Location: "prometheus", Message: message}
	}
	if response.Data.ResultType != "vector" {
		return nil, nil, &imports.ParseError{
			Location: "prometheus",
			Message:  fmt.Sprintf("unsupported Prometheus resultType %q (expected vector)", response.Data.ResultType),
		}
	}

	defaultType := a.settings.DefaultType
	if defaultType == "" {
		defaultType = string(models.AssetTypeOther)
	}
	normalizedType, err := models.NormalizeAssetType(defaultType)
	if err != nil {
		return nil, nil, &imports.ParseError{Location: "prometheus", Message: err.Error()}
	}

	query := a.settings.Query
	if query == "" {
		query = "<not-provided>"
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

	model := &imports.Model{StrictRefs: false}
	var warnings []imports.Issue
	seen := make(map[string]struct{})

	for i, sample := range response.Data.Result {
		location := fmt.Sprintf("prometheus.result[%d]", i)
		labelValue, ok := sample.Metric[ipLabel]
		if !ok {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("sample skipped: label %q is missing", ipLabel),
				Level:    imports.LevelWarning,
			})
			continue
		}

		candidate := ExtractHostCandidate(labelValue)
		parsed, err := netip.ParseAddr(candidate)
		if err != nil || !parsed.Is4() {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("sample skipped: label %q value %q does not contain a valid IPv4 address", ipLabel, labelValue),
				Level:    imports.LevelWarning,
			})
			continue
		}
		if parsed.IsLoopback() {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("sample skipped: loopback IP %q is not allowed", parsed.String()),
				Level:    imports.LevelWarning,
			})
			continue
		}

		address := parsed.String()
		if _, dup := seen[address]; dup {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("duplicate IP %q skipped", address),
				Level:    imports.LevelWarning,
			})
			continue
		}
		seen[address] = struct{}{}

		metricName := sample.Metric["__name__"]
		if metricName == "" {
			metricName = "unknown"
		}
		sampleValue := ""
		if len(sample.Value) == 2 {
			_ = json.Unmarshal(sample.Value[1], &sampleValue)
		}
		notes := fmt.Sprintf(
			"Imported from Prometheus query '%s' using label '%s' (metric=%s, value=%s).",
			query, ipLabel, metricName, sampleValue,
		)

		var recordTags []string
		if len(tags) > 0 {
			recordTags = append([]string(nil), tags...)
		}
		model.IPAssets = append(model.IPAssets, imports.IPAssetRecord{
			IPAddress:   address,
			Type:        string(normalizedType),
			ProjectName: projectName,
			Tags:        recordTags,
			Notes:       &notes,
			Location:    location,
			Policy:      imports.Policy{MergeTags: true},
		})
	}

	if projectName != nil {
		model.Projects = append(model.Projects, imports.ProjectRecord{
			Name:     *projectName,
			Location: "prometheus.project",
		})
	}

	model.CollectTags()
	return model, warnings, nil
}

// ExtractHostCandidate strips a trailing :port ("10.0.0.1:9100") or a
// bracketed IPv6 wrapper ("[::1]:9100") from an instance-style label
// value.
func ExtractHostCandidate(value string) string {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return candidate
	}

	if strings.HasPrefix(candidate, "[") {
		if end := strings.Index(candidate, "]"); end > 1 {
			suffix := candidate[end+1:]
			if strings.HasPrefix(suffix, ":") && isDigits(suffix[1:]) {
				return candidate[1:end]
			}
		}
	}

	if strings.Count(candidate, ":") == 1 {
		host, port, found := strings.Cut(candidate, ":")
		if found && host != "" && isDigits(port) {
			return host
		}
	}

	return candidate
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PrometheusClient fetches instant query results from a Prometheus
// API. The raw response bytes feed straight into the adapter.
type PrometheusClient struct {
	httpClient *http.Client
}

// NewPrometheusClient creates a query client. With insecure set,
// certificate verification is disabled.
func NewPrometheusClient(timeout time.Duration, insecure bool) *PrometheusClient {
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
	return &PrometheusClient{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Query runs an instant query and returns the raw API response bytes.
// A token containing a colon is sent as Basic credentials, anything
// else as a Bearer token.
func (c *PrometheusClient) Query(ctx context.Context, baseURL, query, token string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v1/query?%s",
		strings.TrimRight(baseURL, "/"),
		url.Values{"query": []string{query}}.Encode(),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Prometheus request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		if strings.Contains(token, ":") {
			encoded := base64.StdEncoding.EncodeToString([]byte(token))
			request.Header.Set("Authorization", "Basic "+encoded)
		} else {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to call Prometheus API: %w", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Prometheus response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus query failed with HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}
