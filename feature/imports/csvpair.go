package imports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// CSVAdapter parses the hosts.csv / ip-assets.csv pair. Either file may
// be absent or empty; an empty batch is a valid no-op run. Row-level
// locators are 1-based file lines (line 1 is the header).
type CSVAdapter struct{}

// NewCSVAdapter creates a CSV pair adapter.
func NewCSVAdapter() *CSVAdapter {
	return &CSVAdapter{}
}

// Name identifies the adapter.
func (a *CSVAdapter) Name() string {
	return "csv"
}

const (
	hostsFilename  = "hosts.csv"
	assetsFilename = "ip-assets.csv"
)

var hostColumns = map[string]struct{}{
	"name": {}, "notes": {}, "vendor_name": {}, "project_name": {},
	"os_ip": {}, "bmc_ip": {},
}

var assetColumns = map[string]struct{}{
	"ip_address": {}, "type": {}, "project_name": {}, "host_name": {},
	"tags": {}, "notes": {}, "archived": {},
}

// Parse reads both CSV files into a canonical model. Vendors and
// projects referenced by rows are derived into the model so in-run
// resolution succeeds under strict references.
func (a *CSVAdapter) Parse(inputs map[string][]byte) (*Model, []Issue, error) {
	model := &Model{StrictRefs: true}
	var warnings []Issue

	if raw := inputs[InputHosts]; len(bytes.TrimSpace(raw)) > 0 {
		hostWarnings, err := a.parseHosts(raw, model)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, hostWarnings...)
	}

	if raw := inputs[InputIPAssets]; len(bytes.TrimSpace(raw)) > 0 {
		assetWarnings, err := a.parseAssets(raw, model)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, assetWarnings...)
	}

	a.deriveVendors(model)
	a.deriveProjects(model)
	model.CollectTags()
	return model, warnings, nil
}

func (a *CSVAdapter) parseHosts(raw []byte, model *Model) ([]Issue, error) {
	rows, header, err := readCSV(raw, hostsFilename, hostColumns, "name")
	if err != nil {
		return nil, err
	}

	var warnings []Issue
	for _, row := range rows {
		location := fmt.Sprintf("%s:line %d", hostsFilename, row.line)
		name := strings.TrimSpace(row.get("name"))
		host := HostRecord{Name: name, Location: location}
		if header.has("notes") {
			notes := row.get("notes")
			host.Notes = &notes
		}
		if header.has("vendor_name") {
			host.VendorName = explicitRef(row.get("vendor_name"))
		}
		if header.has("project_name") {
			host.ProjectName = explicitRef(row.get("project_name"))
		}
		model.Hosts = append(model.Hosts, host)

		// Optional os_ip/bmc_ip columns synthesize typed IP assets
		// linked back to the host row.
		for _, synth := range []struct {
			column    string
			assetType string
		}{
			{"os_ip", "OS"},
			{"bmc_ip", "BMC"},
		} {
			if !header.has(synth.column) {
				continue
			}
			address := strings.TrimSpace(row.get(synth.column))
			if address == "" {
				continue
			}
			hostName := name
			model.IPAssets = append(model.IPAssets, IPAssetRecord{
				IPAddress: address,
				Type:      synth.assetType,
				HostName:  &hostName,
				Location:  fmt.Sprintf("%s:line %d.%s", hostsFilename, row.line, synth.column),
			})
		}
	}
	return warnings, nil
}

func (a *CSVAdapter) parseAssets(raw []byte, model *Model) ([]Issue, error) {
	rows, header, err := readCSV(raw, assetsFilename, assetColumns, "ip_address")
	if err != nil {
		return nil, err
	}

	var warnings []Issue
	for _, row := range rows {
		location := fmt.Sprintf("%s:line %d", assetsFilename, row.line)
		asset := IPAssetRecord{
			IPAddress: strings.TrimSpace(row.get("ip_address")),
			Type:      strings.TrimSpace(row.get("type")),
			Location:  location,
		}
		if header.has("project_name") {
			asset.ProjectName = explicitRef(row.get("project_name"))
		}
		if header.has("host_name") {
			asset.HostName = explicitRef(row.get("host_name"))
		}
		if header.has("tags") {
			asset.Tags = SplitTagString(row.get("tags"))
			if asset.Tags == nil {
				asset.Tags = []string{}
			}
		}
		if header.has("notes") {
			// An empty notes cell is an explicit clear, not "leave
			// unchanged".
			notes := row.get("notes")
			asset.Notes = &notes
		}
		if header.has("archived") {
			value, ok := parseOptionalBool(row.get("archived"))
			if value != nil {
				asset.Archived = value
			} else if !ok {
				warnings = append(warnings, warningIssue(
					fmt.Sprintf("%s.archived", location),
					fmt.Sprintf("unrecognized archived value %q ignored", row.get("archived")),
				))
			}
		}
		model.IPAssets = append(model.IPAssets, asset)
	}
	return warnings, nil
}

// deriveVendors collects vendors referenced by host rows so strict
// reference checks resolve within the run.
func (a *CSVAdapter) deriveVendors(model *Model) {
	seen := make(map[string]struct{})
	for _, host := range model.Hosts {
		if host.VendorName == nil || *host.VendorName == "" {
			continue
		}
		if _, ok := seen[*host.VendorName]; ok {
			continue
		}
		seen[*host.VendorName] = struct{}{}
		model.Vendors = append(model.Vendors, VendorRecord{Name: *host.VendorName, Location: host.Location})
	}
}

// deriveProjects collects projects referenced by host and asset rows.
func (a *CSVAdapter) deriveProjects(model *Model) {
	seen := make(map[string]struct{})
	add := func(name *string, location string) {
		if name == nil || *name == "" {
			return
		}
		if _, ok := seen[*name]; ok {
			return
		}
		seen[*name] = struct{}{}
		model.Projects = append(model.Projects, ProjectRecord{Name: *name, Location: location})
	}
	for _, host := range model.Hosts {
		add(host.ProjectName, host.Location)
	}
	for _, asset := range model.IPAssets {
		add(asset.ProjectName, asset.Location)
	}
}

// explicitRef turns a reference cell into an explicit value: an empty
// cell clears the reference rather than leaving it unchanged.
func explicitRef(value string) *string {
	trimmed := strings.TrimSpace(value)
	return &trimmed
}

// SplitTagString splits a "a, b c" style tag cell into raw tag names.
func SplitTagString(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	var tags []string
	for _, field := range fields {
		if field != "" {
			tags = append(tags, field)
		}
	}
	return tags
}

func parseOptionalBool(value string) (*bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return nil, true
	case "1", "true", "yes", "y":
		v := true
		return &v, true
	case "0", "false", "no", "n":
		v := false
		return &v, true
	default:
		return nil, false
	}
}

type csvHeader map[string]int

func (h csvHeader) has(column string) bool {
	_, ok := h[column]
	return ok
}

type csvRow struct {
	header csvHeader
	fields []string
	line   int
}

func (r csvRow) get(column string) string {
	index, ok := r.header[column]
	if !ok || index >= len(r.fields) {
		return ""
	}
	return r.fields[index]
}

// readCSV decodes one file, validating the header against the known
// column set and the required key column.
func readCSV(raw []byte, filename string, known map[string]struct{}, required string) ([]csvRow, csvHeader, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	headerFields, err := reader.Read()
	if err == io.EOF {
		return nil, csvHeader{}, nil
	}
	if err != nil {
		return nil, nil, parseErrorf(filename, "unreadable CSV: %v", err)
	}

	header := make(csvHeader, len(headerFields))
	var unknown []string
	for i, field := range headerFields {
		// Spreadsheet exports often prepend a UTF-8 BOM to the first
		// header cell.
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(field, "\uFEFF")))
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		header[name] = i
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, parseErrorf(filename, "unknown columns: %s", strings.Join(unknown, ", "))
	}
	if !header.has(required) {
		return nil, nil, parseErrorf(filename, "missing required column %q", required)
	}

	var rows []csvRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			if parseErr, ok := err.(*csv.ParseError); ok {
				line = parseErr.Line
			}
			return nil, nil, parseErrorf(fmt.Sprintf("%s:line %d", filename, line), "malformed CSV row: %v", err)
		}
		line, _ := reader.FieldPos(0)
		empty := true
		for _, field := range fields {
			if strings.TrimSpace(field) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		rows = append(rows, csvRow{header: header, fields: fields, line: line})
	}
	return rows, header, nil
}
