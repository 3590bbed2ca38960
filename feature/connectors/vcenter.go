package connectors

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"

	"ipocket/feature/imports"
)

// InputInventory is the input key carrying a fetched vCenter inventory
// payload.
const InputInventory = "inventory"

// VCenterAdapter converts an already-fetched vCenter inventory (ESXi
// hosts plus virtual machines) into a canonical model. Records carry a
// preserve-notes, preserve-type policy: vCenter refreshes attach and
// discover, they never clobber operator-maintained notes or manual
// type corrections.
type VCenterAdapter struct{}

// NewVCenterAdapter creates a vCenter connector adapter.
func NewVCenterAdapter() *VCenterAdapter {
	return &VCenterAdapter{}
}

// Name identifies the adapter.
func (a *VCenterAdapter) Name() string {
	return "vcenter"
}

type vcenterInventory struct {
	Hosts []vcenterHost `json:"hosts"`
	VMs   []vcenterVM   `json:"vms"`
}

type vcenterHost struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
}

type vcenterVM struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	HostName  string `json:"host_name"`
}

var vcenterPolicy = imports.Policy{PreserveNotes: true, PreserveType: true}

// Parse decodes the inventory payload. Hosts become host records plus
// OS-typed assets tagged "esxi"; VMs become VM-typed assets. Entries
// without a usable IPv4 address degrade to warnings.
func (a *VCenterAdapter) Parse(inputs map[string][]byte) (*imports.Model, []imports.Issue, error) {
	raw, ok := inputs[InputInventory]
	if !ok || len(raw) == 0 {
		return nil, nil, &imports.ParseError{Location: "vcenter", Message: "missing vCenter inventory payload"}
	}

	var inventory vcenterInventory
	if err := json.Unmarshal(raw, &inventory); err != nil {
		return nil, nil, &imports.ParseError{Location: "vcenter", Message: fmt.Sprintf("invalid vCenter inventory payload: %v", err)}
	}

	model := &imports.Model{StrictRefs: false}
	var warnings []imports.Issue
	seen := make(map[string]struct{})

	for i, host := range inventory.Hosts {
		location := fmt.Sprintf("vcenter.hosts[%d]", i)
		name := strings.TrimSpace(host.Name)
		if name == "" {
			warnings = append(warnings, imports.Issue{
				Location: location, Message: "skipped host without a name", Level: imports.LevelWarning,
			})
			continue
		}
		address, ok := normalizeIPv4(host.IPAddress)
		if !ok {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("skipped host %q: no IPv4 management address", name),
				Level:    imports.LevelWarning,
			})
			continue
		}

		notes := "Imported from vCenter host inventory."
		model.Hosts = append(model.Hosts, imports.HostRecord{
			Name:     name,
			Notes:    &notes,
			Location: location,
		})

		if _, dup := seen[address]; dup {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("duplicate IP %q skipped for host %q", address, name),
				Level:    imports.LevelWarning,
			})
			continue
		}
		seen[address] = struct{}{}

		hostName := name
		assetNotes := fmt.Sprintf("vCenter host: %s", name)
		model.IPAssets = append(model.IPAssets, imports.IPAssetRecord{
			IPAddress: address,
			Type:      "OS",
			HostName:  &hostName,
			Tags:      []string{"esxi"},
			Notes:     &assetNotes,
			Location:  location,
			Policy:    vcenterPolicy,
		})
	}

	for i, vm := range inventory.VMs {
		location := fmt.Sprintf("vcenter.vms[%d]", i)
		name := strings.TrimSpace(vm.Name)
		if name == "" {
			warnings = append(warnings, imports.Issue{
				Location: location, Message: "skipped VM without a name", Level: imports.LevelWarning,
			})
			continue
		}
		address, ok := normalizeIPv4(vm.IPAddress)
		if !ok {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("skipped VM %q: no IPv4 guest address", name),
				Level:    imports.LevelWarning,
			})
			continue
		}
		if _, dup := seen[address]; dup {
			warnings = append(warnings, imports.Issue{
				Location: location,
				Message:  fmt.Sprintf("duplicate IP %q skipped for VM %q", address, name),
				Level:    imports.LevelWarning,
			})
			continue
		}
		seen[address] = struct{}{}

		notes := fmt.Sprintf("vCenter VM: %s", name)
		if hostName := strings.TrimSpace(vm.HostName); hostName != "" {
			notes = fmt.Sprintf("%s (host: %s)", notes, hostName)
		}
		model.IPAssets = append(model.IPAssets, imports.IPAssetRecord{
			IPAddress: address,
			Type:      "VM",
			Notes:     &notes,
			Location:  location,
			Policy:    vcenterPolicy,
		})
	}

	model.CollectTags()
	return model, warnings, nil
}

// normalizeIPv4 canonicalizes an IPv4 string, rejecting anything else.
func normalizeIPv4(value string) (string, bool) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return "", false
	}
	parsed, err := netip.ParseAddr(candidate)
	if err != nil || !parsed.Is4() {
		return "", false
	}
	return parsed.String(), true
}
