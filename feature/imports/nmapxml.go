package imports

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"ipocket/feature/inventory/models"
)

// NmapAdapter parses Nmap discovery XML. Only hosts reported "up" with
// an IPv4 address are consumed; everything else degrades to warnings.
// Discovered records are create-only: discovery never rewrites an
// existing active asset.
type NmapAdapter struct {
	now func() time.Time
}

// NewNmapAdapter creates an nmap XML adapter.
func NewNmapAdapter() *NmapAdapter {
	return &NmapAdapter{now: time.Now}
}

// Name identifies the adapter.
func (a *NmapAdapter) Name() string {
	return "nmap"
}

type nmapRun struct {
	XMLName xml.Name       `xml:"nmaprun"`
	Hosts   []nmapHostElem `xml:"host"`
}

type nmapHostElem struct {
	Status    nmapStatusElem  `xml:"status"`
	Addresses []nmapAddrElem  `xml:"address"`
	Hostnames []nmapHostnames `xml:"hostnames"`
}

type nmapStatusElem struct {
	State string `xml:"state,attr"`
}

type nmapAddrElem struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
	Vendor   string `xml:"vendor,attr"`
}

type nmapHostnames struct {
	Names []nmapHostname `xml:"hostname"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

// vendor keyword tables for MAC-vendor asset type inference.
var vmVendorKeywords = []string{
	"vmware", "virtualbox", "microsoft", "xen", "qemu", "kvm", "citrix", "parallels",
}

var serverVendorKeywords = []string{
	"dell", "hewlett packard", "hp", "hpe", "super micro", "supermicro", "lenovo", "ibm",
}

// Parse decodes the nmap XML report from the InputNmap key.
func (a *NmapAdapter) Parse(inputs map[string][]byte) (*Model, []Issue, error) {
	raw, ok := inputs[InputNmap]
	if !ok || len(raw) == 0 {
		return nil, nil, parseErrorf("nmap", "missing nmap XML input")
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = true
	// Refuse DTD-defined and external entities outright: only the XML
	// built-ins resolve, anything else fails the parse.
	decoder.Entity = map[string]string{}

	var run nmapRun
	if err := decoder.Decode(&run); err != nil {
		return nil, nil, parseErrorf("nmap", "invalid Nmap XML payload: %v", err)
	}

	timestamp := a.now().UTC().Format(time.RFC3339)
	note := fmt.Sprintf("Discovered via nmap upload at %s", timestamp)

	model := &Model{StrictRefs: false}
	var warnings []Issue
	seen := make(map[string]struct{})

	for i, host := range run.Hosts {
		location := fmt.Sprintf("nmap.host[%d]", i)
		if host.Status.State != "up" {
			continue
		}

		var ipv4 string
		var macVendor string
		for _, address := range host.Addresses {
			switch address.AddrType {
			case "ipv4":
				if ipv4 == "" {
					ipv4 = address.Addr
				}
			case "mac":
				if macVendor == "" && address.Vendor != "" {
					macVendor = address.Vendor
				}
			}
		}
		if ipv4 == "" {
			continue
		}

		parsed, err := netip.ParseAddr(ipv4)
		if err != nil || !parsed.Is4() {
			warnings = append(warnings, warningIssue(location, fmt.Sprintf("invalid IPv4 address %q skipped", ipv4)))
			continue
		}
		canonical := parsed.String()
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}

		notes := note
		model.IPAssets = append(model.IPAssets, IPAssetRecord{
			IPAddress: canonical,
			Type:      string(InferTypeFromMACVendor(macVendor)),
			Notes:     &notes,
			// Discovery restores archived rows but never overwrites
			// what an operator already recorded on them.
			Policy:     Policy{PreserveNotes: true, PreserveType: true},
			Location:   location,
			CreateOnly: true,
		})
	}

	return model, warnings, nil
}

// InferTypeFromMACVendor maps a MAC vendor string to an asset type:
// virtualization vendors become VM, server hardware vendors OS, and
// anything unmatched stays OTHER.
func InferTypeFromMACVendor(vendor string) models.AssetType {
	normalized := strings.ToLower(vendor)
	if normalized == "" {
		return models.AssetTypeOther
	}
	for _, keyword := range vmVendorKeywords {
		if strings.Contains(normalized, keyword) {
			return models.AssetTypeVM
		}
	}
	for _, keyword := range serverVendorKeywords {
		if strings.Contains(normalized, keyword) {
			return models.AssetTypeOS
		}
	}
	return models.AssetTypeOther
}
