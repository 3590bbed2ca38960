package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVAdapter_ParseHosts(t *testing.T) {
	adapter := NewCSVAdapter()

	t.Run("Hosts With Synthesized Assets", func(t *testing.T) {
		hosts := "name,vendor_name,project_name,os_ip,bmc_ip\n" +
			"rack1-node1,Dell,backbone,10.0.0.1,10.1.0.1\n" +
			"rack1-node2,Dell,,10.0.0.2,\n"
		model, warnings, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.True(t, model.StrictRefs)

		require.Len(t, model.Hosts, 2)
		assert.Equal(t, "hosts.csv:line 2", model.Hosts[0].Location)

		// os_ip/bmc_ip synthesize typed assets linked to the host.
		require.Len(t, model.IPAssets, 3)
		assert.Equal(t, "10.0.0.1", model.IPAssets[0].IPAddress)
		assert.Equal(t, "OS", model.IPAssets[0].Type)
		require.NotNil(t, model.IPAssets[0].HostName)
		assert.Equal(t, "rack1-node1", *model.IPAssets[0].HostName)
		assert.Equal(t, "hosts.csv:line 2.os_ip", model.IPAssets[0].Location)
		assert.Equal(t, "BMC", model.IPAssets[1].Type)

		// Referenced vendors and projects are derived for in-run
		// resolution.
		require.Len(t, model.Vendors, 1)
		assert.Equal(t, "Dell", model.Vendors[0].Name)
		require.Len(t, model.Projects, 1)
		assert.Equal(t, "backbone", model.Projects[0].Name)
	})

	t.Run("BOM-Prefixed Header Parses", func(t *testing.T) {
		hosts := "\uFEFFname,notes\nrack1-node1,fine\n"
		model, warnings, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, model.Hosts, 1)
		assert.Equal(t, "rack1-node1", model.Hosts[0].Name)
		require.NotNil(t, model.Hosts[0].Notes)
	})

	t.Run("Empty Reference Cell Is Explicit Clear", func(t *testing.T) {
		hosts := "name,vendor_name\nrack1-node1,\n"
		model, _, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		require.NoError(t, err)
		require.Len(t, model.Hosts, 1)
		require.NotNil(t, model.Hosts[0].VendorName)
		assert.Empty(t, *model.Hosts[0].VendorName)
	})

	t.Run("Absent Column Leaves Field Unchanged", func(t *testing.T) {
		hosts := "name\nrack1-node1\n"
		model, _, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		require.NoError(t, err)
		require.Len(t, model.Hosts, 1)
		assert.Nil(t, model.Hosts[0].VendorName)
		assert.Nil(t, model.Hosts[0].Notes)
	})

	t.Run("Unknown Column Rejected", func(t *testing.T) {
		hosts := "name,surprise\nrack1-node1,x\n"
		_, _, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "hosts.csv", parseErr.Location)
		assert.Contains(t, parseErr.Message, "surprise")
	})

	t.Run("Missing Required Column", func(t *testing.T) {
		hosts := "notes\nsomething\n"
		_, _, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Message, `"name"`)
	})

	t.Run("Malformed Row Carries Line Number", func(t *testing.T) {
		hosts := "name,notes\nok,fine\n\"broken,row\n"
		_, _, err := adapter.Parse(map[string][]byte{InputHosts: []byte(hosts)})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Location, "hosts.csv:line")
	})
}

func TestCSVAdapter_ParseAssets(t *testing.T) {
	adapter := NewCSVAdapter()

	t.Run("Asset Rows", func(t *testing.T) {
		assets := "ip_address,type,project_name,tags,notes,archived\n" +
			"10.0.0.1,OS,backbone,\"prod, web\",first,false\n" +
			"10.0.0.2,VM,,,second,\n"
		model, warnings, err := adapter.Parse(map[string][]byte{InputIPAssets: []byte(assets)})
		require.NoError(t, err)
		assert.Empty(t, warnings)

		require.Len(t, model.IPAssets, 2)
		first := model.IPAssets[0]
		assert.Equal(t, []string{"prod", "web"}, first.Tags)
		require.NotNil(t, first.Archived)
		assert.False(t, *first.Archived)
		require.NotNil(t, first.Notes)
		assert.Equal(t, "first", *first.Notes)

		// Empty archived cell means "leave unchanged".
		assert.Nil(t, model.IPAssets[1].Archived)
	})

	t.Run("Unrecognized Archived Value Warns", func(t *testing.T) {
		assets := "ip_address,type,archived\n10.0.0.1,OS,perhaps\n"
		model, warnings, err := adapter.Parse(map[string][]byte{InputIPAssets: []byte(assets)})
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Message, `"perhaps"`)
		assert.Nil(t, model.IPAssets[0].Archived)
	})

	t.Run("Empty Batch Is Valid", func(t *testing.T) {
		model, warnings, err := adapter.Parse(map[string][]byte{})
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Empty(t, model.Hosts)
		assert.Empty(t, model.IPAssets)
	})
}

func TestSplitTagString(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitTagString("a, b c"))
	assert.Equal(t, []string{"one"}, SplitTagString("  one  "))
	assert.Nil(t, SplitTagString(""))
	assert.Nil(t, SplitTagString(" , ,, "))
}
