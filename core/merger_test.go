package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `port: 7890
socks-port: 7891
mode: rule
proxies:
  - name: ProxyA
    type: ss
    server: a.example.com
    port: 8388
  - name: ProxyB
    type: vmess
    server: b.example.com
    udp: true
proxy-groups:
  - name: Auto
    type: url-test
    proxies:
      - ProxyA
      - ProxyB
      - DIRECT
rules:
  - DOMAIN,example.com,ProxyA
  - GEOIP,CN,DIRECT
  - MATCH,Final
`

func parseMerged(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	return doc
}

func proxyNames(t *testing.T, doc map[string]interface{}) []string {
	t.Helper()
	proxies, _ := doc["proxies"].([]interface{})
	var names []string
	for _, p := range proxies {
		m, ok := p.(map[string]interface{})
		require.True(t, ok, "proxy entry is not a mapping: %v", p)
		name, _ := m["name"].(string)
		names = append(names, name)
	}
	return names
}

func groupByName(t *testing.T, doc map[string]interface{}, name string) map[string]interface{} {
	t.Helper()
	groups, _ := doc["proxy-groups"].([]interface{})
	for _, g := range groups {
		m, ok := g.(map[string]interface{})
		require.True(t, ok)
		if m["name"] == name {
			return m
		}
	}
	t.Fatalf("group %q not found", name)
	return nil
}

func groupMembers(t *testing.T, group map[string]interface{}) []string {
	t.Helper()
	members, _ := group["proxies"].([]interface{})
	var out []string
	for _, m := range members {
		out = append(out, m.(string))
	}
	return out
}

func ruleLines(doc map[string]interface{}) []string {
	rules, _ := doc["rules"].([]interface{})
	var out []string
	for _, r := range rules {
		out = append(out, r.(string))
	}
	return out
}

func TestApplyPrefix(t *testing.T) {
	for _, reserved := range []string{"DIRECT", "REJECT", "GLOBAL", "Final", "Expire: 2026-01-01", "Traffic: 10GB"} {
		assert.Equal(t, reserved, applyPrefix(reserved, "sub1"), "reserved name %q must not be prefixed", reserved)
	}
	assert.Equal(t, "sub1_ProxyA", applyPrefix("ProxyA", "sub1"))
	assert.Equal(t, "sub2_direct", applyPrefix("direct", "sub2"), "reserved names are case sensitive")
}

func TestRuleKey(t *testing.T) {
	assert.Equal(t, "MATCH", ruleKey("MATCH"))
	assert.Equal(t, "MATCH", ruleKey("MATCH,Final"))
	assert.Equal(t, "MATCH", ruleKey("match,anything"))

	// Two lines differing only in target/flags share a key.
	assert.Equal(t, ruleKey("DOMAIN,example.com,DIRECT"), ruleKey("DOMAIN,example.com,sub1_ProxyA"))
	assert.Equal(t, ruleKey("IP-CIDR,10.0.0.0/8,A"), ruleKey("IP-CIDR,10.0.0.0/8,B,no-resolve"))

	// Type is case-insensitive and whitespace around fields is trimmed.
	assert.Equal(t, "DOMAIN,example.com", ruleKey("domain, example.com ,ProxyA"))

	// Malformed single-field line falls back to the raw line.
	assert.Equal(t, "some-garbage", ruleKey("some-garbage"))
}

func TestPrefixRuleTarget(t *testing.T) {
	assert.Equal(t, "DOMAIN,example.com,subX_ProxyA", prefixRuleTarget("DOMAIN,example.com,ProxyA", "subX"))
	assert.Equal(t, "IP-CIDR,10.0.0.0/8,subX_ProxyA,no-resolve", prefixRuleTarget("IP-CIDR,10.0.0.0/8,ProxyA,no-resolve", "subX"))
	assert.Equal(t, "GEOIP,CN,DIRECT", prefixRuleTarget("GEOIP,CN,DIRECT", "subX"))

	// Fewer than three fields: no identifiable target, passed through.
	assert.Equal(t, "GEOIP,CN", prefixRuleTarget("GEOIP,CN", "subX"))
	assert.Equal(t, "MATCH,Final", prefixRuleTarget("MATCH,Final", "subX"))
}

func TestMergeSameDocumentUnderTwoLabels(t *testing.T) {
	out, err := Merge([]SourceConfig{
		{Content: sampleConfig, Label: "s1"},
		{Content: sampleConfig, Label: "s2"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	// Disjoint proxy name sets, no collision suffixes needed.
	assert.ElementsMatch(t,
		[]string{"s1_ProxyA", "s1_ProxyB", "s2_ProxyA", "s2_ProxyB"},
		proxyNames(t, doc))

	// Both labeled group variants present, each listing only its own members.
	s1Auto := groupByName(t, doc, "s1_Auto")
	assert.Equal(t, []string{"s1_ProxyA", "s1_ProxyB", "DIRECT"}, groupMembers(t, s1Auto))
	s2Auto := groupByName(t, doc, "s2_Auto")
	assert.Equal(t, []string{"s2_ProxyA", "s2_ProxyB", "DIRECT"}, groupMembers(t, s2Auto))

	// Rule dedup keeps the first source's targets.
	assert.Equal(t, []string{
		"DOMAIN,example.com,s1_ProxyA",
		"GEOIP,CN,DIRECT",
		"MATCH,Final",
	}, ruleLines(doc))
}

func TestMergeProxyNameCollision(t *testing.T) {
	single := `proxies:
  - name: ProxyA
    type: ss
`
	out, err := Merge([]SourceConfig{
		{Content: single, Label: "sub"},
		{Content: single, Label: "sub"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{"sub_ProxyA", "sub_ProxyA_1"}, proxyNames(t, doc))
}

func TestMergeCustomRulesWinDedup(t *testing.T) {
	cfg := `rules:
  - DOMAIN,example.com,ProxyA
  - DOMAIN,other.org,ProxyA
`
	out, err := Merge(
		[]SourceConfig{{Content: cfg, Label: "sub1"}},
		[]string{"  DOMAIN,example.com,DIRECT  ", "", "   "})
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{
		"DOMAIN,example.com,DIRECT",
		"DOMAIN,other.org,sub1_ProxyA",
	}, ruleLines(doc))
}

func TestMergeNoResolveFlagKeepsPosition(t *testing.T) {
	cfg := `rules:
  - IP-CIDR,10.0.0.0/8,ProxyA,no-resolve
`
	out, err := Merge([]SourceConfig{{Content: cfg, Label: "subX"}}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{"IP-CIDR,10.0.0.0/8,subX_ProxyA,no-resolve"}, ruleLines(doc))
}

func TestMergeMatchRulesCollapse(t *testing.T) {
	first := "rules:\n  - MATCH,Final\n"
	second := "rules:\n  - MATCH,SomeGroup\n"
	out, err := Merge([]SourceConfig{
		{Content: first, Label: "s1"},
		{Content: second, Label: "s2"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{"MATCH,Final"}, ruleLines(doc))
}

func TestMergeEmptyConfigs(t *testing.T) {
	out, err := Merge(nil, nil)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Empty(t, doc)
}

func TestMergeMalformedSourceDegrades(t *testing.T) {
	out, err := Merge([]SourceConfig{
		{Content: sampleConfig, Label: "s1"},
		{Content: "proxies: [unclosed", Label: "s2"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.ElementsMatch(t, []string{"s1_ProxyA", "s1_ProxyB"}, proxyNames(t, doc))
}

func TestMergeMalformedBaseStillMergesRest(t *testing.T) {
	out, err := Merge([]SourceConfig{
		{Content: "not: [valid", Label: "s1"},
		{Content: sampleConfig, Label: "s2"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.ElementsMatch(t, []string{"s2_ProxyA", "s2_ProxyB"}, proxyNames(t, doc))
	assert.NotContains(t, doc, "mode", "global settings must come from the base document only")
}

func TestMergePreservesBaseSettingsAndOrder(t *testing.T) {
	base := `port: 7890
socks-port: 7891
mode: rule
dns:
  enable: true
  nameserver:
    - 1.1.1.1
proxies:
  - name: ProxyA
    type: ss
    server: a.example.com
    udp: true
`
	out, err := Merge([]SourceConfig{{Content: base, Label: "s1"}}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, 7890, doc["port"])
	assert.Equal(t, "rule", doc["mode"])
	dns, ok := doc["dns"].(map[string]interface{})
	require.True(t, ok, "unrecognized top-level keys must survive the round-trip")
	assert.Equal(t, true, dns["enable"])

	// Top-level key order is authored order, not alphabetical.
	portIdx := strings.Index(out, "port:")
	socksIdx := strings.Index(out, "socks-port:")
	modeIdx := strings.Index(out, "mode:")
	assert.True(t, portIdx < socksIdx && socksIdx < modeIdx,
		"key order changed: port=%d socks-port=%d mode=%d", portIdx, socksIdx, modeIdx)

	// Unrecognized proxy fields survive untouched.
	proxies := doc["proxies"].([]interface{})
	proxy := proxies[0].(map[string]interface{})
	assert.Equal(t, "s1_ProxyA", proxy["name"])
	assert.Equal(t, "a.example.com", proxy["server"])
	assert.Equal(t, true, proxy["udp"])
}

func TestMergeDropsNamelessRecords(t *testing.T) {
	cfg := `proxies:
  - type: ss
    server: nameless.example.com
  - name: ProxyA
    type: ss
proxy-groups:
  - type: select
    proxies:
      - ProxyA
  - name: Pick
    type: select
    proxies:
      - ProxyA
`
	out, err := Merge([]SourceConfig{{Content: cfg, Label: "s1"}}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{"s1_ProxyA"}, proxyNames(t, doc))
	groups := doc["proxy-groups"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "s1_Pick", groups[0].(map[string]interface{})["name"])
}

func TestMergeDuplicateGroupNameKeepsFirst(t *testing.T) {
	first := `proxy-groups:
  - name: Auto
    type: select
    proxies:
      - First
`
	second := `proxy-groups:
  - name: Auto
    type: select
    proxies:
      - Second
`
	out, err := Merge([]SourceConfig{
		{Content: first, Label: "s"},
		{Content: second, Label: "s"},
	}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	groups := doc["proxy-groups"].([]interface{})
	require.Len(t, groups, 1, "later duplicate group must be dropped, not merged")
	auto := groups[0].(map[string]interface{})
	assert.Equal(t, "s_Auto", auto["name"])
	assert.Equal(t, []string{"s_First"}, groupMembers(t, auto))
}

func TestMergeShortRulePassthrough(t *testing.T) {
	cfg := `rules:
  - GEOIP,CN
  - justonefield
`
	out, err := Merge([]SourceConfig{{Content: cfg, Label: "s1"}}, nil)
	require.NoError(t, err)
	doc := parseMerged(t, out)

	assert.Equal(t, []string{"GEOIP,CN", "justonefield"}, ruleLines(doc))
}
