package core

import (
	"fmt"
	"strings"
	"submerger/logger"

	"gopkg.in/yaml.v3"
)

// SourceConfig pairs one subscription's raw YAML document with the label used
// to namespace its proxy and group names.
type SourceConfig struct {
	Content string
	Label   string
}

// Clash sentinels that are never owned by a single subscription and therefore
// never renamed.
var reservedNames = map[string]bool{
	"DIRECT": true,
	"REJECT": true,
	"GLOBAL": true,
	"Final":  true,
}

// applyPrefix namespaces a proxy or group name under its subscription label.
func applyPrefix(name, prefix string) string {
	if reservedNames[name] || strings.HasPrefix(name, "Expire:") || strings.HasPrefix(name, "Traffic:") {
		return name
	}
	return prefix + "_" + name
}

// ruleKey derives the identity of a rule line: type plus primary matcher,
// ignoring the target and any flags. All MATCH rules collapse to one key
// since a config can only have one effective catch-all.
func ruleKey(line string) string {
	parts := strings.Split(line, ",")
	if len(parts) == 0 {
		return line
	}
	ruleType := strings.ToUpper(strings.TrimSpace(parts[0]))
	if ruleType == "MATCH" {
		return "MATCH"
	}
	if len(parts) >= 2 {
		return ruleType + "," + strings.TrimSpace(parts[1])
	}
	return line // Fallback for unknown formats
}

// prefixRuleTarget rewrites a rule line's target field under the source
// label. Lines with fewer than three fields have no identifiable target and
// pass through untouched. A trailing no-resolve flag (IP-CIDR style) shifts
// the target to the second-to-last field.
func prefixRuleTarget(line, label string) string {
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return line
	}
	if strings.TrimSpace(parts[len(parts)-1]) == "no-resolve" {
		parts[len(parts)-2] = applyPrefix(parts[len(parts)-2], label)
	} else {
		parts[len(parts)-1] = applyPrefix(parts[len(parts)-1], label)
	}
	return strings.Join(parts, ",")
}

// parseDocument decodes raw YAML into its top-level mapping node. A document
// that fails to parse, or whose root is not a mapping, degrades to nil so one
// bad source never aborts a merge. Working on yaml.Node trees keeps unknown
// keys, field order and unrecognized proxy fields intact through the
// round-trip.
func parseDocument(content string) *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		logger.Error("Failed to parse YAML: %v", err)
		return nil
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setMapValue replaces the value for key in a mapping node, appending the
// pair when the key is absent. Existing key order is left alone.
func setMapValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
}

func sequenceOf(items []*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func stringSequenceOf(items []string) *yaml.Node {
	nodes := make([]*yaml.Node, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
	}
	return sequenceOf(nodes)
}

// Merge combines any number of Clash configurations into one document. The
// first entry supplies the global settings of the output; every source's
// proxies, groups and rule targets are namespaced under its label. Custom
// rules are seeded ahead of subscription rules so they win rule
// deduplication. Malformed sources degrade to empty documents; the only
// failure mode is an unserializable result.
func Merge(configs []SourceConfig, customRules []string) (string, error) {
	if len(configs) == 0 {
		out, err := yaml.Marshal(map[string]interface{}{})
		if err != nil {
			return "", fmt.Errorf("serializing empty config: %w", err)
		}
		return string(out), nil
	}

	// The base document contributes every top-level key except the three
	// merged collections.
	base := parseDocument(configs[0].Content)
	if base == nil {
		base = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	var allProxies []*yaml.Node
	var allGroups []*yaml.Node
	var allRules []string
	usedProxyNames := make(map[string]bool)
	usedGroupNames := make(map[string]bool)

	// Custom rules go first so they take precedence in the global dedup.
	for _, r := range customRules {
		if r = strings.TrimSpace(r); r != "" {
			allRules = append(allRules, r)
		}
	}

	for _, src := range configs {
		doc := parseDocument(src.Content)

		// 1. Merge proxies
		if proxies := mapValue(doc, "proxies"); proxies != nil && proxies.Kind == yaml.SequenceNode {
			for _, proxy := range proxies.Content {
				if proxy.Kind != yaml.MappingNode {
					continue
				}
				nameNode := mapValue(proxy, "name")
				if nameNode == nil || nameNode.Value == "" {
					continue
				}

				prefixed := applyPrefix(nameNode.Value, src.Label)

				// Collision suffixes are positional counters scoped to this
				// merge invocation only.
				originalPrefixed := prefixed
				counter := 1
				for usedProxyNames[prefixed] {
					prefixed = fmt.Sprintf("%s_%d", originalPrefixed, counter)
					counter++
				}

				nameNode.Value = prefixed
				usedProxyNames[prefixed] = true
				allProxies = append(allProxies, proxy)
			}
		}

		// 2. Merge proxy groups
		if groups := mapValue(doc, "proxy-groups"); groups != nil && groups.Kind == yaml.SequenceNode {
			for _, group := range groups.Content {
				if group.Kind != yaml.MappingNode {
					continue
				}
				nameNode := mapValue(group, "name")
				if nameNode == nil || nameNode.Value == "" {
					continue
				}

				prefixedGroupName := applyPrefix(nameNode.Value, src.Label)

				// Members always originate from the same source document, so
				// plain prefixing resolves them correctly.
				if members := mapValue(group, "proxies"); members != nil && members.Kind == yaml.SequenceNode {
					for _, member := range members.Content {
						member.Value = applyPrefix(member.Value, src.Label)
					}
				}
				nameNode.Value = prefixedGroupName

				// Later occurrence of an already-merged group name is
				// discarded, not merged.
				if !usedGroupNames[prefixedGroupName] {
					usedGroupNames[prefixedGroupName] = true
					allGroups = append(allGroups, group)
				}
			}
		}

		// 3. Merge rules
		if rules := mapValue(doc, "rules"); rules != nil && rules.Kind == yaml.SequenceNode {
			for _, rule := range rules.Content {
				allRules = append(allRules, prefixRuleTarget(rule.Value, src.Label))
			}
		}
	}

	// Global rule dedup, first occurrence of each key wins.
	var uniqueRules []string
	seenKeys := make(map[string]bool)
	for _, rule := range allRules {
		key := ruleKey(rule)
		if !seenKeys[key] {
			seenKeys[key] = true
			uniqueRules = append(uniqueRules, rule)
		}
	}

	setMapValue(base, "proxies", sequenceOf(allProxies))
	setMapValue(base, "proxy-groups", sequenceOf(allGroups))
	setMapValue(base, "rules", stringSequenceOf(uniqueRules))

	out, err := yaml.Marshal(base)
	if err != nil {
		return "", fmt.Errorf("serializing merged config: %w", err)
	}
	return string(out), nil
}
