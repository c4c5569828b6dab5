package vetting

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"dreammover/pkg/domain"
)

// ParsePlan decodes a YAML rite plan. Documents that fail to decode or whose
// root is not a mapping yield an error wrapping domain.ErrParse.
//
// A missing or non-list `rules` key is an empty action list. Rule entries that
// are not mappings, or carry no `action` mapping, decode as unspecified actions
// with no safeguards.
func ParsePlan(source string, data []byte) (domain.PlanDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return domain.PlanDocument{}, fmt.Errorf("%w: %s: %v", domain.ErrParse, source, err)
	}
	doc := resolve(&root)
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = resolve(doc.Content[0])
	}
	if doc == nil || doc.Kind != yaml.MappingNode {
		return domain.PlanDocument{}, fmt.Errorf("%w: %s: document is not a mapping", domain.ErrParse, source)
	}

	plan := domain.PlanDocument{Source: source}
	if rules := lookup(doc, "rules"); rules != nil && rules.Kind == yaml.SequenceNode {
		plan.Actions = make([]domain.Action, 0, len(rules.Content))
		for _, entry := range rules.Content {
			plan.Actions = append(plan.Actions, decodeAction(resolve(entry)))
		}
	}
	if compliance := lookup(doc, "compliance"); compliance != nil && compliance.Kind == yaml.MappingNode {
		plan.Compliance = domain.Compliance{
			GDPR:  truthy(lookup(compliance, "gdpr")),
			HIPAA: truthy(lookup(compliance, "hipaa")),
		}
	}
	return plan, nil
}

func decodeAction(entry *yaml.Node) domain.Action {
	if entry == nil || entry.Kind != yaml.MappingNode {
		return domain.UnspecifiedAction{}
	}
	action := lookup(entry, "action")
	if action == nil || action.Kind != yaml.MappingNode {
		return domain.UnspecifiedAction{}
	}

	guards := domain.Safeguards{
		DryRun: isTrue(lookup(action, "dryRun")),
		Verify: domain.VerifyMode(scalar(lookup(action, "verify"))),
		Notes:  stringValue(lookup(action, "notes")),
	}
	destination := scalar(lookup(action, "destination"))
	declared := scalar(lookup(action, "type"))

	switch domain.ActionKind(declared) {
	case domain.ActionRelocate:
		return domain.RelocateAction{Safeguards: guards, Destination: destination}
	case domain.ActionLink:
		return domain.LinkAction{Safeguards: guards, Destination: destination}
	case domain.ActionRehomeApp:
		return domain.RehomeAppAction{
			Safeguards:      guards,
			Destination:     destination,
			UpdateShortcuts: isTrue(lookup(action, "updateShortcuts")),
			UpdateServices:  isTrue(lookup(action, "updateServices")),
		}
	default:
		return domain.UnspecifiedAction{Safeguards: guards, DeclaredType: declared}
	}
}

// resolve follows alias nodes to their anchors.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if k := resolve(mapping.Content[i]); k != nil && k.Kind == yaml.ScalarNode && k.Value == key {
			return resolve(mapping.Content[i+1])
		}
	}
	return nil
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return ""
	}
	return n.Value
}

// stringValue returns the value only for string scalars; numbers and booleans
// are not notes.
func stringValue(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return ""
	}
	return n.Value
}

// isTrue reports a boolean scalar set to true. Strings such as "true" do not count.
func isTrue(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false
	}
	v, err := strconv.ParseBool(n.Value)
	if err != nil {
		var b bool
		if n.Decode(&b) != nil {
			return false
		}
		return b
	}
	return v
}

func truthy(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.ScalarNode {
		return n != nil && (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode)
	}
	switch n.ShortTag() {
	case "!!null":
		return false
	case "!!bool":
		return isTrue(n)
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		return err == nil && f != 0
	default:
		return n.Value != ""
	}
}
