package vetting

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"dreammover/pkg/domain"
)

// ValidatePlanSchema checks the structure of a plan document and returns one
// message per violation, each prefixed with the JSON pointer of the offending
// node ("plan" for the root). A nil result means the plan is well formed.
//
// Unlike the vetting rules, this check is strict about types: `dryRun: "true"`
// is a schema error here and simply not a dry run to the rules.
func ValidatePlanSchema(data []byte) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return []string{"plan YAML parse failed: " + err.Error()}
	}
	doc := resolve(&root)
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = resolve(doc.Content[0])
	}
	v := &schemaCheck{}
	if !v.object(doc, "plan") {
		return v.errs
	}

	rules := lookup(doc, "rules")
	switch {
	case rules == nil:
		v.fail("plan", "must have required property 'rules'")
	case rules.Kind != yaml.SequenceNode:
		v.fail("/rules", "must be array")
	case len(rules.Content) == 0:
		v.fail("/rules", "must NOT have fewer than 1 items")
	default:
		for i, entry := range rules.Content {
			v.rule(resolve(entry), "/rules/"+strconv.Itoa(i))
		}
	}
	if compliance := lookup(doc, "compliance"); compliance != nil {
		if v.object(compliance, "/compliance") {
			v.optionalBool(compliance, "/compliance", "gdpr")
			v.optionalBool(compliance, "/compliance", "hipaa")
		}
	}
	return v.errs
}

type schemaCheck struct {
	errs []string
}

func (v *schemaCheck) fail(path, msg string) {
	v.errs = append(v.errs, path+" "+msg)
}

func (v *schemaCheck) object(n *yaml.Node, path string) bool {
	if n == nil || n.Kind != yaml.MappingNode {
		v.fail(path, "must be object")
		return false
	}
	return true
}

func (v *schemaCheck) rule(entry *yaml.Node, path string) {
	if !v.object(entry, path) {
		return
	}
	if name := lookup(entry, "name"); name != nil && !isString(name) {
		v.fail(path+"/name", "must be string")
	}
	if match := lookup(entry, "match"); match != nil {
		v.match(match, path+"/match")
	}
	action := lookup(entry, "action")
	if action == nil {
		v.fail(path, "must have required property 'action'")
		return
	}
	v.action(action, path+"/action")
}

func (v *schemaCheck) match(m *yaml.Node, path string) {
	if !v.object(m, path) {
		return
	}
	for _, key := range []string{"paths", "patterns"} {
		list := lookup(m, key)
		if list == nil {
			continue
		}
		if list.Kind != yaml.SequenceNode {
			v.fail(path+"/"+key, "must be array")
			continue
		}
		for i, item := range list.Content {
			if !isString(resolve(item)) {
				v.fail(path+"/"+key+"/"+strconv.Itoa(i), "must be string")
			}
		}
	}
	if size := lookup(m, "sizeMinMB"); size != nil {
		f, ok := number(size)
		switch {
		case !ok:
			v.fail(path+"/sizeMinMB", "must be number")
		case f < 0:
			v.fail(path+"/sizeMinMB", "must be >= 0")
		}
	}
}

func (v *schemaCheck) action(a *yaml.Node, path string) {
	if !v.object(a, path) {
		return
	}
	switch t := lookup(a, "type"); {
	case t == nil:
		v.fail(path, "must have required property 'type'")
	case !isString(t):
		v.fail(path+"/type", "must be string")
	default:
		switch domain.ActionKind(t.Value) {
		case domain.ActionRelocate, domain.ActionLink, domain.ActionRehomeApp:
		default:
			v.fail(path+"/type", "must be equal to one of the allowed values")
		}
	}
	switch dest := lookup(a, "destination"); {
	case dest == nil:
		v.fail(path, "must have required property 'destination'")
	case !isString(dest):
		v.fail(path+"/destination", "must be string")
	}
	if verify := lookup(a, "verify"); verify != nil {
		if !isString(verify) || !domain.VerifyMode(verify.Value).Valid() {
			v.fail(path+"/verify", "must be equal to one of the allowed values")
		}
	}
	if notes := lookup(a, "notes"); notes != nil && !isString(notes) {
		v.fail(path+"/notes", "must be string")
	}
	for _, key := range []string{"dryRun", "updateShortcuts", "updateServices"} {
		v.optionalBool(a, path, key)
	}
}

func (v *schemaCheck) optionalBool(m *yaml.Node, path, key string) {
	n := lookup(m, key)
	if n != nil && (n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool") {
		v.fail(path+"/"+key, "must be boolean")
	}
}

func isString(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

func number(n *yaml.Node) (float64, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, false
	}
	if tag := n.ShortTag(); tag != "!!int" && tag != "!!float" {
		return 0, false
	}
	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, false
	}
	return f, true
}

// ValidateDirectory schema-checks every plan file directly inside dir, in
// sorted order. An unreadable file is reported as invalid rather than failing
// the whole run.
func (e *Engine) ValidateDirectory(ctx context.Context, dir string) ([]domain.PlanValidation, error) {
	files, err := planFiles(dir)
	if err != nil {
		return nil, err
	}
	results := make([]domain.PlanValidation, 0, len(files))
	invalid := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := domain.PlanValidation{SourceFile: file, Errors: []string{}}
		data, err := os.ReadFile(file)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("plan unreadable: %v", err))
		} else if errs := ValidatePlanSchema(data); len(errs) > 0 {
			res.Errors = errs
		}
		res.OK = len(res.Errors) == 0
		if !res.OK {
			invalid++
		}
		results = append(results, res)
	}
	e.logger.Info("directory validated", "dir", dir, "files", len(files), "invalid", invalid)
	return results, nil
}
