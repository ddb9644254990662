package px

import (
	"slices"
	"strings"

	"pxs/internal/model"
)

// protocolRule is one row of the protocol decision table.
type protocolRule struct {
	name   string
	match  func(folderPath []string, filename string) bool
	result model.Protocol
}

func inBucket(bucket string) func([]string) bool {
	return func(folderPath []string) bool {
		return len(folderPath) > 0 && folderPath[0] == bucket
	}
}

var (
	inRoleBucket = inBucket("role")
	inToolBucket = inBucket("tool")
)

// roleSubfolderContains matches role/<name>/<sub>/... where sub contains s.
func roleSubfolderContains(s string) func([]string, string) bool {
	return func(folderPath []string, _ string) bool {
		return inRoleBucket(folderPath) && len(folderPath) >= 3 && strings.Contains(folderPath[2], s)
	}
}

func roleFileContains(s string) func([]string, string) bool {
	return func(folderPath []string, filename string) bool {
		return inRoleBucket(folderPath) && strings.Contains(filename, s)
	}
}

func fileContains(s string) func([]string, string) bool {
	return func(_ []string, filename string) bool {
		return strings.Contains(filename, s)
	}
}

// protocolRules is evaluated top to bottom; the first match wins.
// A bare file under a role folder is the role definition itself.
var protocolRules = []protocolRule{
	{"role: .thought. file", roleFileContains(".thought."), model.ProtocolThought},
	{"role: .execution. file", roleFileContains(".execution."), model.ProtocolExecution},
	{"role: .role. file", roleFileContains(".role."), model.ProtocolRole},
	{"role: thought subfolder", roleSubfolderContains("thought"), model.ProtocolThought},
	{"role: execution subfolder", roleSubfolderContains("execution"), model.ProtocolExecution},
	{"role: default", func(fp []string, _ string) bool { return inRoleBucket(fp) }, model.ProtocolRole},
	{"tool: manual file", func(fp []string, f string) bool { return inToolBucket(fp) && strings.Contains(f, "manual") }, model.ProtocolManual},
	{"tool: default", func(fp []string, _ string) bool { return inToolBucket(fp) }, model.ProtocolTool},
	{"thought file", fileContains("thought"), model.ProtocolThought},
	{"execution file", fileContains("execution"), model.ProtocolExecution},
	{"manual file", fileContains("manual"), model.ProtocolManual},
	{"default", func([]string, string) bool { return true }, model.ProtocolRole},
}

// ClassifyProtocol infers a resource's protocol from its root-relative
// folder path and filename.
func ClassifyProtocol(folderPath []string, filename string) model.Protocol {
	for _, rule := range protocolRules {
		if rule.match(folderPath, filename) {
			return rule.result
		}
	}
	return model.ProtocolRole
}

// sourceRules is evaluated top to bottom; project is the fallback.
var sourceRules = []struct {
	segment string
	result  model.Source
}{
	{"system", model.SourceSystem},
	{"user", model.SourceUser},
}

// ClassifySource infers a resource's provenance from its folder path.
func ClassifySource(folderPath []string) model.Source {
	for _, rule := range sourceRules {
		if slices.Contains(folderPath, rule.segment) {
			return rule.result
		}
	}
	return model.SourceProject
}

// ReferenceURI builds "@<protocol>://<folderPath[1:]>//<filename>".
// The first folder segment is the protocol bucket and is not repeated.
func ReferenceURI(protocol model.Protocol, folderPath []string, filename string) string {
	var rest []string
	if len(folderPath) > 1 {
		rest = folderPath[1:]
	}
	return "@" + string(protocol) + "://" + strings.Join(rest, "/") + "//" + filename
}
