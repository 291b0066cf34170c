package local

import "github.com/gobrucego/o8fed/internal/resource"

// categoryDir pairs a scanned directory name with the category its
// resources are filed under. "guides" is an alias directory for pattern
// (spec §4.9: "plus a guides alias mapped to pattern").
type categoryDir struct {
	Category resource.Category
	Dir      string
}

var scanDirs = []categoryDir{
	{resource.CategoryAgent, "agents"},
	{resource.CategorySkill, "skills"},
	{resource.CategoryExample, "examples"},
	{resource.CategoryPattern, "patterns"},
	{resource.CategoryWorkflow, "workflows"},
	{resource.CategoryPattern, "guides"},
}

// canonicalDir returns the single writable/readable directory name used by
// fetchResource's direct-path lookup for a category.
func canonicalDir(c resource.Category) string {
	switch c {
	case resource.CategoryAgent:
		return "agents"
	case resource.CategorySkill:
		return "skills"
	case resource.CategoryExample:
		return "examples"
	case resource.CategoryPattern:
		return "patterns"
	case resource.CategoryWorkflow:
		return "workflows"
	default:
		return string(c) + "s"
	}
}
