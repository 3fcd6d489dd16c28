package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Project describes one sub-project of the repository.
type Project struct {
	// Exclude lists tools that are not built on a platform, keyed by platform tag.
	Exclude map[string][]string `yaml:"exclude,omitempty" toml:"exclude"`

	Name      string   `yaml:"name" toml:"name"`
	Dir       string   `yaml:"dir" toml:"dir"`
	PythonTag string   `yaml:"python_tag" toml:"python_tag"`
	Tools     []string `yaml:"tools" toml:"tools"`
}

// DefaultProjects is the built-in registry used when no configuration file is present.
func DefaultProjects() []Project {
	return []Project{
		{
			Name:      "netlib",
			Dir:       "netlib",
			PythonTag: "py2.py3",
		},
		{
			Name:      "pathod",
			Dir:       "pathod",
			Tools:     []string{"pathod", "pathoc"},
			PythonTag: "py2",
		},
		{
			Name:      "mitmproxy",
			Dir:       "mitmproxy",
			Tools:     []string{"mitmproxy", "mitmdump", "mitmweb"},
			PythonTag: "py2",
			Exclude:   map[string][]string{string(PlatformWindows): {"mitmproxy"}},
		},
	}
}

// ToolsFor returns the tools built for the given platform, in configuration order.
func (p *Project) ToolsFor(platform Platform) []string {
	excluded := p.Exclude[platform.Tag()]
	tools := make([]string, 0, len(p.Tools))
	for _, tool := range p.Tools {
		if !slices.Contains(excluded, tool) {
			tools = append(tools, tool)
		}
	}
	return tools
}

// Names returns the project names in configuration order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Projects))
	for i := range c.Projects {
		names = append(names, c.Projects[i].Name)
	}
	return names
}

// Select returns the projects chosen on the command line, in configuration order.
// An empty selection means every project.
func (c *Config) Select(names []string) ([]Project, error) {
	if len(names) == 0 {
		return slices.Clone(c.Projects), nil
	}

	known := make(map[string]bool, len(c.Projects))
	for i := range c.Projects {
		known[c.Projects[i].Name] = true
	}

	wanted := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s (choose from %s)", ErrUnknownProject,
			strings.Join(unknown, ", "), strings.Join(c.Names(), ", "))
	}

	selected := make([]Project, 0, len(wanted))
	for i := range c.Projects {
		if wanted[c.Projects[i].Name] {
			selected = append(selected, c.Projects[i])
		}
	}
	return selected, nil
}
