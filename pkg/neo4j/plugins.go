package neo4j

import (
	"slices"
	"strings"
)

// Plugin identifies a Neo4j Labs plugin to enable inside the container.
// The zero value is not a valid plugin; use the exported variables or
// CustomPlugin.
type Plugin struct {
	name   string
	custom bool
}

// Known Neo4j Labs plugins, named by their canonical form.
var (
	Apoc             = Plugin{name: "apoc"}
	ApocCore         = Plugin{name: "apoc-core"}
	Bloom            = Plugin{name: "bloom"}
	Streams          = Plugin{name: "streams"}
	GraphDataScience = Plugin{name: "graph-data-science"}
	NeoSemantics     = Plugin{name: "n10s"}
)

var knownPlugins = map[string]Plugin{
	Apoc.name:             Apoc,
	ApocCore.name:         ApocCore,
	Bloom.name:            Bloom,
	Streams.name:          Streams,
	GraphDataScience.name: GraphDataScience,
	NeoSemantics.name:     NeoSemantics,
}

// CustomPlugin references a plugin outside the known set by its name.
func CustomPlugin(name string) Plugin {
	return Plugin{name: name, custom: true}
}

// PluginByName returns the known plugin with the given canonical name, or a
// custom plugin reference when the name is not known.
func PluginByName(name string) Plugin {
	if p, ok := knownPlugins[name]; ok {
		return p
	}
	return CustomPlugin(name)
}

// String returns the canonical form used verbatim in the container
// environment.
func (p Plugin) String() string {
	return p.name
}

// pluginNames returns the canonical names of the plugin set, sorted and
// deduplicated. Known plugins order before custom ones, each group ordered by
// name, so identical sets serialize identically regardless of call order.
func pluginNames(plugins []Plugin) []string {
	sorted := slices.Clone(plugins)
	slices.SortFunc(sorted, func(a, b Plugin) int {
		if a.custom != b.custom {
			if a.custom {
				return 1
			}
			return -1
		}
		return strings.Compare(a.name, b.name)
	})
	sorted = slices.Compact(sorted)

	names := make([]string, len(sorted))
	for i, p := range sorted {
		names[i] = p.name
	}
	return names
}
