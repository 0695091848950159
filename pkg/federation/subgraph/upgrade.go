package subgraph

import (
	"github.com/wundergraph/fedcomposer/pkg/federation/fieldset"
	"github.com/wundergraph/fedcomposer/pkg/federation/schema"
)

// Upgrade rewrites a federation 1 subgraph to federation 2 semantics:
// fields of object types become shareable, as every federation 1 field could be
// resolved by several subgraphs, and key fields lose their @external marker.
// The rewrite happens on a copy, the expanded subgraph stays as it is.
// Federation 2 subgraphs pass through unchanged.
func (e *Expanded) Upgrade() *Upgraded {
	upgraded := &Upgraded{
		subgraph:     e.subgraph,
		applications: e.applications,
		upgradedFrom: e.subgraph.Schema.FederationVersion,
	}
	if e.subgraph.Schema.FederationVersion != 1 {
		return upgraded
	}

	upgradedSchema := e.subgraph.Schema.Clone()
	for _, t := range upgradedSchema.Types() {
		if t.Kind != schema.TypeKindObject {
			continue
		}
		for _, key := range t.Keys {
			set, err := fieldset.Parse(key.Fields)
			if err != nil {
				// reported by validation
				continue
			}
			for _, selection := range set {
				if field := t.Field(selection.Name); field != nil {
					field.External = false
				}
			}
		}
		for _, field := range t.Fields {
			if !field.External {
				field.Shareable = true
			}
		}
	}
	upgradedSchema.FederationVersion = 2

	upgraded.subgraph = &schema.Subgraph{Name: e.subgraph.Name, URL: e.subgraph.URL, Schema: upgradedSchema}
	return upgraded
}
