package infra

import (
	"strings"
	"unicode"

	"github.com/acksell/ddbsdl/dynamodb/schema"
)

type UnitKind string

const (
	KindDispatcher UnitKind = "dispatcher"
	KindTrigger    UnitKind = "trigger"
	KindEnricher   UnitKind = "enricher"
)

// Unit is one deployed CDC function. Name doubles as the directory of its
// generated main package and the key of its code artifact.
type Unit struct {
	Kind UnitKind
	Name string
	// Table is the table whose stream feeds the unit, directly for a
	// dispatcher and through its events otherwise.
	Table string
	// Model is the source model of a trigger or enricher.
	Model string
	// DetailTypes are the event detail types a trigger or enricher
	// subscribes to.
	DetailTypes []string
	// Models lists the models a dispatcher publishes changes of.
	Models []string
	// TargetTable is the table an enricher writes to.
	TargetTable string
}

// Units lists the CDC units of a schema: one dispatcher per table with CDC
// models, then one trigger or enricher per CDC model, in schema order.
func Units(tables []schema.Table) []Unit {
	var dispatchers, handlers []Unit
	for _, t := range tables {
		var models []string
		for _, m := range t.Models {
			if m.CDC == nil {
				continue
			}
			models = append(models, m.Name)
			u := Unit{Table: t.Name, Model: m.Name, DetailTypes: detailTypes(m.Name, m.CDC.ChangeEvent())}
			switch c := m.CDC.(type) {
			case schema.Trigger:
				u.Kind = KindTrigger
				u.Name = kebab(m.Name) + "-trigger"
			case schema.Enricher:
				u.Kind = KindEnricher
				u.Name = kebab(m.Name) + "-enricher"
				u.TargetTable = c.TargetTable
			}
			handlers = append(handlers, u)
		}
		if len(models) > 0 {
			dispatchers = append(dispatchers, Unit{
				Kind:   KindDispatcher,
				Name:   "dispatch-" + kebab(t.Name),
				Table:  t.Name,
				Models: models,
			})
		}
	}
	return append(dispatchers, handlers...)
}

func detailTypes(model string, e schema.ChangeEvent) []string {
	var out []string
	for _, kind := range e.Expand() {
		out = append(out, model+"."+string(kind))
	}
	return out
}

// EventSource is the source of the events a dispatcher publishes for a
// table.
func EventSource(prefix, table string) string {
	return prefix + "." + table
}

// kebab turns a model or table name into a unit name: AccountEvents ->
// account-events.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteRune('-')
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// logicalID joins name parts into an alphanumeric CloudFormation logical ID:
// ("dispatch-main", "role") -> DispatchMainRole.
func logicalID(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		upper := true
		for _, r := range p {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				upper = true
				continue
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
