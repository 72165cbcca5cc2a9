package amr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/amrlink/pkg/common"
)

// Mode selects how a PENMAN string is turned into triples.
type Mode int

const (
	// Normalized de-inverts `:X-of` roles so every edge points from the
	// governing concept to its argument. Used for concept and variable lookup.
	Normalized Mode = iota
	// Literal keeps the triples exactly as written. Coreference inference is
	// sensitive to surface form, so it consumes this mode.
	Literal
)

func (m Mode) String() string {
	switch m {
	case Normalized:
		return "normalized"
	case Literal:
		return "literal"
	default:
		return "unknown"
	}
}

// Instance binds a variable to its concept.
type Instance struct {
	Source  string
	Concept string
}

// Edge is a relation between two variables.
type Edge struct {
	Source string
	Role   string
	Target string
}

// Attribute is a relation from a variable to a constant.
type Attribute struct {
	Source string
	Role   string
	Target string
}

// Graph is a decoded AMR graph. It exposes the capability set the pipeline
// relies on: the top variable, the instances and the relation triples.
type Graph struct {
	Top      string
	Metadata map[string]string
	Mode     Mode

	// Raw is the decoded input, metadata comments included.
	Raw string

	instances  []Instance
	edges      []Edge
	attributes []Attribute
}

// Instances returns the (variable, concept) pairs in order of appearance.
func (g *Graph) Instances() []Instance {
	return append([]Instance(nil), g.instances...)
}

// Edges returns the variable to variable relations.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Attributes returns the variable to constant relations.
func (g *Graph) Attributes() []Attribute {
	return append([]Attribute(nil), g.attributes...)
}

// Variables returns the instance variables in sorted order.
func (g *Graph) Variables() []string {
	vars := make([]string, 0, len(g.instances))
	for _, inst := range g.instances {
		vars = append(vars, inst.Source)
	}
	sort.Strings(vars)
	return vars
}

// ID returns the `::id` metadata field, if any.
func (g *Graph) ID() string {
	return g.Metadata["id"]
}

// Record adapts the graph to the canonical GraphRecord of a sentence.
func (g *Graph) Record(sentenceIndex int) (*common.GraphRecord, error) {
	instances := make(map[string]string, len(g.instances))
	for _, inst := range g.instances {
		instances[inst.Source] = inst.Concept
	}

	triples := make([]common.Triple, 0, len(g.edges)+len(g.attributes))
	for _, e := range g.edges {
		triples = append(triples, common.Triple{Subject: e.Source, Predicate: e.Role, Object: e.Target})
	}
	for _, a := range g.attributes {
		triples = append(triples, common.Triple{Subject: a.Source, Predicate: a.Role, Object: a.Target})
	}

	return common.NewGraphRecord(sentenceIndex, g.Top, instances, triples)
}

// Decode parses a single PENMAN-serialized AMR graph, optionally preceded by
// `# ::key value` metadata comments.
func Decode(text string, mode Mode) (*Graph, error) {
	meta, body := splitMetadata(text)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("amr: empty graph")
	}

	p := &parser{lex: newLexer(body)}
	if err := p.parseGraph(); err != nil {
		return nil, err
	}

	g := &Graph{
		Top:      p.top,
		Metadata: meta,
		Mode:     mode,
		Raw:      text,
	}

	vars := make(map[string]struct{}, len(p.instances))
	for _, inst := range p.instances {
		if _, dup := vars[inst.Source]; dup {
			return nil, fmt.Errorf("amr: variable %q is defined twice", inst.Source)
		}
		vars[inst.Source] = struct{}{}
	}
	g.instances = p.instances

	for _, t := range p.relations {
		_, isVar := vars[t.target]
		if !isVar || t.quoted {
			g.attributes = append(g.attributes, Attribute{Source: t.source, Role: t.role, Target: t.target})
			continue
		}
		e := Edge{Source: t.source, Role: t.role, Target: t.target}
		if mode == Normalized {
			e = normalizeEdge(e)
		}
		g.edges = append(g.edges, e)
	}

	return g, nil
}

// Roles ending in -of that are not inversions.
var nonInvertedRoles = map[string]struct{}{
	":consist-of":        {},
	":prep-out-of":       {},
	":prep-on-behalf-of": {},
	":prep-instead-of":   {},
}

func normalizeEdge(e Edge) Edge {
	if _, ok := nonInvertedRoles[e.Role]; ok {
		return e
	}
	if strings.HasSuffix(e.Role, "-of") && len(e.Role) > len(":-of") {
		return Edge{
			Source: e.Target,
			Role:   strings.TrimSuffix(e.Role, "-of"),
			Target: e.Source,
		}
	}
	return e
}

// ParseMetadata extracts the `::key value` fields from AMR comment lines.
// Lines that are not comments are ignored.
func ParseMetadata(text string) map[string]string {
	meta, _ := splitMetadata(text)
	return meta
}

func splitMetadata(text string) (map[string]string, string) {
	meta := make(map[string]string)
	var body strings.Builder

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}

		fields := strings.Split(" "+strings.TrimPrefix(trimmed, "#"), " ::")
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			key, value, _ := strings.Cut(f, " ")
			if _, seen := meta[key]; !seen {
				meta[key] = strings.TrimSpace(value)
			}
		}
	}

	return meta, body.String()
}
