package opc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	TargetModeInternal = "Internal"
	TargetModeExternal = "External"
)

// Relationship is one <Relationship> entry, resolved against the part graph.
type Relationship struct {
	RID        string
	RelType    string
	TargetPart Part   // nil for external or dangling relationships
	TargetRef  string // original target ref, kept for round-trip when TargetPart is nil
	IsExternal bool
}

// Relationships is the relationship set for one source (a part, or the
// package root), keyed by rId.
type Relationships struct {
	baseURI string
	byRID   map[string]*Relationship
	order   []string // rIds in insertion order
}

// NewRelationships creates an empty relationship set rooted at baseURI.
func NewRelationships(baseURI string) *Relationships {
	return &Relationships{
		baseURI: baseURI,
		byRID:   make(map[string]*Relationship),
	}
}

// nextRID returns the next "rIdN" not already in use.
func (r *Relationships) nextRID() string {
	max := 0
	for rid := range r.byRID {
		if n, ok := strings.CutPrefix(rid, "rId"); ok {
			if v, err := strconv.Atoi(n); err == nil && v > max {
				max = v
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

// Add creates a new relationship to target (internal) with a fresh rId.
func (r *Relationships) Add(relType, targetRef string, target Part, external bool) *Relationship {
	rid := r.nextRID()
	rel := &Relationship{RID: rid, RelType: relType, TargetPart: target, TargetRef: targetRef, IsExternal: external}
	r.byRID[rid] = rel
	r.order = append(r.order, rid)
	return rel
}

// GetOrAdd returns the existing relationship of relType targeting part, or
// creates one if none exists.
func (r *Relationships) GetOrAdd(relType string, target Part) *Relationship {
	for _, rid := range r.order {
		rel := r.byRID[rid]
		if rel.RelType == relType && rel.TargetPart == target {
			return rel
		}
	}
	return r.Add(relType, "", target, false)
}

// Load registers a relationship read back from a .rels file, preserving its
// original rId.
func (r *Relationships) Load(rid, relType, targetRef string, target Part, external bool) {
	if _, exists := r.byRID[rid]; !exists {
		r.order = append(r.order, rid)
	}
	r.byRID[rid] = &Relationship{RID: rid, RelType: relType, TargetPart: target, TargetRef: targetRef, IsExternal: external}
}

// Get returns the relationship with the given rId.
func (r *Relationships) Get(rid string) (*Relationship, bool) {
	rel, ok := r.byRID[rid]
	return rel, ok
}

// GetByRelType returns the first relationship of the given type.
func (r *Relationships) GetByRelType(relType string) (*Relationship, error) {
	for _, rid := range r.order {
		if rel := r.byRID[rid]; rel.RelType == relType {
			return rel, nil
		}
	}
	return nil, fmt.Errorf("opc: no relationship of type %q", relType)
}

// All returns every relationship in insertion order.
func (r *Relationships) All() []*Relationship {
	out := make([]*Relationship, 0, len(r.order))
	for _, rid := range r.order {
		out = append(out, r.byRID[rid])
	}
	return out
}

// Remove deletes the relationship with the given rId.
func (r *Relationships) Remove(rid string) {
	delete(r.byRID, rid)
	for i, id := range r.order {
		if id == rid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ParseRelationships parses a .rels file blob, resolving TargetRef against
// baseURI into absolute form for each SerializedRelationship.
func ParseRelationships(blob []byte, baseURI string) ([]SerializedRelationship, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(blob); err != nil {
		return nil, fmt.Errorf("opc: parsing relationships: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil
	}
	var out []SerializedRelationship
	for _, child := range root.ChildElements() {
		if child.Tag != "Relationship" {
			continue
		}
		mode := child.SelectAttrValue("TargetMode", TargetModeInternal)
		out = append(out, SerializedRelationship{
			BaseURI:    baseURI,
			RID:        child.SelectAttrValue("Id", ""),
			RelType:    child.SelectAttrValue("Type", ""),
			TargetRef:  child.SelectAttrValue("Target", ""),
			TargetMode: mode,
		})
	}
	return out, nil
}

// Serialize renders the relationship set as a .rels XML document.
func (r *Relationships) Serialize() ([]byte, error) {
	doc := newXmlDoc()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")

	ids := append([]string(nil), r.order...)
	sort.Slice(ids, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(ids[i], "rId"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(ids[j], "rId"))
		return ni < nj
	})

	for _, rid := range ids {
		rel := r.byRID[rid]
		e := root.CreateElement("Relationship")
		e.CreateAttr("Id", rel.RID)
		e.CreateAttr("Type", rel.RelType)
		target := rel.TargetRef
		if !rel.IsExternal && rel.TargetPart != nil {
			target = relativize(r.baseURI, string(rel.TargetPart.PartName()))
		}
		e.CreateAttr("Target", target)
		if rel.IsExternal {
			e.CreateAttr("TargetMode", TargetModeExternal)
		}
	}
	return doc.WriteToBytes()
}

// relativize computes a relative path from baseURI to target, OPC-style
// (no "./" prefix, "../" segments as needed).
func relativize(baseURI, target string) string {
	baseParts := strings.Split(strings.Trim(baseURI, "/"), "/")
	if baseURI == "/" {
		baseParts = nil
	}
	targetParts := strings.Split(strings.TrimPrefix(target, "/"), "/")

	i := 0
	for i < len(baseParts) && i < len(targetParts)-1 && baseParts[i] == targetParts[i] {
		i++
	}
	var up []string
	for range baseParts[i:] {
		up = append(up, "..")
	}
	rel := append(up, targetParts[i:]...)
	return strings.Join(rel, "/")
}
