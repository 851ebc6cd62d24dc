package opc

import (
	"bytes"
	"fmt"
	"io"
)

// OpcPackage is the root object representing an OPC package: a relationship
// graph of named parts over a ZIP container (spec §1 "Package seam", §6
// "Package layout").
type OpcPackage struct {
	rels        *Relationships
	partFactory *PartFactory
	parts       map[PackURI]Part
}

// NewOpcPackage creates an empty OpcPackage.
func NewOpcPackage(factory *PartFactory) *OpcPackage {
	if factory == nil {
		factory = NewPartFactory()
	}
	return &OpcPackage{
		rels:        NewRelationships("/"),
		partFactory: factory,
		parts:       make(map[PackURI]Part),
	}
}

// Open reads an OPC package from an io.ReaderAt.
func Open(r io.ReaderAt, size int64, factory *PartFactory) (*OpcPackage, error) {
	physReader, err := NewPhysPkgReader(r, size)
	if err != nil {
		return nil, err
	}
	defer physReader.Close()
	return openFromPhysReader(physReader, factory)
}

// OpenFile opens an OPC package from a file path.
func OpenFile(path string, factory *PartFactory) (*OpcPackage, error) {
	physReader, err := NewPhysPkgReaderFromFile(path)
	if err != nil {
		return nil, err
	}
	defer physReader.Close()
	return openFromPhysReader(physReader, factory)
}

// OpenBytes opens an OPC package from in-memory bytes.
func OpenBytes(data []byte, factory *PartFactory) (*OpcPackage, error) {
	physReader, err := NewPhysPkgReaderFromBytes(data)
	if err != nil {
		return nil, err
	}
	defer physReader.Close()
	return openFromPhysReader(physReader, factory)
}

func openFromPhysReader(physReader *PhysPkgReader, factory *PartFactory) (*OpcPackage, error) {
	if factory == nil {
		factory = NewPartFactory()
	}
	pkg := NewOpcPackage(factory)

	reader := &PackageReader{}
	result, err := reader.Read(physReader)
	if err != nil {
		return nil, err
	}

	parts := make(map[PackURI]Part, len(result.SParts))
	for _, sp := range result.SParts {
		part, err := factory.New(sp.Partname, sp.ContentType, sp.RelType, sp.Blob, pkg)
		if err != nil {
			return nil, fmt.Errorf("opc: creating part %q: %w", sp.Partname, err)
		}
		parts[sp.Partname] = part
	}

	for _, srel := range result.PkgSRels {
		var targetPart Part
		if !srel.IsExternal() {
			if p, ok := parts[srel.TargetPartname()]; ok {
				targetPart = p
			}
		}
		pkg.rels.Load(srel.RID, srel.RelType, srel.TargetRef, targetPart, srel.IsExternal())
	}

	for _, sp := range result.SParts {
		part := parts[sp.Partname]
		rels := NewRelationships(sp.Partname.BaseURI())
		for _, srel := range sp.SRels {
			var targetPart Part
			if !srel.IsExternal() {
				if p, ok := parts[srel.TargetPartname()]; ok {
					targetPart = p
				}
			}
			rels.Load(srel.RID, srel.RelType, srel.TargetRef, targetPart, srel.IsExternal())
		}
		part.SetRels(rels)
	}

	pkg.parts = parts

	for _, sp := range result.SParts {
		parts[sp.Partname].AfterUnmarshal()
	}

	return pkg, nil
}

// Save writes the package to an io.Writer.
func (p *OpcPackage) Save(w io.Writer) error {
	parts := p.Parts()
	for _, part := range parts {
		part.BeforeMarshal()
	}
	pw := &PackageWriter{}
	return pw.Write(w, p.rels, parts)
}

// SaveToBytes returns the package as a byte slice.
func (p *OpcPackage) SaveToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Rels returns the package-level relationships.
func (p *OpcPackage) Rels() *Relationships { return p.rels }

// PartByName returns a part by its PackURI.
func (p *OpcPackage) PartByName(pn PackURI) (Part, bool) {
	part, ok := p.parts[pn]
	return part, ok
}

// RelatedPart returns the part the package has a relationship of relType to.
func (p *OpcPackage) RelatedPart(relType string) (Part, error) {
	rel, err := p.rels.GetByRelType(relType)
	if err != nil {
		return nil, err
	}
	if rel.IsExternal || rel.TargetPart == nil {
		return nil, fmt.Errorf("opc: relationship %q is external or unresolved", relType)
	}
	return rel.TargetPart, nil
}

// MainDocumentPart returns the main document part.
func (p *OpcPackage) MainDocumentPart() (Part, error) {
	return p.RelatedPart(RTOfficeDocument)
}

// RelateTo creates or returns an existing package-level relationship to part.
func (p *OpcPackage) RelateTo(part Part, relType string) string {
	return p.rels.GetOrAdd(relType, part).RID
}

// AddPart registers a part with the package.
func (p *OpcPackage) AddPart(part Part) {
	p.parts[part.PartName()] = part
}

// Parts returns all parts reachable via the relationship graph, in
// deterministic depth-first order.
func (p *OpcPackage) Parts() []Part {
	return p.IterParts()
}

// IterParts walks the relationship graph depth-first, using an explicit
// stack (see spec §9 "DOM mutation during iteration").
func (p *OpcPackage) IterParts() []Part {
	var result []Part
	visited := make(map[Part]bool)
	stack := [][]*Relationship{p.rels.All()}

	for len(stack) > 0 {
		top := len(stack) - 1
		rels := stack[top]

		var advanced bool
		for len(rels) > 0 {
			rel := rels[0]
			rels = rels[1:]
			stack[top] = rels

			if rel.IsExternal || rel.TargetPart == nil {
				continue
			}
			part := rel.TargetPart
			if visited[part] {
				continue
			}
			visited[part] = true
			result = append(result, part)
			stack = append(stack, part.Rels().All())
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:top]
		}
	}
	return result
}
