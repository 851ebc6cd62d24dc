package opc

import (
	"errors"
	"fmt"
)

// SerializedRelationship is the intermediate representation of a
// relationship during package reading, before parts are resolved.
type SerializedRelationship struct {
	BaseURI    string
	RID        string
	RelType    string
	TargetRef  string
	TargetMode string
}

// IsExternal reports whether the relationship target is external.
func (sr SerializedRelationship) IsExternal() bool {
	return sr.TargetMode == TargetModeExternal
}

// TargetPartname resolves the target as a PackURI for internal relationships.
func (sr SerializedRelationship) TargetPartname() PackURI {
	return FromRelRef(sr.BaseURI, sr.TargetRef)
}

// SerializedPart holds the serialized data of a part read from the package.
type SerializedPart struct {
	Partname    PackURI
	ContentType string
	RelType     string
	Blob        []byte
	SRels       []SerializedRelationship
}

// PackageReader reads an OPC package from a PhysPkgReader and produces
// serialized parts and relationships.
type PackageReader struct{}

// ReadResult holds the results of reading a package.
type ReadResult struct {
	PkgSRels []SerializedRelationship
	SParts   []SerializedPart
}

// Read reads the package and returns all serialized parts and relationships.
func (pr *PackageReader) Read(physReader *PhysPkgReader) (*ReadResult, error) {
	ctBlob, err := physReader.ContentTypesXml()
	if err != nil {
		return nil, fmt.Errorf("opc: reading content types: %w", err)
	}
	contentTypes, err := ParseContentTypes(ctBlob)
	if err != nil {
		return nil, err
	}

	pkgSRels, err := readSRels(physReader, PackageURI)
	if err != nil {
		return nil, fmt.Errorf("opc: reading package rels: %w", err)
	}

	var sparts []SerializedPart
	visited := make(map[PackURI]bool)
	if err := walkParts(physReader, contentTypes, pkgSRels, &sparts, visited); err != nil {
		return nil, err
	}

	return &ReadResult{PkgSRels: pkgSRels, SParts: sparts}, nil
}

// walkParts discovers parts by following relationships, using an explicit
// stack (iterative DFS) to avoid unbounded call-stack growth on deep
// relationship chains — see spec §9 "DOM mutation during iteration" and the
// analogous iterative walk in OpcPackage.IterParts.
func walkParts(
	physReader *PhysPkgReader,
	contentTypes *ContentTypeMap,
	srels []SerializedRelationship,
	sparts *[]SerializedPart,
	visited map[PackURI]bool,
) error {
	stack := [][]SerializedRelationship{srels}

	for len(stack) > 0 {
		top := len(stack) - 1
		rels := stack[top]

		var advanced bool
		for len(rels) > 0 {
			srel := rels[0]
			rels = rels[1:]
			stack[top] = rels

			if srel.IsExternal() {
				continue
			}
			partname := srel.TargetPartname()
			if visited[partname] {
				continue
			}
			visited[partname] = true

			blob, err := physReader.BlobFor(partname)
			if err != nil {
				if errors.Is(err, ErrMemberNotFound) {
					// Dangling relationship: .rels references a part missing
					// from the ZIP. Common from LibreOffice/Google Docs
					// output — skip rather than fail (spec §7: missing
					// optional parts return empty results, not errors).
					continue
				}
				return fmt.Errorf("opc: reading part %q: %w", partname, err)
			}

			ct, err := contentTypes.ContentType(partname)
			if err != nil {
				// Part exists in the ZIP but [Content_Types].xml has no
				// entry for it — malformed but tolerated.
				continue
			}

			partSRels, err := readSRels(physReader, partname)
			if err != nil {
				return fmt.Errorf("opc: reading rels for %q: %w", partname, err)
			}

			*sparts = append(*sparts, SerializedPart{
				Partname:    partname,
				ContentType: ct,
				RelType:     srel.RelType,
				Blob:        blob,
				SRels:       partSRels,
			})

			stack = append(stack, partSRels)
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:top]
		}
	}
	return nil
}

func readSRels(physReader *PhysPkgReader, sourceURI PackURI) ([]SerializedRelationship, error) {
	blob, err := physReader.RelsXmlFor(sourceURI)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	return ParseRelationships(blob, sourceURI.BaseURI())
}
