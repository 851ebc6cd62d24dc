package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMemberNotFound indicates a requested ZIP member does not exist.
var ErrMemberNotFound = errors.New("opc: ZIP member not found")

// PhysPkgReader reads named members out of the physical ZIP container.
// It is the "package reader" seam named in spec §1/§3 — callers never touch
// archive/zip directly.
type PhysPkgReader struct {
	zr *zip.Reader
	rc io.Closer // non-nil only when we opened the underlying file ourselves
}

// NewPhysPkgReader wraps an io.ReaderAt of known size.
func NewPhysPkgReader(r io.ReaderAt, size int64) (*PhysPkgReader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opc: opening ZIP: %w", err)
	}
	return &PhysPkgReader{zr: zr}, nil
}

// NewPhysPkgReaderFromFile opens a ZIP container from a file path.
func NewPhysPkgReaderFromFile(path string) (*PhysPkgReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opc: opening %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opc: opening ZIP %q: %w", path, err)
	}
	return &PhysPkgReader{zr: zr, rc: f}, nil
}

// NewPhysPkgReaderFromBytes opens a ZIP container held entirely in memory.
func NewPhysPkgReaderFromBytes(data []byte) (*PhysPkgReader, error) {
	return NewPhysPkgReader(bytes.NewReader(data), int64(len(data)))
}

// Close releases any OS resources held by the reader.
func (r *PhysPkgReader) Close() error {
	if r.rc != nil {
		return r.rc.Close()
	}
	return nil
}

func (r *PhysPkgReader) find(name string) *zip.File {
	for _, f := range r.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// BlobFor returns the raw bytes of the named part.
func (r *PhysPkgReader) BlobFor(partname PackURI) ([]byte, error) {
	f := r.find(partname.MemberName())
	if f == nil {
		return nil, ErrMemberNotFound
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ContentTypesXml returns the raw [Content_Types].xml bytes.
func (r *PhysPkgReader) ContentTypesXml() ([]byte, error) {
	f := r.find("[Content_Types].xml")
	if f == nil {
		return nil, fmt.Errorf("opc: missing [Content_Types].xml")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// RelsXmlFor returns the .rels blob for sourceURI, or nil if it has none.
func (r *PhysPkgReader) RelsXmlFor(sourceURI PackURI) ([]byte, error) {
	f := r.find(sourceURI.RelsURI().MemberName())
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// PackageWriter serializes an in-memory relationship graph to a fresh ZIP
// container.
type PackageWriter struct{}

// Write emits [Content_Types].xml, the package-level .rels, every part's
// blob, and every part-level .rels, in deterministic order.
func (pw *PackageWriter) Write(w io.Writer, pkgRels *Relationships, parts []Part) error {
	zw := zip.NewWriter(w)

	ct := NewContentTypeMap()
	for _, p := range parts {
		pn := p.PartName()
		ext := pn.Ext()
		if ext == "xml" && p.ContentType() != "application/xml" {
			ct.SetOverride(pn, p.ContentType())
		} else if p.ContentType() != ct.defaults[ext] {
			ct.SetOverride(pn, p.ContentType())
		}
	}
	ctBlob, err := ct.Serialize()
	if err != nil {
		return err
	}
	if err := writeZipMember(zw, "[Content_Types].xml", ctBlob); err != nil {
		return err
	}

	if len(pkgRels.All()) > 0 {
		relsBlob, err := pkgRels.Serialize()
		if err != nil {
			return err
		}
		if err := writeZipMember(zw, PackageURI.RelsURI().MemberName(), relsBlob); err != nil {
			return err
		}
	}

	for _, p := range parts {
		blob, err := p.Blob()
		if err != nil {
			return fmt.Errorf("opc: serializing part %q: %w", p.PartName(), err)
		}
		if blob == nil {
			blob = []byte{}
		}
		if err := writeZipMember(zw, p.PartName().MemberName(), blob); err != nil {
			return err
		}
		if rels := p.Rels(); rels != nil && len(rels.All()) > 0 {
			relsBlob, err := rels.Serialize()
			if err != nil {
				return err
			}
			if err := writeZipMember(zw, p.PartName().RelsURI().MemberName(), relsBlob); err != nil {
				return err
			}
		}
	}

	return zw.Close()
}

func writeZipMember(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("opc: creating ZIP member %q: %w", name, err)
	}
	_, err = fw.Write(data)
	return err
}
