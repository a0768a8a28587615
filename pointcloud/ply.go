package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
)

// lowPointCountThreshold is the size below which a room scan is suspect;
// a typical full room scan carries 1-3M points.
const lowPointCountThreshold = 100000

// NewFromFile returns a point cloud read in from the given file. Supported
// extensions are .ply and .pcd. It fails when the file is missing, the
// extension is not supported, or the file parses to zero points.
func NewFromFile(fn string, logger logging.Logger) (*Cloud, error) {
	var cloud *Cloud
	switch filepath.Ext(fn) {
	case ".ply":
		f, err := os.Open(fn)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open point cloud file %q", fn)
		}
		defer f.Close() //nolint:errcheck
		cloud, err = ReadPLY(f)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse PLY file %q", fn)
		}
	case ".pcd":
		f, err := os.Open(fn)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open point cloud file %q", fn)
		}
		defer f.Close() //nolint:errcheck
		cloud, err = ReadPCD(f)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse PCD file %q", fn)
		}
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
	if cloud.Size() == 0 {
		return nil, errors.Wrapf(ErrNoPoints, "file %q", fn)
	}
	if cloud.Size() < lowPointCountThreshold {
		logger.Warnf("low point count %d in %q; scan may be incomplete", cloud.Size(), fn)
	}
	return cloud, nil
}

type plyFormat int

const (
	plyAscii plyFormat = iota
	plyBinaryLittleEndian
)

type plyProperty struct {
	name string
	typ  string
}

func (p plyProperty) byteSize() (int, error) {
	switch p.typ {
	case "char", "int8", "uchar", "uint8":
		return 1, nil
	case "short", "int16", "ushort", "uint16":
		return 2, nil
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4, nil
	case "double", "float64":
		return 8, nil
	default:
		return 0, errors.Errorf("unsupported ply property type %q", p.typ)
	}
}

type plyHeader struct {
	format      plyFormat
	vertexCount int
	properties  []plyProperty
}

// parsePLYHeader consumes the header lines up to and including end_header.
// Only a leading vertex element is supported; trailing elements (faces etc.)
// are declared but their data is never read.
func parsePLYHeader(in *bufio.Reader) (*plyHeader, error) {
	magic, err := in.ReadString('\n')
	if err != nil {
		return nil, errors.Wrap(err, "error reading ply magic")
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, errors.Errorf("not a ply file, header starts with %q", strings.TrimSpace(magic))
	}

	header := &plyHeader{vertexCount: -1}
	inVertexElement := false
	sawLaterElement := false
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "unexpected end of ply header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "comment") || strings.HasPrefix(line, "obj_info") {
			continue
		}
		tokens := strings.Fields(line)
		switch tokens[0] {
		case "format":
			if len(tokens) != 3 {
				return nil, errors.Errorf("malformed format line %q", line)
			}
			switch tokens[1] {
			case "ascii":
				header.format = plyAscii
			case "binary_little_endian":
				header.format = plyBinaryLittleEndian
			default:
				return nil, errors.Errorf("unsupported ply format %q", tokens[1])
			}
		case "element":
			if len(tokens) != 3 {
				return nil, errors.Errorf("malformed element line %q", line)
			}
			if tokens[1] == "vertex" {
				if sawLaterElement {
					return nil, errors.New("vertex element must come before other elements")
				}
				n, err := strconv.Atoi(tokens[2])
				if err != nil {
					return nil, errors.Errorf("invalid vertex count %q", tokens[2])
				}
				header.vertexCount = n
				inVertexElement = true
			} else {
				inVertexElement = false
				sawLaterElement = true
			}
		case "property":
			if !inVertexElement {
				continue
			}
			if tokens[1] == "list" {
				return nil, errors.New("list properties on vertex elements are not supported")
			}
			if len(tokens) != 3 {
				return nil, errors.Errorf("malformed property line %q", line)
			}
			header.properties = append(header.properties, plyProperty{name: tokens[2], typ: tokens[1]})
		case "end_header":
			if header.vertexCount < 0 {
				return nil, errors.New("ply header has no vertex element")
			}
			return header, nil
		default:
			return nil, errors.Errorf("unsupported ply header line %q", line)
		}
	}
}

// propertyIndices locates the coordinate, normal and color columns.
func (h *plyHeader) propertyIndex(name string) int {
	for i, p := range h.properties {
		if p.name == name {
			return i
		}
	}
	return -1
}

// ReadPLY reads a PLY point cloud (ascii or binary_little_endian) from the
// reader. Vertex properties x, y, z are required; nx/ny/nz and
// red/green/blue are picked up when present, other properties are skipped.
func ReadPLY(inRaw io.Reader) (*Cloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := parsePLYHeader(in)
	if err != nil {
		return nil, err
	}

	ix, iy, iz := header.propertyIndex("x"), header.propertyIndex("y"), header.propertyIndex("z")
	if ix < 0 || iy < 0 || iz < 0 {
		return nil, errors.New("ply vertex element lacks x/y/z properties")
	}
	inx, iny, inz := header.propertyIndex("nx"), header.propertyIndex("ny"), header.propertyIndex("nz")
	hasNormals := inx >= 0 && iny >= 0 && inz >= 0
	ir, ig, ib := header.propertyIndex("red"), header.propertyIndex("green"), header.propertyIndex("blue")
	hasColor := ir >= 0 && ig >= 0 && ib >= 0

	cloud := NewWithPrealloc(header.vertexCount)
	var normals []r3.Vector
	if hasNormals {
		normals = make([]r3.Vector, 0, header.vertexCount)
	}

	row := make([]float64, len(header.properties))
	for i := 0; i < header.vertexCount; i++ {
		switch header.format {
		case plyAscii:
			if err := readPLYAsciiRow(in, header, row, i); err != nil {
				return nil, err
			}
		case plyBinaryLittleEndian:
			if err := readPLYBinaryRow(in, header, row, i); err != nil {
				return nil, err
			}
		}
		p := r3.Vector{X: row[ix], Y: row[iy], Z: row[iz]}
		if hasColor {
			cloud.AppendColored(p, color.NRGBA{
				R: uint8(row[ir]),
				G: uint8(row[ig]),
				B: uint8(row[ib]),
				A: 255,
			})
		} else {
			cloud.Append(p)
		}
		if hasNormals {
			normals = append(normals, r3.Vector{X: row[inx], Y: row[iny], Z: row[inz]})
		}
	}
	if hasNormals {
		if err := cloud.SetNormals(normals); err != nil {
			return nil, err
		}
	}
	return cloud, nil
}

func readPLYAsciiRow(in *bufio.Reader, header *plyHeader, row []float64, i int) error {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return errors.Wrapf(err, "error reading vertex %d", i)
	}
	tokens := strings.Fields(line)
	if len(tokens) != len(header.properties) {
		return errors.Errorf("vertex %d has %d fields, want %d", i, len(tokens), len(header.properties))
	}
	for j, token := range tokens {
		row[j], err = strconv.ParseFloat(token, 64)
		if err != nil {
			return errors.Errorf("invalid vertex %d field %q", i, token)
		}
	}
	return nil
}

func readPLYBinaryRow(in *bufio.Reader, header *plyHeader, row []float64, i int) error {
	for j, prop := range header.properties {
		size, err := prop.byteSize()
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(in, buf); err != nil {
			return errors.Wrapf(err, "error reading vertex %d property %q", i, prop.name)
		}
		switch prop.typ {
		case "float", "float32":
			row[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		case "double", "float64":
			row[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		case "char", "int8":
			row[j] = float64(int8(buf[0]))
		case "uchar", "uint8":
			row[j] = float64(buf[0])
		case "short", "int16":
			row[j] = float64(int16(binary.LittleEndian.Uint16(buf)))
		case "ushort", "uint16":
			row[j] = float64(binary.LittleEndian.Uint16(buf))
		case "int", "int32":
			row[j] = float64(int32(binary.LittleEndian.Uint32(buf)))
		case "uint", "uint32":
			row[j] = float64(binary.LittleEndian.Uint32(buf))
		}
	}
	return nil
}

// WritePLY writes the cloud to out, ascii when ascii is set, otherwise
// binary_little_endian. Normals and colors are written when the cloud has
// them. Coordinates and normals are written as doubles so a cloud survives a
// write/read cycle bit for bit; float32 output would shift grid-aligned
// coordinates across voxel-cell boundaries on reload.
func WritePLY(cloud *Cloud, out io.Writer, ascii bool) (err error) {
	w := bufio.NewWriter(out)
	defer func() {
		err = multierr.Combine(err, w.Flush())
	}()

	meta := cloud.MetaData()
	format := "binary_little_endian"
	if ascii {
		format = "ascii"
	}
	if _, err = fmt.Fprintf(w, "ply\nformat %s 1.0\nelement vertex %d\n", format, cloud.Size()); err != nil {
		return
	}
	if _, err = fmt.Fprintf(w, "property double x\nproperty double y\nproperty double z\n"); err != nil {
		return
	}
	if meta.HasNormals {
		if _, err = fmt.Fprintf(w, "property double nx\nproperty double ny\nproperty double nz\n"); err != nil {
			return
		}
	}
	if meta.HasColor {
		if _, err = fmt.Fprintf(w, "property uchar red\nproperty uchar green\nproperty uchar blue\n"); err != nil {
			return
		}
	}
	if _, err = fmt.Fprintf(w, "end_header\n"); err != nil {
		return
	}

	writeF64 := func(v float64) error {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		_, werr := w.Write(buf)
		return werr
	}
	// shortest decimal form that parses back to the same float64
	ftoa := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for i := 0; i < cloud.Size(); i++ {
		p := cloud.Position(i)
		if ascii {
			if _, err = fmt.Fprintf(w, "%s %s %s", ftoa(p.X), ftoa(p.Y), ftoa(p.Z)); err != nil {
				return
			}
			if meta.HasNormals {
				n := cloud.Normal(i)
				if _, err = fmt.Fprintf(w, " %s %s %s", ftoa(n.X), ftoa(n.Y), ftoa(n.Z)); err != nil {
					return
				}
			}
			if meta.HasColor {
				c := cloud.Color(i)
				if _, err = fmt.Fprintf(w, " %d %d %d", c.R, c.G, c.B); err != nil {
					return
				}
			}
			if _, err = fmt.Fprintf(w, "\n"); err != nil {
				return
			}
			continue
		}
		for _, v := range []float64{p.X, p.Y, p.Z} {
			if err = writeF64(v); err != nil {
				return
			}
		}
		if meta.HasNormals {
			n := cloud.Normal(i)
			for _, v := range []float64{n.X, n.Y, n.Z} {
				if err = writeF64(v); err != nil {
					return
				}
			}
		}
		if meta.HasColor {
			c := cloud.Color(i)
			if _, err = w.Write([]byte{c.R, c.G, c.B}); err != nil {
				return
			}
		}
	}
	return
}
