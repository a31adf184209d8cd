package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
)

// PLY formats
const (
	FormatASCII              = "ascii"
	FormatBinaryLittleEndian = "binary_little_endian"
	FormatBinaryBigEndian    = "binary_big_endian"
)

// ErrInvalidPLY is wrapped by every structural error in a PLY file
var ErrInvalidPLY = errors.New("invalid PLY")

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // FormatASCII, FormatBinaryLittleEndian or FormatBinaryBigEndian
	Version  string // Usually "1.0"
	Elements []PLYElement
}

// PLYElement is one element block declared in the header
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string // Scalar type, or the item type of a list
	IsList   bool
	ListType string // For list properties, the type of the count
}

// Element returns the named element, or nil
func (h *PLYHeader) Element(name string) *PLYElement {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// propertyIndex returns the position of the first property with one of the given names
func (e *PLYElement) propertyIndex(names ...string) int {
	for i, prop := range e.Properties {
		for _, name := range names {
			if prop.Name == name {
				return i
			}
		}
	}
	return -1
}

// LoadPLY loads a PLY file as an indexed triangle mesh. Polygons are fan
// triangulated; vertex normals and a per-vertex material_index are kept when
// present.
func LoadPLY(filename string) (*geometry.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	mesh, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return mesh, nil
}

// ReadPLY decodes a PLY stream
func ReadPLY(r io.Reader) (*geometry.Mesh, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var values valueReader
	switch header.Format {
	case FormatASCII:
		values = &asciiReader{reader: reader}
	case FormatBinaryLittleEndian:
		values = &binaryReader{reader: reader, order: binary.LittleEndian}
	case FormatBinaryBigEndian:
		values = &binaryReader{reader: reader, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidPLY, header.Format)
	}

	builder := newMeshBuilder(header)
	for _, element := range header.Elements {
		for i := 0; i < element.Count; i++ {
			if err := builder.readRecord(values, &element, i); err != nil {
				return nil, fmt.Errorf("failed to read %s %d: %w", element.Name, i, err)
			}
		}
	}
	return builder.mesh()
}

// parsePLYHeader reads the header lines up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}

	magic, err := readLine(reader)
	if err != nil {
		return nil, err
	}
	if magic != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrInvalidPLY)
	}

	for {
		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: missing end_header", ErrInvalidPLY)
			}
			return nil, err
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: malformed format line %q", ErrInvalidPLY, line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: malformed element line %q", ErrInvalidPLY, line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: invalid element count %q", ErrInvalidPLY, parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("%w: property before element", ErrInvalidPLY)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			current := &header.Elements[len(header.Elements)-1]
			current.Properties = append(current.Properties, prop)
		default:
			return nil, fmt.Errorf("%w: unknown header keyword %q", ErrInvalidPLY, parts[0])
		}
	}

	if header.Format == "" {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidPLY)
	}
	return header, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("%w: invalid property definition", ErrInvalidPLY)
	}

	var prop PLYProperty
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("%w: invalid list property definition", ErrInvalidPLY)
		}
		prop = PLYProperty{IsList: true, ListType: parts[1], Type: parts[2], Name: parts[3]}
		if getTypeSize(prop.ListType) == 0 {
			return PLYProperty{}, fmt.Errorf("%w: unsupported list count type %q", ErrInvalidPLY, prop.ListType)
		}
	} else {
		prop = PLYProperty{Type: parts[0], Name: parts[1]}
	}

	if getTypeSize(prop.Type) == 0 {
		return PLYProperty{}, fmt.Errorf("%w: unsupported data type %q", ErrInvalidPLY, prop.Type)
	}
	return prop, nil
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "double", "float64":
		return 8
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// valueReader yields the next scalar of the body regardless of encoding
type valueReader interface {
	next(dataType string) (float64, error)
}

// asciiReader reads whitespace separated numbers
type asciiReader struct {
	reader *bufio.Reader
}

func (a *asciiReader) next(dataType string) (float64, error) {
	var token []byte
	for {
		b, err := a.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(token) > 0 {
				break
			}
			return 0, fmt.Errorf("%w: unexpected end of data", ErrInvalidPLY)
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if len(token) > 0 {
				break
			}
			continue
		}
		token = append(token, b)
	}

	value, err := strconv.ParseFloat(string(token), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value %q", ErrInvalidPLY, dataType, token)
	}
	return value, nil
}

// binaryReader decodes fixed size scalars in either byte order
type binaryReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryReader) next(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	data := b.buf[:size]
	if _, err := io.ReadFull(b.reader, data); err != nil {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrInvalidPLY)
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(data[0])), nil
	case "uchar", "uint8":
		return float64(data[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(data))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(data)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(data))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(data)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	default:
		return math.Float64frombits(b.order.Uint64(data)), nil
	}
}

// meshBuilder collects vertex and face records into mesh arrays
type meshBuilder struct {
	positions     []core.Vec3
	normals       []core.Vec3
	materialIndex []uint8
	indices       []int

	// property positions within the vertex record
	position [3]int
	normal   [3]int
	material int
	faceList int
}

func newMeshBuilder(header *PLYHeader) *meshBuilder {
	b := &meshBuilder{
		position: [3]int{-1, -1, -1},
		normal:   [3]int{-1, -1, -1},
		material: -1,
		faceList: -1,
	}

	if vertex := header.Element("vertex"); vertex != nil {
		b.position = [3]int{vertex.propertyIndex("x"), vertex.propertyIndex("y"), vertex.propertyIndex("z")}
		b.normal = [3]int{vertex.propertyIndex("nx"), vertex.propertyIndex("ny"), vertex.propertyIndex("nz")}
		b.material = vertex.propertyIndex("material_index")
		b.positions = make([]core.Vec3, 0, vertex.Count)
	}
	if face := header.Element("face"); face != nil {
		b.faceList = face.propertyIndex("vertex_indices", "vertex_index")
		b.indices = make([]int, 0, face.Count*3)
	}
	return b
}

func (b *meshBuilder) hasNormals() bool {
	return b.normal[0] >= 0 && b.normal[1] >= 0 && b.normal[2] >= 0
}

// readRecord consumes one record of element and keeps what the mesh needs
func (b *meshBuilder) readRecord(values valueReader, element *PLYElement, index int) error {
	var scalars []float64
	var list []int

	for i, prop := range element.Properties {
		if !prop.IsList {
			value, err := values.next(prop.Type)
			if err != nil {
				return err
			}
			scalars = append(scalars, value)
			continue
		}

		scalars = append(scalars, 0)
		count, err := values.next(prop.ListType)
		if err != nil {
			return err
		}
		if count < 0 {
			return fmt.Errorf("%w: negative list length", ErrInvalidPLY)
		}
		keep := element.Name == "face" && i == b.faceList
		for j := 0; j < int(count); j++ {
			item, err := values.next(prop.Type)
			if err != nil {
				return err
			}
			if keep {
				list = append(list, int(item))
			}
		}
	}

	switch element.Name {
	case "vertex":
		return b.addVertex(scalars)
	case "face":
		return b.addFace(list, index)
	}
	return nil
}

func (b *meshBuilder) addVertex(scalars []float64) error {
	if b.position[0] < 0 || b.position[1] < 0 || b.position[2] < 0 {
		return fmt.Errorf("%w: vertex element lacks x, y, z", ErrInvalidPLY)
	}
	b.positions = append(b.positions, core.NewVec3(scalars[b.position[0]], scalars[b.position[1]], scalars[b.position[2]]))

	if b.hasNormals() {
		b.normals = append(b.normals, core.NewVec3(scalars[b.normal[0]], scalars[b.normal[1]], scalars[b.normal[2]]))
	}
	if b.material >= 0 {
		value := scalars[b.material]
		if value < 0 || value > math.MaxUint8 {
			return fmt.Errorf("%w: material_index %g out of range", ErrInvalidPLY, value)
		}
		b.materialIndex = append(b.materialIndex, uint8(value))
	}
	return nil
}

// addFace fan triangulates a polygon
func (b *meshBuilder) addFace(list []int, index int) error {
	if b.faceList < 0 {
		return fmt.Errorf("%w: face element lacks vertex_indices", ErrInvalidPLY)
	}
	if len(list) < 3 {
		return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidPLY, index, len(list))
	}
	for i := 1; i+1 < len(list); i++ {
		b.indices = append(b.indices, list[0], list[i], list[i+1])
	}
	return nil
}

func (b *meshBuilder) mesh() (*geometry.Mesh, error) {
	for _, i := range b.indices {
		if i < 0 || i >= len(b.positions) {
			return nil, fmt.Errorf("%w: face index %d out of range for %d vertices", ErrInvalidPLY, i, len(b.positions))
		}
	}

	mesh := geometry.NewMesh(b.positions, b.indices)
	if b.hasNormals() {
		mesh.Normals = b.normals
	} else {
		mesh.ComputeVertexNormals()
	}
	mesh.MaterialIndex = b.materialIndex
	return mesh, nil
}
