package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the data section encoding of a pcd file.
type PCDType int

const (
	// PCDAscii writes one whitespace separated point per line.
	PCDAscii PCDType = iota
	// PCDBinary writes little-endian float32 x,y,z followed by a packed uint32 rgb.
	PCDBinary
)

func (t PCDType) String() string {
	switch t {
	case PCDAscii:
		return "ascii"
	case PCDBinary:
		return "binary"
	default:
		return "unknown"
	}
}

func colorToPCDInt(c Color) uint32 {
	r, g, b := c.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func pcdIntToColor(v uint32) Color {
	return NewColor255(uint8(0xFF&(v>>16)), uint8(0xFF&(v>>8)), uint8(0xFF&v))
}

// WritePCD encodes the cloud as a PCD v0.7 document with x y z rgb fields.
// Coordinates are stored as float32 and colors as 8 bits per channel.
func WritePCD(c *Cloud, out io.Writer, pcdType PCDType) error {
	if err := c.Validate(); err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	n := c.Len()
	_, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F U\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n", n, n, pcdType)
	if err != nil {
		return err
	}

	buf := make([]byte, 16)
	for i := 0; i < n; i++ {
		p := c.Points[i]
		rgb := colorToPCDInt(c.Colors[i])
		switch pcdType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			binary.LittleEndian.PutUint32(buf[12:], rgb)
			_, err = w.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(w, "%f %f %f %d\n", p.X, p.Y, p.Z, rgb)
		default:
			return errors.Errorf("unsupported pcd type %d", pcdType)
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

type pcdHeader struct {
	fields []string
	types  []string
	points int
	data   PCDType
}

func (h pcdHeader) hasColor() bool {
	return len(h.fields) == 4 && (h.fields[3] == "rgb" || h.fields[3] == "rgba")
}

func parsePCDHeader(in *bufio.Reader) (pcdHeader, error) {
	var h pcdHeader
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return h, errors.Wrap(err, "reading pcd header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "VERSION", "SIZE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT":
		case "FIELDS":
			h.fields = parts[1:]
		case "TYPE":
			h.types = parts[1:]
		case "POINTS":
			if len(parts) != 2 {
				return h, errors.Errorf("malformed POINTS line %q", line)
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 {
				return h, errors.Errorf("invalid point count %q", parts[1])
			}
			h.points = n
		case "DATA":
			if len(parts) != 2 {
				return h, errors.Errorf("malformed DATA line %q", line)
			}
			switch parts[1] {
			case "ascii":
				h.data = PCDAscii
			case "binary":
				h.data = PCDBinary
			default:
				return h, errors.Errorf("unsupported pcd data encoding %q", parts[1])
			}
			if len(h.fields) < 3 || h.fields[0] != "x" || h.fields[1] != "y" || h.fields[2] != "z" {
				return h, errors.Errorf("unsupported pcd fields %v", h.fields)
			}
			return h, nil
		default:
			return h, errors.Errorf("unknown pcd header line %q", line)
		}
	}
}

// ReadPCD decodes a PCD document written with x y z [rgb] fields.
// Points without a color channel are given mid gray.
func ReadPCD(r io.Reader) (*Cloud, error) {
	in := bufio.NewReader(r)
	h, err := parsePCDHeader(in)
	if err != nil {
		return nil, err
	}
	switch h.data {
	case PCDBinary:
		return readPCDBinary(in, h)
	default:
		return readPCDAscii(in, h)
	}
}

var defaultPCDColor = Color{R: 0.5, G: 0.5, B: 0.5}

// maxPCDPrealloc bounds the capacity taken from an untrusted POINTS header.
const maxPCDPrealloc = 1 << 20

func readPCDAscii(in *bufio.Reader, h pcdHeader) (*Cloud, error) {
	c := NewWithCapacity(min(h.points, maxPCDPrealloc))
	for i := 0; i < h.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return nil, errors.Wrapf(err, "reading pcd point %d", i)
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			return nil, errors.Errorf("pcd point %d has %d values", i, len(parts))
		}
		var xyz [3]float64
		for k := 0; k < 3; k++ {
			xyz[k], err = strconv.ParseFloat(parts[k], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "pcd point %d", i)
			}
		}
		col := defaultPCDColor
		if h.hasColor() && len(parts) >= 4 {
			v, err := parsePCDColor(parts[3], h)
			if err != nil {
				return nil, errors.Wrapf(err, "pcd point %d color", i)
			}
			col = pcdIntToColor(v)
		}
		c.Append(r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, col)
	}
	return c, nil
}

// parsePCDColor accepts both integer packed rgb and the float-punned form
// some tools emit for TYPE F.
func parsePCDColor(s string, h pcdHeader) (uint32, error) {
	if len(h.types) == 4 && h.types[3] == "F" {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, err
		}
		return math.Float32bits(float32(f)), nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func readPCDBinary(in *bufio.Reader, h pcdHeader) (*Cloud, error) {
	stride := 4 * len(h.fields)
	if stride < 12 {
		return nil, errors.Errorf("unsupported pcd fields %v", h.fields)
	}
	buf := make([]byte, stride)
	c := NewWithCapacity(min(h.points, maxPCDPrealloc))
	for i := 0; i < h.points; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, errors.Wrapf(err, "reading pcd point %d", i)
		}
		p := r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
		}
		col := defaultPCDColor
		if h.hasColor() {
			col = pcdIntToColor(binary.LittleEndian.Uint32(buf[12:]))
		}
		c.Append(p, col)
	}
	return c, nil
}
