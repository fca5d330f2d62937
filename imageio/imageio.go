// Package imageio decodes uploaded images and prepares them for
// reconstruction.
package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	resize "github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/stevecastle/recon3d/projection"
)

// DefaultSize is the square edge uploads are resized to.
const DefaultSize = 384

var (
	// ErrUnsupportedFormat is returned for image formats with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyImage is returned for zero-area images.
	ErrEmptyImage = errors.New("empty image")
)

// Decode reads one image. HEIC/HEIF uploads are recognized and rejected.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(12); isHEIF(head) {
		return nil, "heic", fmt.Errorf("%w: heic", ErrUnsupportedFormat)
	}
	img, format, err := image.Decode(br)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, format, fmt.Errorf("decode %s image: %w", format, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// isHEIF detects an ISO-BMFF ftyp box with a HEIF brand.
func isHEIF(head []byte) bool {
	if len(head) < 12 || !bytes.Equal(head[4:8], []byte("ftyp")) {
		return false
	}
	switch strings.ToLower(string(head[8:12])) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heim", "heis":
		return true
	}
	return false
}

// Prepare flattens transparency over white and resizes img to size x size.
func Prepare(img image.Image, size int) projection.ColorImage {
	if size <= 0 {
		size = DefaultSize
	}
	b := img.Bounds()
	whiteBG := image.NewRGBA(b)
	draw.Draw(whiteBG, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(whiteBG, b, img, b.Min, draw.Over)

	var src image.Image = whiteBG
	if b.Dx() != size || b.Dy() != size {
		src = resize.Resize(uint(size), uint(size), whiteBG, resize.Bilinear)
	}
	return projection.ColorImageFromImage(src)
}

// Load decodes r and prepares it at size.
func Load(r io.Reader, size int) (projection.ColorImage, error) {
	img, _, err := Decode(r)
	if err != nil {
		return projection.ColorImage{}, err
	}
	return Prepare(img, size), nil
}
