// Package thumbnail holds the decoded thumbnail buffer shared by the cache,
// the persistent store and the decode service.
package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// Quality used when a thumbnail is encoded for the persistent store.
const Quality = 85

var ErrEmpty = errors.New("thumbnail: empty image")

// Thumbnail is a decoded, owned RGBA buffer. Once handed to a cache it must
// be treated as read-only.
type Thumbnail struct {
	Image  *image.RGBA
	Width  int
	Height int
}

// Status is the live metadata of a file as reported by the decode service.
type Status struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
	// Width and Height are the source image dimensions, zero when unknown.
	Width  int
	Height int
}

// New copies img into a freshly allocated RGBA buffer.
func New(img image.Image) (*Thumbnail, error) {
	if img == nil {
		return nil, ErrEmpty
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmpty
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Thumbnail{Image: dst, Width: b.Dx(), Height: b.Dy()}, nil
}

// ByteSize is the amount of pixel memory owned by t.
func (t *Thumbnail) ByteSize() int64 {
	if t == nil || t.Image == nil {
		return 0
	}
	return int64(len(t.Image.Pix))
}

// Encode serialises t as a JPEG.
func Encode(t *Thumbnail) ([]byte, error) {
	if t == nil || t.Image == nil {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, t.Image, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Thumbnail, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return New(img)
}

// LoadImage decodes the image file at path with every registered decoder.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// ScaleToWidth shrinks img so that it is at most maxWidth pixels wide,
// keeping the aspect ratio. Smaller images are copied unscaled.
func ScaleToWidth(img image.Image, maxWidth int) (*Thumbnail, error) {
	if img == nil {
		return nil, ErrEmpty
	}
	srcBounds := img.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, ErrEmpty
	}
	if maxWidth <= 0 || srcW <= maxWidth {
		return New(img)
	}

	scaledW := maxWidth
	scaledH := int(float64(srcH) * float64(maxWidth) / float64(srcW))
	if scaledH < 1 {
		scaledH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	// ApproxBiLinear for speed
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, srcBounds, draw.Over, nil)
	return &Thumbnail{Image: dst, Width: scaledW, Height: scaledH}, nil
}

// Letterbox fits img into a size x size black square, centred.
func Letterbox(img image.Image, size int) (*Thumbnail, error) {
	if img == nil || size <= 0 {
		return nil, ErrEmpty
	}
	srcBounds := img.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, ErrEmpty
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{image.Black}, image.Point{}, draw.Src)

	var scaledW, scaledH int
	ratio := float64(srcW) / float64(srcH)
	if ratio > 1 {
		// Landscape
		scaledW = size
		scaledH = int(float64(size) / ratio)
	} else {
		// Portrait or square
		scaledH = size
		scaledW = int(float64(size) * ratio)
	}

	xBase := (size - scaledW) / 2
	yBase := (size - scaledH) / 2
	targetRect := image.Rect(xBase, yBase, xBase+scaledW, yBase+scaledH)
	draw.ApproxBiLinear.Scale(dst, targetRect, img, srcBounds, draw.Over, nil)

	return &Thumbnail{Image: dst, Width: size, Height: size}, nil
}
