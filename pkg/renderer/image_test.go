package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

func TestToImage_FlipsRowsAndEncodesSRGB(t *testing.T) {
	acc := NewAccumulator(2, 2)
	acc.Accumulate(0, 0, core.NewVec3(1, 0, 0)) // bottom-left
	acc.Accumulate(1, 1, core.NewVec3(0, 0, 4)) // top-right, clamped
	acc.Accumulate(0, 1, core.Splat(0.5))       // top-left
	acc.CompletePass()

	img := ToImage(acc)
	require.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 1))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(1, 0))
	// linear 0.5 encodes to about 0.735 in sRGB
	assert.Equal(t, color.RGBA{188, 188, 188, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 1))
}

func TestUpscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(1, 0, color.RGBA{0, 0, 255, 255})

	nearest := Upscale(src, 4, 2, false)
	require.Equal(t, image.Rect(0, 0, 4, 2), nearest.Bounds())
	for y := 0; y < 2; y++ {
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, nearest.RGBAAt(0, y))
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, nearest.RGBAAt(1, y))
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, nearest.RGBAAt(2, y))
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, nearest.RGBAAt(3, y))
	}

	// Bilinear blends across the boundary
	smooth := Upscale(src, 4, 2, true)
	mid := smooth.RGBAAt(1, 0)
	assert.Greater(t, mid.B, uint8(0))
	assert.Greater(t, mid.R, uint8(0))
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		format  string
		wantErr bool
	}{
		{"out.png", FormatPNG, false},
		{"OUT.PNG", FormatPNG, false},
		{"frame.bmp", FormatBMP, false},
		{"frame.tif", FormatTIFF, false},
		{"frame.tiff", FormatTIFF, false},
		{"frame.jpg", "", true},
		{"frame", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestWriteImage_Formats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	src.SetRGBA(2, 1, color.RGBA{10, 20, 30, 255})

	decoders := map[string]func(*bytes.Reader) (image.Image, error){
		FormatPNG:  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		FormatBMP:  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
		FormatTIFF: func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
	}

	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteImage(&buf, src, format))

			decoded, err := decode(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), decoded.Bounds())

			r, g, b, _ := decoded.At(2, 1).RGBA()
			assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
		})
	}

	assert.Error(t, WriteImage(&bytes.Buffer{}, src, "gif"))
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))

	path := filepath.Join(dir, "render.png")
	require.NoError(t, SaveImage(path, src))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SaveImage(filepath.Join(dir, "render.xyz"), src))
}
