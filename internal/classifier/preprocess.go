package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// InputSize is the square input resolution the backbone was trained on.
const InputSize = 224

// Normalization holds per-channel RGB statistics applied after scaling
// pixels to [0,1].
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

var (
	// ImageNetNormalization matches torchvision's ImageNet statistics.
	ImageNetNormalization = Normalization{
		Mean: [3]float32{0.485, 0.456, 0.406},
		Std:  [3]float32{0.229, 0.224, 0.225},
	}
	// UnitNormalization leaves pixels in [0,1].
	UnitNormalization = Normalization{
		Std: [3]float32{1, 1, 1},
	}
)

// NormalizationByName resolves a config value. Unknown names fall back to ImageNet.
func NormalizationByName(name string) Normalization {
	if name == "none" || name == "unit" {
		return UnitNormalization
	}
	return ImageNetNormalization
}

// MaxPixels caps the decoded size of an image. Compressed formats can
// declare dimensions far larger than the upload itself.
const MaxPixels = 40_000_000

// Preprocess decodes an image, resizes it to InputSize x InputSize with
// bilinear interpolation and returns a normalized CHW float32 tensor.
func Preprocess(data []byte, n Normalization) ([]float32, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	const plane = InputSize * InputSize
	out := make([]float32, 3*plane)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			i := dst.PixOffset(x, y)
			p := y*InputSize + x
			for c := 0; c < 3; c++ {
				v := float32(dst.Pix[i+c]) / 255
				out[c*plane+p] = (v - n.Mean[c]) / n.Std[c]
			}
		}
	}
	return out, nil
}
