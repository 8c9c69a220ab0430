package verifier

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/glaslos/ssdeep"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
)

// Image is PNG data as captured from the browser.
type Image []byte

// WriteFile writes the image to path, replacing any existing file.
// The parent directory must already exist.
func (img Image) WriteFile(path string) error {
	if len(img) == 0 {
		return ErrNoScreenshot
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(img); err != nil {
		return err
	}

	return file.Close()
}

// IsSimilarTo compares two images with ssdeep and reports whether their
// score reaches similarityThreshold (1-100).
func (img Image) IsSimilarTo(other Image, similarityThreshold int) (bool, int, error) {
	if similarityThreshold < 1 || similarityThreshold > 100 {
		return false, 0, fmt.Errorf("invalid similarity threshold: %d. Must be between 1 and 100", similarityThreshold)
	}

	hash1, err := ssdeep.FuzzyBytes(img)
	if err != nil {
		return false, 0, err
	}

	hash2, err := ssdeep.FuzzyBytes(other)
	if err != nil {
		return false, 0, err
	}

	score, err := ssdeep.Distance(hash1, hash2)
	if err != nil {
		return false, 0, err
	}

	return score >= similarityThreshold, score, nil
}

// AddCaption adds a white band with caption to the bottom of the image.
func (img Image) AddCaption(caption string) (Image, error) {
	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	face, err := captionFace()
	if err != nil {
		return nil, err
	}

	const padding = 20
	const borderSize = 1

	w := decoded.Bounds().Dx()
	h := decoded.Bounds().Dy() + padding*2 + borderSize
	dc := gg.NewContext(w, h)

	dc.DrawImage(decoded, 0, 0)

	yLine := float64(decoded.Bounds().Dy())
	dc.SetColor(color.White)
	dc.DrawRectangle(0, yLine, float64(w), float64(padding*2+borderSize))
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(float64(borderSize))
	dc.DrawLine(0, yLine, float64(w), yLine)
	dc.Stroke()
	dc.SetFontFace(face)
	dc.DrawStringAnchored(caption, float64(w)/2, yLine+float64(padding), 0.5, 0.35)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

var (
	faceOnce sync.Once
	faceFont *truetype.Font
	faceErr  error
)

func captionFace() (font.Face, error) {
	faceOnce.Do(func() {
		faceFont, faceErr = truetype.Parse(gomedium.TTF)
	})
	if faceErr != nil {
		return nil, fmt.Errorf("failed to parse caption font: %w", faceErr)
	}

	return truetype.NewFace(faceFont, &truetype.Options{
		Size: 14,
	}), nil
}
