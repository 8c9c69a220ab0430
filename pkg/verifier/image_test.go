package verifier

import (
	"bytes"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(seed int64, size int) Image {
	r := rand.New(rand.NewSource(seed))
	data := make([]byte, size)
	r.Read(data)
	return data
}

func TestIsSimilarTo(t *testing.T) {
	a := randomImage(1, 64*1024)
	b := randomImage(2, 64*1024)

	similar, score, err := a.IsSimilarTo(append(Image(nil), a...), 96)
	require.NoError(t, err)
	assert.True(t, similar, "identical images scored %d", score)

	similar, score, err = a.IsSimilarTo(b, 96)
	require.NoError(t, err)
	assert.False(t, similar, "unrelated images scored %d", score)
}

func TestIsSimilarToInvalidThreshold(t *testing.T) {
	a := randomImage(3, 64*1024)

	for _, threshold := range []int{0, 101, -5} {
		_, _, err := a.IsSimilarTo(a, threshold)
		assert.Error(t, err, "threshold %d", threshold)
	}
}

func TestIsSimilarToTooSmall(t *testing.T) {
	small := Image("tiny")

	_, _, err := small.IsSimilarTo(small, 96)
	assert.Error(t, err)
}

func TestAddCaption(t *testing.T) {
	img := Image(testPNG(t, 90))

	captioned, err := img.AddCaption("login  http://localhost:8081")
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(captioned))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 65, decoded.Bounds().Dy())

	r, g, b, _ := decoded.At(0, 64).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "caption band should be white at its edge")
}

func TestAddCaptionInvalidPNG(t *testing.T) {
	_, err := Image("not a png").AddCaption("x")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.png")

	require.NoError(t, Image("first").WriteFile(path))
	require.NoError(t, Image("second").WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	assert.ErrorIs(t, Image(nil).WriteFile(path), ErrNoScreenshot)
	assert.Error(t, Image("x").WriteFile(filepath.Join(dir, "missing", "signup.png")))
}
