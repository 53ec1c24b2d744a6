package output

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // sprite decoders
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const maxSpriteBytes = 2 << 20

// FetchImage downloads and decodes a still image.
func FetchImage(ctx context.Context, client *http.Client, url string) (image.Image, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxSpriteBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Sprite renders img as terminal half-blocks, width cells wide. Each cell
// shows two vertical pixels; transparent pixels stay blank.
func Sprite(img image.Image, width int) string {
	if img == nil || width <= 0 {
		return ""
	}
	bounds := cropTransparent(img)
	if bounds.Empty() {
		return ""
	}

	w := min(width, bounds.Dx())
	h := max(bounds.Dy()*w/bounds.Dx(), 2)
	h += h % 2

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < h; y += 2 {
		for x := range w {
			sb.WriteString(halfBlock(dst.NRGBAAt(x, y), dst.NRGBAAt(x, y+1)))
		}
		if y+2 < h {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func halfBlock(top, bottom color.NRGBA) string {
	topOn, bottomOn := top.A >= 128, bottom.A >= 128
	switch {
	case topOn && bottomOn:
		return lipgloss.NewStyle().Foreground(hex(top)).Background(hex(bottom)).Render("▀")
	case topOn:
		return lipgloss.NewStyle().Foreground(hex(top)).Render("▀")
	case bottomOn:
		return lipgloss.NewStyle().Foreground(hex(bottom)).Render("▄")
	default:
		return " "
	}
}

func hex(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

// cropTransparent trims fully transparent margins, which sprites carry a lot of.
func cropTransparent(img image.Image) image.Rectangle {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0x8000 {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x+1), max(maxY, y+1)
		}
	}
	if minX >= maxX || minY >= maxY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}
