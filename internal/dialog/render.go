package dialog

import (
	"image"
	"image/color"
	"strconv"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"hakurei.app/xdm/internal/xcb"
)

// promptMargin is the left margin of both prompts.
const promptMargin = 10

// DimensionError is returned if the dialog does not fit the display or its contents do not fit the dialog.
type DimensionError struct {
	Width, Height int
	// TooBig is true if the dialog exceeds the display.
	TooBig bool
}

func (e *DimensionError) Error() string {
	s := "dialog dimensions are too small"
	if e.TooBig {
		s = "dialog dimensions are too big"
	}
	return s + " (" + strconv.Itoa(e.Width) + "x" + strconv.Itoa(e.Height) + ")"
}

// Message returns a user-facing error message.
func (e *DimensionError) Message() string {
	if e.TooBig {
		return "dialog dimensions are too big!"
	}
	return "dialog dimensions are too small!"
}

// layout renders the dialog into an RGBA image.
type layout struct {
	width, height int
	face          font.Face
	// fontHeight is the ascent plus descent of face in pixels.
	fontHeight int

	background, greetColor, textColor color.RGBA
	greet, loginPrompt, passwordPrompt string

	img *image.RGBA
}

func (l *layout) measure(s string) int { return font.MeasureString(l.face, s).Ceil() }

// check reports whether every fixed element fits the dialog.
func (l *layout) check() error {
	if l.measure(l.greet) > l.width ||
		promptMargin+l.measure(l.loginPrompt) > l.width ||
		promptMargin+l.measure(l.passwordPrompt) > l.width ||
		l.height < 7*l.fontHeight {
		return &DimensionError{Width: l.width, Height: l.height}
	}
	return nil
}

// fit drops trailing characters of s until it is no wider than width.
func (l *layout) fit(s string, width int) string {
	for s != "" && l.measure(s) > width {
		_, n := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-n]
	}
	return s
}

func (l *layout) drawText(s string, c color.RGBA, x, y int) {
	if s == "" {
		return
	}
	d := font.Drawer{
		Dst:  l.img,
		Src:  image.NewUniform(c),
		Face: l.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// render draws the dialog with text in the username field.
func (l *layout) render(text string) *image.RGBA {
	if l.img == nil {
		l.img = image.NewRGBA(image.Rect(0, 0, l.width, l.height))
	}
	draw.Draw(l.img, l.img.Bounds(), image.NewUniform(l.background), image.Point{}, draw.Src)

	widthGreet, widthLogin := l.measure(l.greet), l.measure(l.loginPrompt)
	l.drawText(l.greet, l.greetColor, (l.width-widthGreet)/2, l.fontHeight)
	l.drawText(l.loginPrompt, l.textColor, promptMargin, 4*l.fontHeight)
	l.drawText(l.passwordPrompt, l.textColor, promptMargin, 6*l.fontHeight)
	l.drawText(l.fit(text, l.width-promptMargin-widthLogin), l.textColor, promptMargin+widthLogin, 4*l.fontHeight)
	return l.img
}

// zpixmap converts img to a 32 bits per pixel ZPixmap in the byte order of format.
func zpixmap(dst []byte, img *image.RGBA, format xcb.Format) ([]byte, int, error) {
	if format.BitsPerPixel != 32 || (format.Depth != 24 && format.Depth != 32) {
		return nil, 0, &ResourceError{Kind: "visual", Name: "depth " + strconv.Itoa(int(format.Depth)) +
			" at " + strconv.Itoa(format.BitsPerPixel) + " bits per pixel"}
	}

	b := img.Bounds()
	stride := b.Dx() * 4
	if n := stride * b.Dy(); cap(dst) < n {
		dst = make([]byte, n)
	} else {
		dst = dst[:n]
	}

	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+stride]
		row := dst[y*stride : (y+1)*stride]
		for x := 0; x < stride; x += 4 {
			r, g, bl := src[x], src[x+1], src[x+2]
			if format.LSBFirst {
				row[x], row[x+1], row[x+2], row[x+3] = bl, g, r, 0
			} else {
				row[x], row[x+1], row[x+2], row[x+3] = 0, r, g, bl
			}
		}
	}
	return dst, stride, nil
}
