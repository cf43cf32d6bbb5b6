package dialog

import (
	"encoding/hex"
	"image/color"
	"os"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// builtinFonts maps font names to embedded TrueType data.
var builtinFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gomono":    gomono.TTF,
	"gobold":    gobold.TTF,
}

// ResourceError is returned when a font or colour cannot be loaded.
type ResourceError struct {
	Kind string
	Name string
	Err  error
}

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return "unable to load " + e.Kind + " " + e.Name
	}
	return "unable to load " + e.Kind + " " + e.Name + ": " + e.Err.Error()
}

// Message returns a user-facing error message.
func (e *ResourceError) Message() string { return "unable to load " + e.Kind + " \"" + e.Name + "\"" }

// loadFont returns a face for a builtin font name or a font file pathname.
func loadFont(name string, size float64) (font.Face, error) {
	data, ok := builtinFonts[strings.ToLower(name)]
	if !ok {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return nil, &ResourceError{"font", name, err}
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, &ResourceError{"font", name, err}
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, &ResourceError{"font", name, err}
	}
	return face, nil
}

// parseColor resolves an SVG colour name or a #rrggbb value.
func parseColor(name string) (color.RGBA, error) {
	if c, ok := colornames.Map[strings.ToLower(name)]; ok {
		return c, nil
	}
	if s, ok := strings.CutPrefix(name, "#"); ok && len(s) == 6 {
		if b, err := hex.DecodeString(s); err == nil {
			return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
		}
	}
	return color.RGBA{}, &ResourceError{Kind: "color", Name: name}
}

// pixel returns the TrueColor pixel value of c.
func pixel(c color.RGBA) uint32 { return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B) }
