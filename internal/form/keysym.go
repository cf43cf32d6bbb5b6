package form

import "unicode"

// Keysym is an X keysym value.
type Keysym uint32

const (
	NoSymbol        Keysym = 0
	KeysymBackSpace Keysym = 0xff08
	KeysymReturn    Keysym = 0xff0d
	KeysymKPSpace   Keysym = 0xff80
	KeysymKPEnter   Keysym = 0xff8d
	KeysymKPEqual   Keysym = 0xffbd

	keysymKPMultiply Keysym = 0xffaa
	keysymKP9        Keysym = 0xffb9

	keysymUnicode Keysym = 0x01000000
)

// Modifier masks of a key event state.
const (
	ShiftMask uint16 = 1 << 0
	LockMask  uint16 = 1 << 1
	Mod2Mask  uint16 = 1 << 4
)

// IsKeypad reports whether k is a keypad keysym.
func (k Keysym) IsKeypad() bool { return k >= KeysymKPSpace && k <= KeysymKPEqual }

// Rune returns the printable character produced by k.
func (k Keysym) Rune() (rune, bool) {
	var r rune
	switch {
	case k >= 0x20 && k <= 0x7e, k >= 0xa0 && k <= 0xff:
		return rune(k), true
	case k == KeysymKPSpace:
		return ' ', true
	case k >= keysymKPMultiply && k <= keysymKP9:
		return rune(k - KeysymKPSpace), true
	case k == KeysymKPEqual:
		return '=', true
	case k&0xff000000 == keysymUnicode:
		r = rune(k &^ keysymUnicode)
	default:
		return 0, false
	}
	if r > unicode.MaxRune || !unicode.IsPrint(r) {
		return 0, false
	}
	return r, true
}

// isLetter reports whether k is an alphabetic Latin-1 keysym.
func (k Keysym) isLetter() bool {
	if k > 0xff {
		return false
	}
	upper, lower := unicode.ToUpper(rune(k)), unicode.ToLower(rune(k))
	return upper != lower && upper <= 0xff && lower <= 0xff
}

// Resolve selects the keysym of a key press from the first two columns of its keycode.
func Resolve(unshifted, shifted Keysym, state uint16) Keysym {
	if shifted == NoSymbol {
		shifted = unshifted
		if unshifted.isLetter() {
			unshifted = Keysym(unicode.ToLower(rune(unshifted)))
			shifted = Keysym(unicode.ToUpper(rune(unshifted)))
		}
	}

	if state&Mod2Mask != 0 && shifted.IsKeypad() {
		if state&ShiftMask != 0 {
			return unshifted
		}
		return shifted
	}

	shift := state&ShiftMask != 0
	if state&LockMask != 0 && unshifted.isLetter() {
		shift = !shift
	}
	if shift {
		return shifted
	}
	return unshifted
}
