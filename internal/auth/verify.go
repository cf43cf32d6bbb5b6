package auth

import (
	"errors"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch is returned by verify if the password does not match the hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrLocked is returned by verify for a locked or disabled credential.
	ErrLocked = errors.New("account locked")
	// ErrUnsupported is returned by verify if no implementation of the hash scheme is available.
	ErrUnsupported = errors.New("unsupported hash scheme")
)

// verify checks password against hash in the scheme selected by its prefix.
func verify(hash string, password []byte) error {
	switch {
	case hash[0] == '!' || hash[0] == '*':
		return ErrLocked

	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
		if err := bcrypt.CompareHashAndPassword([]byte(hash), password); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrMismatch
			}
			return err
		}
		return nil

	case strings.HasPrefix(hash, "$1$"),
		strings.HasPrefix(hash, "$5$"),
		strings.HasPrefix(hash, "$6$"):
		if err := crypt.NewFromHash(hash).Verify(hash, password); err != nil {
			if errors.Is(err, crypt.ErrKeyMismatch) {
				return ErrMismatch
			}
			return err
		}
		return nil

	default:
		return verifyCrypt(hash, password)
	}
}
