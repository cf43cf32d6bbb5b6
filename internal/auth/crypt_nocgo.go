//go:build !cgo

package auth

func verifyCrypt(string, []byte) error { return ErrUnsupported }
