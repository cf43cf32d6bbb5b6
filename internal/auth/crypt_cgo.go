//go:build cgo

package auth

/*
#cgo LDFLAGS: -lcrypt

#include <crypt.h>
#include <stdlib.h>
#include <string.h>

static int xdm_crypt_verify(const char *key, size_t key_len, const char *hash) {
	struct crypt_data *data;
	char *buf, *out;
	int ret = -1;

	if ((data = calloc(1, sizeof *data)) == NULL)
		return -1;
	if ((buf = calloc(1, key_len + 1)) == NULL) {
		free(data);
		return -1;
	}
	if (key_len > 0)
		memcpy(buf, key, key_len);

	out = crypt_r(buf, hash, data);
	if (out != NULL && out[0] != '*')
		ret = strcmp(out, hash) == 0;

	explicit_bzero(buf, key_len);
	explicit_bzero(data, sizeof *data);
	free(buf);
	free(data);
	return ret;
}
*/
import "C"

import "unsafe"

// verifyCrypt checks password through crypt(3), the system's canonical implementation.
func verifyCrypt(hash string, password []byte) error {
	h := C.CString(hash)
	defer C.free(unsafe.Pointer(h))

	var key *C.char
	if len(password) > 0 {
		key = (*C.char)(unsafe.Pointer(&password[0]))
	}
	switch C.xdm_crypt_verify(key, C.size_t(len(password)), h) {
	case 1:
		return nil
	case 0:
		return ErrMismatch
	default:
		return ErrUnsupported
	}
}
