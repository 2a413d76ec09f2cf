package cryptoutil

import "errors"

var (
	errInvalidAddressLength   = errors.New("cryptoutil: decoded address has the wrong length")
	errInvalidAddressChecksum = errors.New("cryptoutil: address checksum mismatch")
	errInvalidAddressVersion  = errors.New("cryptoutil: unsupported address version byte")
)
