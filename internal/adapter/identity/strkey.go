package identity

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
)

// versionAccountID is the strkey version byte of an ed25519 public key ('G')
const versionAccountID byte = 6 << 3

// ErrInvalidStellarAddress is returned for strings that are not account strkeys
var ErrInvalidStellarAddress = errors.New("invalid stellar address")

// EncodeStellarAddress renders a 32-byte ed25519 public key as a G... strkey:
// base32(version || key || crc16-xmodem little-endian)
func EncodeStellarAddress(publicKey []byte) string {
	raw := make([]byte, 0, 1+len(publicKey)+2)
	raw = append(raw, versionAccountID)
	raw = append(raw, publicKey...)
	raw = binary.LittleEndian.AppendUint16(raw, crc16XModem(raw))

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
}

// DecodeStellarAddress returns the ed25519 public key of a G... strkey
func DecodeStellarAddress(address string) ([]byte, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(address)
	if err != nil || len(raw) != 35 || raw[0] != versionAccountID {
		return nil, ErrInvalidStellarAddress
	}

	payload, checksum := raw[:33], binary.LittleEndian.Uint16(raw[33:])
	if crc16XModem(payload) != checksum {
		return nil, ErrInvalidStellarAddress
	}

	return payload[1:], nil
}

func crc16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
