package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/akarpov87/idvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Changing them only affects newly hashed passwords;
// existing digests keep the parameters recorded in their encoding.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// HashPassword derives an argon2id digest from the plaintext password and
// a fresh random salt, encoded in the standard $argon2id$... form. The
// plaintext copy is zeroed once the key is derived.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", common.ErrorInvalidInput)
	}

	salt := common.GenerateRandByteArray(argonSaltLen)

	plain := []byte(password)
	key := argon2.IDKey(plain, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	common.WipeByteArray(plain)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	common.WipeByteArray(key)

	return encoded, nil
}

// VerifyPassword recomputes the digest of password using the parameters
// and salt stored in encoded and compares in constant time. It returns
// false for a mismatch and an error only for an undecodable digest.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed password digest")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("malformed password digest: %v", err)
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("malformed password digest: %v", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed password digest: %v", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed password digest: %v", err)
	}

	plain := []byte(password)
	got := argon2.IDKey(plain, salt, timeCost, memory, threads, uint32(len(want)))
	common.WipeByteArray(plain)

	match := subtle.ConstantTimeCompare(got, want) == 1
	common.WipeByteArray(got)
	return match, nil
}
