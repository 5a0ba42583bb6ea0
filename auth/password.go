package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"courier/errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, per OWASP recommendations.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 3
	argonParallelism = 2
	argonSaltLength  = 16
	argonKeyLength   = 32
)

type argonParams struct {
	version     int
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// HashPassword derives an Argon2id hash with a fresh random salt. The
// returned string embeds every parameter needed for later verification.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(errors.KindInternal, err, "generating salt")
	}

	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// ComparePassword re-derives the key from the candidate password with the
// stored parameters and compares in constant time.
func ComparePassword(password, encodedHash string) (bool, error) {
	params, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt,
		params.iterations, params.memory, params.parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeHash(encodedHash string) (argonParams, []byte, []byte, error) {
	var params argonParams
	var b64Salt, b64Key string

	n, err := fmt.Sscanf(encodedHash, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&params.version, &params.memory, &params.iterations, &params.parallelism, &b64Salt)
	if err != nil || n != 5 {
		return params, nil, nil, errors.Internal("malformed password hash")
	}
	if params.version != argon2.Version {
		return params, nil, nil, errors.Internal("unsupported argon2 version %d", params.version)
	}

	// Sscanf stops %s at whitespace, not '$'; split the tail by hand.
	for i := 0; i < len(b64Salt); i++ {
		if b64Salt[i] == '$' {
			b64Salt, b64Key = b64Salt[:i], b64Salt[i+1:]
			break
		}
	}
	if b64Key == "" {
		return params, nil, nil, errors.Internal("malformed password hash")
	}

	salt, err := base64.RawStdEncoding.DecodeString(b64Salt)
	if err != nil {
		return params, nil, nil, errors.Internal("malformed password hash salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(b64Key)
	if err != nil {
		return params, nil, nil, errors.Internal("malformed password hash key")
	}
	return params, salt, key, nil
}
