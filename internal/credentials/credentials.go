// Package credentials hashes and verifies account passwords.
//
// Passwords are salted with the username and a fixed pepper before hashing,
// the same convention the first version of the wiki used with MD5. New
// records use bcrypt; old 32-hex-digit MD5 records still verify.
package credentials

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const pepper = "gamma"

// ErrMismatch is returned by Verify when the password is wrong.
var ErrMismatch = errors.New("credential mismatch")

// Cost is the bcrypt cost used by Hash. Tests lower it.
var Cost = bcrypt.DefaultCost

func salted(username, password string) []byte {
	return []byte(username + pepper + password)
}

// bcryptInput folds inputs longer than the 72 bytes bcrypt reads so the
// tail of a long password still counts.
func bcryptInput(username, password string) []byte {
	in := salted(username, password)
	if len(in) > 72 {
		sum := sha256.Sum256(in)
		in = []byte(hex.EncodeToString(sum[:]))
	}
	return in
}

// Hash returns the stored form of password for username.
func Hash(username, password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(username, password), Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify checks password against the stored hash for username.
func Verify(username, password, stored string) error {
	if isLegacy(stored) {
		sum := md5.Sum(salted(username, password))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(stored)) == 1 {
			return nil
		}
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), bcryptInput(username, password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return err
	}
	return nil
}

// isLegacy reports whether stored is a hex MD5 digest.
func isLegacy(stored string) bool {
	if len(stored) != 32 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}
