// Package auth holds the employee credential types and password hashing.
package auth

import "golang.org/x/crypto/bcrypt"

// Employee is a login principal. PasswordHash is a salted bcrypt hash;
// plaintext passwords are never stored.
type Employee struct {
	Username     string
	PasswordHash string
}

// HashPassword derives a salted bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the candidate password matches the
// stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
