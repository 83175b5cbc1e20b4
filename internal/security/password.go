package security

import "golang.org/x/crypto/bcrypt"

// Cost is fixed at 10, matching the salt rounds the stored hashes were
// produced with. Changing it only affects newly created hashes.
const Cost = 10

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
