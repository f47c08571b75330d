package auth

import "golang.org/x/crypto/bcrypt"

// bcrypt work factor used for all stored credentials.
const hashCost = 10

// HashPassword derives a salted one-way hash from a plaintext password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
// A mismatch is not an error, it is simply false.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
