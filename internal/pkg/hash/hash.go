// Package hash turns secrets into values that are safe to store and checks
// plaintext against them. Passwords use Argon2id or bcrypt; short-lived codes
// use a keyed HMAC so lookups stay cheap.
package hash

// Hash produces and verifies stored secret representations.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// New picks a password hasher by name ("argon2id" or "bcrypt"). Unknown names
// fall back to Argon2id.
func New(algorithm, pepper string, bcryptCost int) Hash {
	if algorithm == "bcrypt" {
		return NewBcrypt(bcryptCost, pepper)
	}

	return NewArgon2id(pepper)
}
