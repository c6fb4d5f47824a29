package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes the secret half of a service key ("<name>.<secret>")
// with bcrypt.  The result goes into SERVICE_KEYS as "<name>:<hash>";
// `docctl hash-service-key` prints it in that form.
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret reports whether the secret presented in an X-Service-Key
// header matches the configured hash for that service.
func VerifySecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
