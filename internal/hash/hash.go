package hash

import "golang.org/x/crypto/bcrypt"

// Password hashes the plaintext before it is persisted. Callers hash
// explicitly, there is no save hook hiding this step.
func Password(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashBytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
