package crypto

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hash.go - пароль администратора и общие секреты.
//
// Пароль хранится только как bcrypt хеш (ADMIN_PASSWORD_HASH), открытый текст
// появляется лишь в condorctl hash-password и в заголовке Basic auth.

var (
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordMismatch = errors.New("password does not match hash")
	ErrInvalidHash      = errors.New("invalid password hash format")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

const (
	// DefaultCost - стоимость bcrypt для пароля администратора
	DefaultCost = 12

	// MaxPasswordLength - bcrypt учитывает только первые 72 байта
	MaxPasswordLength = 72
)

// HashPassword хеширует пароль с DefaultCost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost хеширует пароль; cost приводится к [bcrypt.MinCost, bcrypt.MaxCost]
func HashPasswordWithCost(password string, cost int) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), clampCost(cost))
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword сверяет пароль с хешем
func VerifyPassword(password, hash string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if !IsHash(hash) {
		return ErrInvalidHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// IsHash проверяет, что строка - корректный bcrypt хеш
func IsHash(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}

// AdminCredentials - учетная запись администратора из конфигурации
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Configured - заданы и имя, и хеш
func (c AdminCredentials) Configured() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// Verify проверяет пару имя/пароль.
// bcrypt выполняется и при неверном имени, время ответа от имени не зависит.
func (c AdminCredentials) Verify(username, password string) error {
	if !c.Configured() {
		return ErrInvalidHash
	}

	userMatch := SecretsEqual(username, c.Username)
	if err := VerifyPassword(password, c.PasswordHash); err != nil {
		return err
	}
	if !userMatch {
		return ErrPasswordMismatch
	}
	return nil
}

// SecretsEqual сравнивает секреты за постоянное время; пустой expected не совпадает ни с чем
func SecretsEqual(got, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func checkPassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

func clampCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}
