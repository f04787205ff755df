package encrypt

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt.DefaultCost = 10
const bcryptCost = bcrypt.DefaultCost

var (
	// ErrCodeMismatch access code 比對失敗
	ErrCodeMismatch = errors.New("access code does not match")
	// ErrEmptyCode access code 不能為空
	ErrEmptyCode = errors.New("access code is empty")
)

// HashAccessCode 將專案 access code 做 bcrypt 雜湊後存 DB
func HashAccessCode(code string) (string, error) {
	if code == "" {
		return "", ErrEmptyCode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareAccessCode 比對 tester 輸入的 access code 與儲存的雜湊
func CompareAccessCode(hash, code string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrCodeMismatch
	}
	return nil
}
