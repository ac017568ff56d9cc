// Package password はbcryptによるパスワードのハッシュ化と検証を提供する。
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash は平文パスワードのbcryptハッシュを生成する。
// 生成のたびにソルトが変わるため、同じ入力でも結果は毎回異なる。
func Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify は平文パスワードがハッシュと一致するかを検証する。
// 不一致・ハッシュ形式不正はいずれもfalseを返す。
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
