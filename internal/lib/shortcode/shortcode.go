// Package shortcode генерирует короткие коды талонов для ручного ввода в киоске.
//
// Алфавит не содержит визуально похожих символов (0/O, 1/I). Размер алфавита
// равен 32 и делит диапазон байта нацело, поэтому выборка по остатку не даёт
// смещения. 8 символов по 5 бит дают 40 бит энтропии.
package shortcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet — допустимые символы короткого кода.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length — длина короткого кода.
const Length = 8

// Generate возвращает новый случайный короткий код.
func Generate() (string, error) {
	const op = "shortcode.Generate"
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	code := make([]byte, Length)
	for i, b := range buf {
		code[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(code), nil
}
