// Package token реализует генерацию и парсинг подписанных талонов (JWT, ES256).
//
// Maker описывает интерфейс подписи и проверки талона, привязанного к паре
// (клиент, дата выдачи). MakerImpl — реализация на ключе ECDSA P-256:
// ключ импортируется один раз при создании, а не на каждого клиента,
// так как импорт ключа заметно дороже пообъектной работы.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialClaims описывает клеймы подписанного талона.
// Subject — идентификатор клиента, ID (jti) — уникальный nonce талона.
type CredentialClaims struct {
	ServiceDate          string `json:"service_date"` // Дата выдачи в формате 2006-01-02
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс для генерации и парсинга подписанных талонов.
type Maker interface {
	// Sign подписывает талон для клиента на дату выдачи.
	Sign(customerUID, tokenID string, serviceDate time.Time, issuedAt, expiresAt time.Time) (string, error)
	// Parse проверяет подпись и возвращает клеймы талона.
	Parse(tokenStr string) (*CredentialClaims, error)
}
