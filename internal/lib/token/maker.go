package token

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MakerImpl реализует интерфейс Maker на асимметричной подписи ECDSA P-256.
type MakerImpl struct {
	issuer     string            // Издатель, клейм iss
	privateKey *ecdsa.PrivateKey // Приватный ключ, неизменен на время прогона
	dateLayout string            // Формат клейма service_date
}

// NewMaker парсит PEM с приватным ключом ECDSA и создаёт MakerImpl.
// Вызывается один раз в начале прогона выдачи.
func NewMaker(issuer string, privateKeyPEM []byte) (*MakerImpl, error) {
	const op = "token.NewMaker"
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &MakerImpl{
		issuer:     issuer,
		privateKey: key,
		dateLayout: "2006-01-02",
	}, nil
}

// Sign подписывает талон клиента на дату выдачи методом ES256.
func (m *MakerImpl) Sign(customerUID, tokenID string, serviceDate time.Time, issuedAt, expiresAt time.Time) (string, error) {
	const op = "token.Sign"
	claims := CredentialClaims{
		ServiceDate: serviceDate.Format(m.dateLayout),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   customerUID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := tok.SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Parse проверяет подпись публичной частью ключа и возвращает клеймы,
// если талон корректен и не истёк.
func (m *MakerImpl) Parse(tokenStr string) (*CredentialClaims, error) {
	const op = "token.Parse"
	tok, err := jwt.ParseWithClaims(tokenStr, &CredentialClaims{}, func(_ *jwt.Token) (any, error) {
		return &m.privateKey.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := tok.Claims.(*CredentialClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
