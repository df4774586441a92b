package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/shortcode"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/storage/repository"
)

// mintOrFetch возвращает талон клиента на дату: существующий полный талон
// отдаётся как есть, частичная запись без секретов дозаполняется, иначе
// чеканится и вставляется новый. Вставка намеренно не upsert: при проигрыше
// гонки конкурентному прогону нарушение уникальности разрешается повторным
// чтением победившей строки, так что на пару (клиент, дата) существует
// ровно один талон.
func (s *Service) mintOrFetch(ctx context.Context, customerUID string, serviceDate time.Time) (*models.Credential, error) {
	const op = "issuance.mintOrFetch"

	cred, err := s.repo.FindCredential(ctx, customerUID, serviceDate)
	switch {
	case err == nil:
		if cred.ShortCode != "" && cred.SignedToken != "" {
			return cred, nil
		}
		// Частичная запись: секреты так и не были записаны. Дозаполняем
		// на месте, вторая вставка здесь нарушила бы уникальность.
		if err := s.fillSecrets(cred); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.repo.UpdateCredentialSecrets(ctx, cred); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return cred, nil
	case errors.Is(err, repository.ErrNotFound):
		// Талона нет, чеканим новый.
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cred = &models.Credential{
		CustomerUID: customerUID,
		ServiceDate: serviceDate,
		TokenID:     uuid.NewString(),
	}
	if err := s.fillSecrets(cred); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.InsertCredential(ctx, cred); err != nil {
		if s.repo.IsCredentialUniqueViolation(err) {
			// Гонка проиграна: конкурентный прогон вставил талон первым.
			// Отдаём победившую строку, свежесчеканенные секреты
			// отбрасываются.
			winner, ferr := s.repo.FindCredential(ctx, customerUID, serviceDate)
			if ferr != nil {
				return nil, fmt.Errorf("%s: race lost, reread failed: %w", op, ferr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cred, nil
}

// fillSecrets генерирует секреты талона: идентификатор токена, короткий код
// для киоска и подписанный JWT. Срок действия — до конца суток выдачи в
// домашнем часовом поясе.
func (s *Service) fillSecrets(cred *models.Credential) error {
	const op = "issuance.fillSecrets"

	if cred.TokenID == "" {
		cred.TokenID = uuid.NewString()
	}
	cred.IssuedAt = s.now()
	cred.ExpiresAt = endOfDay(cred.ServiceDate, s.opts.Location)

	code, err := shortcode.Generate()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cred.ShortCode = code

	signed, err := s.maker.Sign(cred.CustomerUID, cred.TokenID, cred.ServiceDate,
		cred.IssuedAt, cred.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cred.SignedToken = signed
	return nil
}

// endOfDay возвращает последнюю секунду суток даты в указанном часовом поясе.
func endOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
}
