// Package issuance реализует оркестратор ежедневной выдачи талонов.
//
// Прогон безопасно повторяем и безопасно конкурентен: планировщик может
// сработать дважды, прогон может быть перезапущен после сбоя, несколько
// экземпляров могут обрабатывать клиентов одновременно. Синхронизация
// строится не на блокировках в процессе, а на ограничениях уникальности
// хранилища по паре (клиент, дата): вставка, проигравшая гонку,
// разрешается повторным чтением победившей строки.
package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/sl"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/lib/token"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/metrics"
	"github.com/magabrotheeeer/meal-credential-issuer/internal/models"
)

// maxErrorsInSummary — сколько ошибок показывается в оповещении операторам,
// остальные сворачиваются в "+N more".
const maxErrorsInSummary = 5

// Repository определяет методы хранилища, нужные прогону выдачи.
type Repository interface {
	// ListEligibleSubscriptions возвращает активные подписки, чей оплаченный
	// период пересекает сутки выдачи.
	ListEligibleSubscriptions(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Subscription, error)
	// CountActiveMissingPeriod считает активные подписки без границ периода.
	CountActiveMissingPeriod(ctx context.Context) (int, error)
	// HasSkip сообщает, отказался ли клиент от питания на дату.
	HasSkip(ctx context.Context, customerUID string, date time.Time) (bool, error)
	// UpsertEntitlement записывает квоту и возвращает meals_allowed.
	UpsertEntitlement(ctx context.Context, customerUID string, date time.Time, hasSkip bool) (int, error)
	// FindCredential возвращает талон клиента на дату.
	FindCredential(ctx context.Context, customerUID string, date time.Time) (*models.Credential, error)
	// InsertCredential выполняет вставку нового талона (не upsert).
	InsertCredential(ctx context.Context, cred *models.Credential) error
	// UpdateCredentialSecrets дозаполняет секреты частичной записи.
	UpdateCredentialSecrets(ctx context.Context, cred *models.Credential) error
	// IsCredentialUniqueViolation различает проигрыш гонки вставки талона
	// и прочие ошибки хранилища.
	IsCredentialUniqueViolation(err error) bool
}

// Calendar описывает резолвер сервисного календаря.
type Calendar interface {
	IsServiceDay(ctx context.Context, date time.Time) bool
}

// Dispatcher описывает коллаборатора доставки талона клиенту.
type Dispatcher interface {
	Send(ctx context.Context, msg models.DispatchMessage) error
}

// Notifier описывает операторский канал оповещений.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Options — настройки прогона выдачи. Клейм iss подписанного талона
// принадлежит token.Maker, здесь только параметры самого прогона.
type Options struct {
	Location           *time.Location // Домашний часовой пояс сервиса
	Concurrency        int            // Размер пула обработки клиентов
	DispatchTimeout    time.Duration  // Таймаут исходящего вызова доставки
	RunBudget          time.Duration  // Жёсткий лимит среды исполнения
	AlertMissingPeriod bool           // Оповещать о подписках без периода
}

// Service реализует оркестратор ежедневной выдачи.
type Service struct {
	repo       Repository
	calendar   Calendar
	maker      token.Maker
	dispatcher Dispatcher
	notifier   Notifier
	log        *slog.Logger
	opts       Options

	now func() time.Time
}

// New создает новый экземпляр Service. Подписывающий ключ внутри maker
// импортирован один раз на прогон и после этого только читается.
func New(repo Repository, cal Calendar, maker token.Maker, dispatcher Dispatcher,
	notifier Notifier, log *slog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 10 * time.Second
	}
	return &Service{
		repo:       repo,
		calendar:   cal,
		maker:      maker,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
		opts:       opts,
		now:        time.Now,
	}
}

// RunDailyIssuance выполняет один прогон ежедневной выдачи и возвращает
// структурированный итог. Ошибка возвращается только при фатальном сбое
// до пообъектной обработки; ошибки отдельных клиентов собираются в итог.
func (s *Service) RunDailyIssuance(ctx context.Context) (*models.IssuanceResult, error) {
	const op = "issuance.RunDailyIssuance"
	started := s.now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	today := time.Date(started.In(s.opts.Location).Year(), started.In(s.opts.Location).Month(),
		started.In(s.opts.Location).Day(), 0, 0, 0, 0, s.opts.Location)
	log := s.log.With(slog.String("service_date", today.Format(models.DateLayout)))

	result := &models.IssuanceResult{Errors: []models.IssuanceError{}}

	if !s.calendar.IsServiceDay(ctx, today) {
		log.Info("not a service day, issuance skipped")
		result.Skipped = true
		return result, nil
	}

	if s.opts.AlertMissingPeriod {
		s.alertMissingPeriods(ctx, log)
	}

	// Границы суток выдачи как UTC-инстанты домашнего часового пояса:
	// сравнение по ним остаётся верным при переходах на летнее время.
	dayStart := today.UTC()
	dayEnd := today.AddDate(0, 0, 1).Add(-time.Nanosecond).UTC()

	subs, err := s.repo.ListEligibleSubscriptions(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("found eligible subscriptions", slog.Int("count", len(subs)))

	var softWarn *time.Timer
	if s.opts.RunBudget > 0 {
		threshold := s.opts.RunBudget * 2 / 3
		softWarn = time.AfterFunc(threshold, func() {
			log.Warn("issuance run approaching execution budget",
				slog.Duration("threshold", threshold),
				slog.Duration("budget", s.opts.RunBudget))
		})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)

	for _, sub := range subs {
		g.Go(func() error {
			issued, err := s.processCustomer(ctx, sub, today)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("customer processing failed",
					slog.String("customer_uid", sub.CustomerUID), sl.Err(err))
				metrics.CustomerErrors.Inc()
				result.Errors = append(result.Errors, models.IssuanceError{
					CustomerUID: sub.CustomerUID,
					Email:       sub.Email,
					Error:       err.Error(),
				})
				return nil
			}
			if issued {
				result.Issued++
			}
			return nil
		})
	}
	_ = g.Wait()

	if softWarn != nil {
		softWarn.Stop()
	}

	metrics.CredentialsIssued.Add(float64(result.Issued))

	if len(result.Errors) > 0 {
		s.reportFailures(ctx, log, today, result)
	}

	log.Info("issuance run finished",
		slog.Int("issued", result.Issued),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("took", time.Since(started)))
	return result, nil
}

// processCustomer проводит одного клиента по конвейеру выдачи:
// проверка отказа, запись квоты, чеканка талона, доставка.
// Возвращает true, если клиенту выдан и отправлен талон.
func (s *Service) processCustomer(ctx context.Context, sub *models.Subscription, today time.Time) (bool, error) {
	hasSkip, err := s.repo.HasSkip(ctx, sub.CustomerUID, today)
	if err != nil {
		return false, fmt.Errorf("skip check: %w", err)
	}

	allowed, err := s.repo.UpsertEntitlement(ctx, sub.CustomerUID, today, hasSkip)
	if err != nil {
		return false, fmt.Errorf("entitlement upsert: %w", err)
	}
	if allowed == 0 {
		s.log.Info("customer opted out for the day, no credential",
			slog.String("customer_uid", sub.CustomerUID))
		return false, nil
	}

	cred, err := s.mintOrFetch(ctx, sub.CustomerUID, today)
	if err != nil {
		return false, fmt.Errorf("mint: %w", err)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.opts.DispatchTimeout)
	defer cancel()
	if err := s.dispatcher.Send(dispatchCtx, s.buildDispatchMessage(sub, cred)); err != nil {
		return false, fmt.Errorf("dispatch: %w", err)
	}
	return true, nil
}

// buildDispatchMessage собирает письмо с талоном и детерминированным
// ключом идемпотентности по паре (клиент, дата).
func (s *Service) buildDispatchMessage(sub *models.Subscription, cred *models.Credential) models.DispatchMessage {
	date := cred.ServiceDate.Format(models.DateLayout)
	body := fmt.Sprintf("Здравствуйте!\n\n"+
		"Ваш талон на питание на %s готов.\n"+
		"Короткий код для ввода в киоске: %s\n\n"+
		"Талон действителен до конца дня и может быть использован один раз.",
		date, cred.ShortCode)
	return models.DispatchMessage{
		Recipient: sub.Email,
		Subject:   fmt.Sprintf("Талон на питание на %s", date),
		Body:      body,
		Attachment: models.DispatchAttachment{
			Filename: fmt.Sprintf("meal-credential-%s.txt", date),
			Bytes:    []byte(cred.SignedToken),
			MimeType: "text/plain",
		},
		IdempotencyKey: fmt.Sprintf("daily-credential/%s/%s", sub.CustomerUID, date),
	}
}

// alertMissingPeriods предупреждает операторов об активных подписках без
// границ оплаченного периода: такие клиенты молча выпадают из выдачи.
// Проверка не блокирует прогон.
func (s *Service) alertMissingPeriods(ctx context.Context, log *slog.Logger) {
	count, err := s.repo.CountActiveMissingPeriod(ctx)
	if err != nil {
		log.Warn("failed to scan for subscriptions with missing periods", sl.Err(err))
		return
	}
	if count == 0 {
		return
	}
	log.Error("active subscriptions with missing billing period excluded from issuance",
		slog.Int("count", count))
	text := fmt.Sprintf("CRITICAL: %d active subscriptions have no billing period boundaries "+
		"and are silently excluded from daily issuance", count)
	if err := s.notifier.Notify(ctx, text); err != nil {
		log.Warn("failed to notify about missing periods", sl.Err(err))
	}
}

// reportFailures отправляет операторам сводку по ошибкам прогона.
// Сбой самого оповещения не ухудшает итог прогона.
func (s *Service) reportFailures(ctx context.Context, log *slog.Logger, today time.Time, result *models.IssuanceResult) {
	if err := s.notifier.Notify(ctx, formatFailureSummary(today, result)); err != nil {
		log.Warn("failed to send failure summary", sl.Err(err))
	}
}

// formatFailureSummary форматирует сводку: первые пять ошибок и "+N more".
func formatFailureSummary(today time.Time, result *models.IssuanceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "daily issuance %s: issued %d, failed %d\n",
		today.Format(models.DateLayout), result.Issued, len(result.Errors))
	shown := min(maxErrorsInSummary, len(result.Errors))
	for _, e := range result.Errors[:shown] {
		fmt.Fprintf(&b, "- %s: %s\n", e.CustomerUID, e.Error)
	}
	if rest := len(result.Errors) - shown; rest > 0 {
		fmt.Fprintf(&b, "+%d more\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}
