package models

import "time"

// SubscriptionStatusActive — статус подписки, дающий право на выдачу талона.
const SubscriptionStatusActive = "active"

// Subscription представляет собой подписку клиента на ежедневное питание.
// Жизненный цикл принадлежит биллинговой интеграции, движок выдачи только читает.
// Границы оплаченного периода могут отсутствовать у повреждённых записей,
// поэтому хранятся указателями.
type Subscription struct {
	ID          int
	CustomerUID string     // Уникальный идентификатор клиента
	Email       string     // Адрес для доставки талона
	Status      string     // active, past_due, canceled и т.д.
	PeriodStart *time.Time // Начало оплаченного периода
	PeriodEnd   *time.Time // Конец оплаченного периода
}

// Skip — отказ клиента от питания на конкретную дату.
// Создаётся клиентским ботом, читается при расчёте квоты.
type Skip struct {
	CustomerUID string
	Date        time.Time
}

// DummySkip используется для приёма отказа из JSON-запроса.
type DummySkip struct {
	CustomerUID string `json:"customer_uid" validate:"required"`             // Идентификатор клиента
	Date        string `json:"date" validate:"required,datetime=2006-01-02"` // Дата отказа
}

// Entitlement — квота клиента на дату выдачи: сколько порций разрешено
// и сколько уже погашено киоском. Счётчик погашений изменяет только
// киоск, движок выдачи его никогда не трогает.
type Entitlement struct {
	CustomerUID   string
	ServiceDate   time.Time
	MealsAllowed  int // 0 или 1, выводится из наличия отказа
	MealsRedeemed int // Монотонно неубывающий счётчик погашений
}

// Credential — подписанный талон на дату выдачи, уникальный по паре
// (клиент, дата). Поле UsedAt выставляет только киоск при погашении.
type Credential struct {
	CustomerUID string
	ServiceDate time.Time
	TokenID     string // Уникальный nonce, клейм jti подписанного токена
	ShortCode   string // Короткий код для ручного ввода в киоске
	SignedToken string // Подписанный JWT
	IssuedAt    time.Time
	ExpiresAt   time.Time  // Конец дня выдачи в домашнем часовом поясе
	UsedAt      *time.Time // Момент погашения, выставляется один раз
}

// IssuanceError описывает ошибку обработки одного клиента внутри прогона.
type IssuanceError struct {
	CustomerUID string `json:"customer_uid"`
	Email       string `json:"email,omitempty"`
	Error       string `json:"error"`
}

// IssuanceResult — структурированный итог прогона ежедневной выдачи.
// Skipped = true означает нерабочий день, это штатный исход, а не сбой.
type IssuanceResult struct {
	Issued  int             `json:"issued"`
	Skipped bool            `json:"skipped,omitempty"`
	Errors  []IssuanceError `json:"errors"`
}

// DispatchAttachment — вложение письма с талоном.
type DispatchAttachment struct {
	Filename string `json:"filename"`
	Bytes    []byte `json:"bytes"` // base64 при сериализации в JSON
	MimeType string `json:"mime_type"`
}

// DispatchMessage — сообщение для коллаборатора доставки талона.
// IdempotencyKey детерминирован по паре (клиент, дата), чтобы повтор
// на транспортном уровне не приводил к дублю у провайдера доставки.
type DispatchMessage struct {
	Recipient      string             `json:"recipient"`
	Subject        string             `json:"subject"`
	Body           string             `json:"body"`
	Attachment     DispatchAttachment `json:"attachment"`
	IdempotencyKey string             `json:"idempotency_key"`
}
