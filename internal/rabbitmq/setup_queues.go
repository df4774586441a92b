package rabbitmq

// Exchange — обменник сообщений доставки талонов.
const Exchange = "credentials"

// Имена очередей и ключи маршрутизации доставки.
const (
	// DispatchQueue — очередь писем с талонами для воркера доставки.
	DispatchQueue = "credentials.dispatch"
	// DispatchRoutingKey — ключ маршрутизации сообщений доставки.
	DispatchRoutingKey = "dispatch"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetDispatchQueues возвращает очереди доставки талонов.
func GetDispatchQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: DispatchQueue, RoutingKey: DispatchRoutingKey},
	}
}
