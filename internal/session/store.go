// session хранит состояние сессии клиента MyData на устройстве.
//
// Состояние — это несколько строковых ключей (токены, профиль,
// Pending-Auth Marker). Хранилище внедряется через интерфейс Store,
// глобального состояния нет: тесты и CLI подставляют свою реализацию.
package session

import "context"

// Store — минимальный контракт key-value хранилища сессии.
type Store interface {
	// Get возвращает значение и признак наличия ключа.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set сохраняет значение (перезаписывает существующее).
	Set(ctx context.Context, key, value string) error
	// Delete удаляет ключи; отсутствующие ключи не считаются ошибкой.
	Delete(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы хранилища.
	Close() error
}
