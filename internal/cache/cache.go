package cache

import (
	"time"

	"github.com/valkey-io/valkey-go"
)

const DefaultCacheTimeout = 3 * time.Second

// NewValkeyClient подключается к valkey. Адрес пустой — лимитер
// работать не будет (middleware пропускает всё, fail-open).
func NewValkeyClient(addr string) (valkey.Client, error) {
	return valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
}
