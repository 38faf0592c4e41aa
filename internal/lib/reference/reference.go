// Package reference генерирует человекочитаемые ссылки платежей
// для сверки банковских переводов. Ссылка состоит из метки времени
// и случайной части (ULID), поэтому коллизии крайне маловероятны, но возможны.
package reference

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix префикс всех ссылок платежей.
const Prefix = "PAY-"

// Generator выдаёт новую ссылку при каждом вызове.
type Generator func() string

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New генерирует ссылку вида PAY-01J9Z3K8Q4M6W2X7C5V0N1B8D3.
func New() string {
	mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	mu.Unlock()
	return Prefix + id.String()
}

// Valid сообщает, похожа ли строка на ссылку платежа.
func Valid(ref string) bool {
	s, ok := strings.CutPrefix(ref, Prefix)
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
