// Package ipcache - bbolt-кэш результатов геолокации по IP.
// Внешний сервис отвечает секунды и лимитирует запросы, а таймзона
// клиента меняется редко; успешные ответы живут в кэше TTL часов.
package ipcache

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "ip_timezones"

// Entry - закэшированный результат одного IP
type Entry struct {
	Timezone string          `json:"timezone"`
	Location json.RawMessage `json:"location,omitempty"`
	CachedAt time.Time       `json:"cached_at"`
}

// Cache - bbolt-клиент кэша. Значения хранятся JSON под ключом IP.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
}

// Open открывает (или создает) файл кэша и корзину записей
func Open(path string, ttl time.Duration) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get возвращает живую запись для IP; false - нет или протухла.
// Протухшая запись не удаляется: следующий Put ее перезапишет.
func (c *Cache) Get(ip string) (*Entry, bool) {
	var entry Entry
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(ip))
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.CachedAt) > c.ttl {
		return nil, false
	}
	return &entry, true
}

// Put сохраняет запись для IP, проставляя время кэширования
func (c *Cache) Put(ip string, entry *Entry) error {
	entry.CachedAt = time.Now()

	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(ip), value)
	})
}

func (c *Cache) Close() error {
	return c.db.Close()
}
