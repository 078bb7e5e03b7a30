package cache

import (
	"github.com/velmart/storefront/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps the most recent cart sessions in memory, keyed by identity.
// It is a display cache of server-authoritative state, eviction only costs
// one extra sync.
type Cache struct {
	size int
	lru  *lru.Cache[string, domain.CartSession]
}

func New(size int) (*Cache, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, domain.CartSession](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		size: size,
		lru:  c,
	}, nil
}

func (c *Cache) Get(identity domain.Identity) (domain.CartSession, bool) {
	return c.lru.Get(identity.Key())
}

func (c *Cache) Set(session domain.CartSession) {
	c.lru.Add(session.Identity.Key(), session)
}

func (c *Cache) Remove(identity domain.Identity) {
	c.lru.Remove(identity.Key())
}
