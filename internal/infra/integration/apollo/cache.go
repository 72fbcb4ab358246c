package apollo

import (
	"context"
	"log"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// ContactCache is satisfied by the database-backed company cache.
type ContactCache interface {
	Get(ctx context.Context, domain string) ([]entity.Contact, error)
	Put(ctx context.Context, domain string, contacts []entity.Contact) error
}

// CachedClient wraps the Apollo client with the per-domain search cache.
// Only SearchPeople is cached; writes always hit the API.
type CachedClient struct {
	*Client
	cache ContactCache
}

func NewCachedClient(client *Client, cache ContactCache) *CachedClient {
	return &CachedClient{Client: client, cache: cache}
}

func (c *CachedClient) SearchPeople(ctx context.Context, domain string) ([]entity.Contact, error) {
	cached, err := c.cache.Get(ctx, domain)
	if err != nil {
		log.Printf("⚠️ Apollo cache read failed for %s: %v", domain, err)
	}
	if len(cached) > 0 {
		log.Printf("⚡ Apollo cache hit for %s (%d contacts)", domain, len(cached))
		return cached, nil
	}

	contacts, err := c.Client.SearchPeople(ctx, domain)
	if err != nil {
		return nil, err
	}

	if len(contacts) > 0 {
		if err := c.cache.Put(ctx, domain, contacts); err != nil {
			log.Printf("⚠️ Apollo cache write failed for %s: %v", domain, err)
		}
	}

	return contacts, nil
}
