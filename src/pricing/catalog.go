package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pbs/src/models"
	"pbs/src/models/scopes"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Catalog reads a property's pricing records, going through redis when a
// client is configured. Cache failures fall back to the database.
type Catalog struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
}

func NewCatalog(db *gorm.DB, cache *redis.Client, ttl time.Duration) *Catalog {
	return &Catalog{db: db, cache: cache, ttl: ttl}
}

func cacheKey(propertyID uint) string {
	return fmt.Sprintf("catalog:%d", propertyID)
}

func (c *Catalog) Load(ctx context.Context, propertyID uint) ([]models.PricingRecord, error) {
	if c.cache != nil {
		val, err := c.cache.Get(ctx, cacheKey(propertyID)).Bytes()
		if err == nil {
			var records []models.PricingRecord
			if err := json.Unmarshal(val, &records); err == nil {
				return records, nil
			}
			log.Printf("[catalog] Discarding malformed cache entry for property %d\n", propertyID)
		} else if err != redis.Nil {
			log.Printf("[catalog] Cache read failed: %s\n", err.Error())
		}
	}

	records, err := LoadCatalog(ctx, c.db, propertyID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		b, err := json.Marshal(records)
		if err == nil {
			if err := c.cache.Set(ctx, cacheKey(propertyID), b, c.ttl).Err(); err != nil {
				log.Printf("[catalog] Cache write failed: %s\n", err.Error())
			}
		}
	}
	return records, nil
}

func (c *Catalog) Invalidate(ctx context.Context, propertyID uint) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, cacheKey(propertyID)).Err(); err != nil {
		log.Printf("[catalog] Cache invalidation failed: %s\n", err.Error())
	}
}

// LoadCatalog reads every pricing record of a property straight from the
// database.
func LoadCatalog(ctx context.Context, db *gorm.DB, propertyID uint) ([]models.PricingRecord, error) {
	var records []models.PricingRecord
	err := db.WithContext(ctx).
		Scopes(scopes.ForProperty(propertyID)).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading pricing catalog: %w", err)
	}
	return records, nil
}
