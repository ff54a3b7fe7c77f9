package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spidlabs/spidpos/internal/domain/enum"
	bolt "go.etcd.io/bbolt"
)

// boltStore is the fallback engine for hosts where sqlite cannot be
// used. Records are JSON values in per-type buckets; queue ordering
// comes from bbolt's bucket sequence.
type boltStore struct {
	db *bolt.DB

	mu       sync.Mutex
	initDone bool
	initErr  error
}

var (
	bucketMerchants = []byte("merchants")
	bucketProducts  = []byte("products")
	bucketReceipts  = []byte("receipts")
	bucketQueue     = []byte("sync_queue")
	bucketSettings  = []byte("settings")
)

func openBolt(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initDone {
		s.initErr = s.initialize(ctx)
		s.initDone = true
	}
	if s.initErr != nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *boltStore) initialize(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMerchants, bucketProducts, bucketReceipts, bucketQueue, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return seed(ctx, s)
}

func (s *boltStore) ready(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func putJSON(tx *bolt.Tx, bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

func (s *boltStore) UpsertMerchant(ctx context.Context, m *Merchant) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.upsertMerchantRaw(ctx, m)
}

func (s *boltStore) upsertMerchantRaw(_ context.Context, m *Merchant) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketMerchants, m.ID, m)
	})
}

func (s *boltStore) Merchants(ctx context.Context) ([]Merchant, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var merchants []Merchant
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMerchants).ForEach(func(_, v []byte) error {
			var m Merchant
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			merchants = append(merchants, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(merchants, func(i, j int) bool { return merchants[i].Name < merchants[j].Name })
	return merchants, nil
}

func (s *boltStore) UpsertProduct(ctx context.Context, p *Product) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.upsertProductRaw(ctx, p)
}

func (s *boltStore) upsertProductRaw(_ context.Context, p *Product) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketProducts, p.ID, p)
	})
}

func (s *boltStore) ProductByID(ctx context.Context, id string) (*Product, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var product *Product
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketProducts).Get([]byte(id))
		if data == nil {
			return nil
		}
		var p Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		product = &p
		return nil
	})
	return product, err
}

func (s *boltStore) ProductsByMerchant(ctx context.Context, merchantID, search string) ([]Product, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(search)
	var products []Product
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).ForEach(func(_, v []byte) error {
			var p Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if p.MerchantID != merchantID || !p.IsActive {
				return nil
			}
			if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
				return nil
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *boltStore) SaveReceipt(ctx context.Context, r *Receipt) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.saveReceiptRaw(ctx, r)
}

func (s *boltStore) saveReceiptRaw(_ context.Context, r *Receipt) error {
	stored := *r
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if existing := tx.Bucket(bucketReceipts).Get([]byte(stored.ID)); existing != nil {
			// Keep the original creation instant on upsert.
			var prev Receipt
			if err := json.Unmarshal(existing, &prev); err == nil && r.CreatedAt.IsZero() {
				stored.CreatedAt = prev.CreatedAt
			}
		}
		return putJSON(tx, bucketReceipts, stored.ID, &stored)
	})
}

func (s *boltStore) ReceiptByID(ctx context.Context, id string) (*Receipt, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var receipt *Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReceipts).Get([]byte(id))
		if data == nil {
			return nil
		}
		var r Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		receipt = &r
		return nil
	})
	return receipt, err
}

func (s *boltStore) ReceiptsByMerchant(ctx context.Context, merchantID string) ([]Receipt, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var receipts []Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReceipts).ForEach(func(_, v []byte) error {
			var r Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.MerchantID == merchantID {
				receipts = append(receipts, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].IssuedAt.After(receipts[j].IssuedAt) })
	return receipts, nil
}

func (s *boltStore) CountPendingReceipts(ctx context.Context, merchantID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReceipts).ForEach(func(_, v []byte) error {
			var r Receipt
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if r.MerchantID == merchantID && (r.SyncStatus == enum.SyncStatusPending || r.SyncStatus == enum.SyncStatusFailed) {
				count++
			}
			return nil
		})
	})
	return count, err
}

func (s *boltStore) UpdateReceiptSyncState(ctx context.Context, id string, upd *ReceiptSyncUpdate) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReceipts).Get([]byte(id))
		if data == nil {
			return nil
		}
		var r Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		r.SyncStatus = upd.SyncStatus
		if upd.Status != nil {
			r.Status = *upd.Status
		}
		if upd.Number != nil {
			r.Number = *upd.Number
		}
		if upd.SyncAttempts != nil {
			r.SyncAttempts = *upd.SyncAttempts
		}
		return putJSON(tx, bucketReceipts, id, &r)
	})
}

func queueKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func (s *boltStore) EnqueueReceiptSync(ctx context.Context, receiptID string, nextAttemptAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		item := QueueItem{
			ID:            int64(seq),
			ReceiptID:     receiptID,
			Status:        enum.QueueStatusPending,
			NextAttemptAt: nextAttemptAt,
			CreatedAt:     time.Now().UTC(),
		}
		data, err := json.Marshal(&item)
		if err != nil {
			return err
		}
		return bucket.Put(queueKey(seq), data)
	})
}

func (s *boltStore) DueSyncQueueItems(ctx context.Context, now time.Time) ([]QueueItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var items []QueueItem
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(_, v []byte) error {
			var item QueueItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			due := item.Status == enum.QueueStatusPending || item.Status == enum.QueueStatusProcessing
			if due && !item.NextAttemptAt.After(now) {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *boltStore) SyncQueueItemByReceipt(ctx context.Context, receiptID string) (*QueueItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var found *QueueItem
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(_, v []byte) error {
			var item QueueItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			if item.ReceiptID == receiptID {
				found = &item
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *boltStore) UpdateSyncQueueItem(ctx context.Context, item *QueueItem) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		key := queueKey(uint64(item.ID))
		if existing := tx.Bucket(bucketQueue).Get(key); existing == nil {
			return nil
		}
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketQueue).Put(key, data)
	})
}

func (s *boltStore) DeleteSyncQueueItem(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueue).Delete(queueKey(uint64(id)))
	})
}

func (s *boltStore) Setting(ctx context.Context, key string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	return s.settingRaw(ctx, key)
}

func (s *boltStore) settingRaw(_ context.Context, key string) (string, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketSettings).Get([]byte(key)); data != nil {
			value = bytes.Clone(data)
		}
		return nil
	})
	return string(value), err
}

func (s *boltStore) SetSetting(ctx context.Context, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.setSettingRaw(ctx, key, value)
}

func (s *boltStore) setSettingRaw(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), []byte(value))
	})
}
