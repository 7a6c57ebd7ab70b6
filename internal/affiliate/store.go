package affiliate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

const (
	recordFileName = "affiliate.json"

	// TTL matches the marketing-link attribution window.
	TTL = 30 * 24 * time.Hour
)

// Record is the captured referral attribution: who referred this profile
// and when. It is attached to the next successful order and then cleared.
type Record struct {
	AffiliateUserID int64  `json:"affiliateUserId"`
	AffiliateCode   string `json:"affiliateCode"`
	Timestamp       int64  `json:"timestamp"`
}

// Store holds at most one affiliate record per profile in durable local
// storage. Expired or corrupt records read as absent.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates an affiliate store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{
		path:   filepath.Join(dir, recordFileName),
		logger: util.GetLogger(),
		now:    time.Now,
	}, nil
}

// Set records an affiliate attribution, replacing any previous one.
func (s *Store) Set(affiliateUserID int64, affiliateCode string) error {
	rec := Record{
		AffiliateUserID: affiliateUserID,
		AffiliateCode:   affiliateCode,
		Timestamp:       s.now().UnixMilli(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode affiliate record: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write affiliate record: %w", err)
	}
	return nil
}

// Get returns the stored record, or nil when none exists, the data is
// corrupt, or the attribution window has lapsed. Expired records are
// cleaned up on read.
func (s *Store) Get() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.AffiliateCode == "" {
		return nil
	}

	age := s.now().Sub(time.UnixMilli(rec.Timestamp))
	if age > TTL {
		if err := s.Clear(); err != nil {
			s.logger.Warn("Failed to remove expired affiliate record", zap.Error(err))
		}
		return nil
	}

	return &rec
}

// Clear removes the stored record.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove affiliate record: %w", err)
	}
	return nil
}
