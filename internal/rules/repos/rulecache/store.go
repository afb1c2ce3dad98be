// Package rulecache persists the three durable records behind the rules
// refresh pipeline: the raw filter-list text, the conditional-fetch metadata,
// and the compiled artifact. The records are independent: each is written in
// its own transaction, so a failed write of one never corrupts or blocks the
// others, and readers always observe a fully-old or fully-new value.
package rulecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/rulefeed/rulefeed/internal/rules/common/log"
	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

const dbFileName = "rules.db"

var (
	bucketRawRules = []byte("raw_rules")
	bucketMetadata = []byte("metadata")
	bucketArtifact = []byte("artifact")

	// recordKey addresses the single current value inside each bucket.
	recordKey = []byte("current")
)

// Store is a bbolt-backed cache for the rules records.
type Store struct {
	db     *bbolt.DB
	logger log.Logger
}

// Open creates dir if needed, opens (or creates) the cache database inside it,
// and ensures all record buckets exist. Failures are reported as
// *domain.StorageError.
func Open(dir string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.GetLogger()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StorageError{Err: fmt.Errorf("create cache dir: %w", err)}
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFileName), 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &domain.StorageError{Err: fmt.Errorf("open cache db: %w", err)}
	}

	s := &Store{db: db, logger: logger}
	if err := s.Ready(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Ready idempotently ensures the record buckets exist. It is cheap to call
// repeatedly and is the storage-readiness check a refresh performs up front.
func (s *Store) Ready() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRawRules, bucketMetadata, bucketArtifact} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &domain.StorageError{Err: fmt.Errorf("ensure buckets: %w", err)}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// RawRules returns the last fetched filter-list text verbatim, or false if no
// fetch has succeeded yet.
func (s *Store) RawRules() (string, bool) {
	var text string
	var ok bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRawRules)
		if b == nil {
			return nil
		}
		if v := b.Get(recordKey); v != nil {
			text = string(v)
			ok = true
		}
		return nil
	})
	return text, ok
}

// PutRawRules overwrites the stored filter-list text.
func (s *Store) PutRawRules(text string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRawRules)
		if b == nil {
			return fmt.Errorf("bucket %s missing", bucketRawRules)
		}
		return b.Put(recordKey, []byte(text))
	})
}

// Metadata returns the stored fetch metadata. Absent or undecodable records
// both read as a miss: a damaged record is indistinguishable from "no prior
// fetch" and simply forces the next fetch to be unconditional.
func (s *Store) Metadata() (domain.FetchMetadata, bool) {
	var meta domain.FetchMetadata
	var ok bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return nil
		}
		v := b.Get(recordKey)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &meta); err != nil {
			s.logger.Debug(map[string]any{"error": err}, "Discarding undecodable fetch metadata")
			meta = domain.FetchMetadata{}
			return nil
		}
		ok = true
		return nil
	})
	return meta, ok
}

// PutMetadata overwrites the stored fetch metadata.
func (s *Store) PutMetadata(meta domain.FetchMetadata) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMetadata)
		if b == nil {
			return fmt.Errorf("bucket %s missing", bucketMetadata)
		}
		return b.Put(recordKey, encoded)
	})
}

// Artifact returns the stored compiled artifact, treating undecodable records
// as a miss so the next refresh recompiles.
func (s *Store) Artifact() (domain.RuleArtifact, bool) {
	var artifact domain.RuleArtifact
	var ok bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifact)
		if b == nil {
			return nil
		}
		v := b.Get(recordKey)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &artifact); err != nil {
			s.logger.Debug(map[string]any{"error": err}, "Discarding undecodable rule artifact")
			artifact = domain.RuleArtifact{}
			return nil
		}
		ok = true
		return nil
	})
	return artifact, ok
}

// PutArtifact overwrites the stored compiled artifact.
func (s *Store) PutArtifact(artifact domain.RuleArtifact) error {
	encoded, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifact)
		if b == nil {
			return fmt.Errorf("bucket %s missing", bucketArtifact)
		}
		return b.Put(recordKey, encoded)
	})
}

// Stats reports which records are present, for logging and diagnostics.
type Stats struct {
	HasRawRules  bool
	HasMetadata  bool
	HasArtifact  bool
	RawRulesSize int
}

// Stats inspects record presence in a single read transaction.
func (s *Store) Stats() Stats {
	var st Stats
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRawRules); b != nil {
			if v := b.Get(recordKey); v != nil {
				st.HasRawRules = true
				st.RawRulesSize = len(v)
			}
		}
		if b := tx.Bucket(bucketMetadata); b != nil {
			st.HasMetadata = b.Get(recordKey) != nil
		}
		if b := tx.Bucket(bucketArtifact); b != nil {
			st.HasArtifact = b.Get(recordKey) != nil
		}
		return nil
	})
	return st
}
