// Package docstore connects to the Couchbase document store used when
// CHART_STORE=couchbase.
package docstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
)

// Config selects the cluster and keyspace.
type Config struct {
	URL        string
	Username   string
	Password   string
	Bucket     string
	Scope      string
	Collection string
	Timeout    time.Duration
}

// Store is an open cluster plus the collection charts live in.
type Store struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	collection *gocb.Collection
	keyspace   string
}

// ConnectionString normalizes a configured URL into a couchbase:// or
// couchbases:// connection string.
func ConnectionString(url string) string {
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "couchbases://" + strings.TrimPrefix(url, "https://")
	}
	return "couchbase://" + url
}

// Keyspace returns the quoted N1QL keyspace for a bucket/scope/collection.
func Keyspace(bucket, scope, collection string) string {
	if scope == "" {
		scope = "_default"
	}
	if collection == "" {
		collection = "_default"
	}
	return fmt.Sprintf("`%s`.`%s`.`%s`", bucket, scope, collection)
}

// Connect opens the cluster and waits for the bucket to become ready.
func Connect(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("couchbase bucket is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cluster, err := gocb.Connect(ConnectionString(cfg.URL), gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to couchbase: %w", err)
	}
	if err := cluster.WaitUntilReady(timeout, nil); err != nil {
		_ = cluster.Close(nil)
		return nil, fmt.Errorf("wait for couchbase cluster: %w", err)
	}

	bucket := cluster.Bucket(cfg.Bucket)
	if err := bucket.WaitUntilReady(timeout, nil); err != nil {
		_ = cluster.Close(nil)
		return nil, fmt.Errorf("bucket %q is not accessible: %w", cfg.Bucket, err)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "_default"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "_default"
	}

	return &Store{
		cluster:    cluster,
		bucket:     bucket,
		collection: bucket.Scope(scope).Collection(collection),
		keyspace:   Keyspace(cfg.Bucket, scope, collection),
	}, nil
}

// Cluster returns the cluster handle for N1QL queries.
func (s *Store) Cluster() *gocb.Cluster { return s.cluster }

// Collection returns the chart collection.
func (s *Store) Collection() *gocb.Collection { return s.collection }

// Keyspace returns the quoted keyspace of the chart collection.
func (s *Store) Keyspace() string { return s.keyspace }

// Ping checks that the key-value service answers.
func (s *Store) Ping() error {
	_, err := s.bucket.Ping(&gocb.PingOptions{ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue}})
	return err
}

// Close shuts the cluster connection down.
func (s *Store) Close() error {
	return s.cluster.Close(nil)
}
