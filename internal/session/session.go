// Package session owns the Cassandra cluster handle: its three named
// execution profiles (read-object, read-source, write), prepared
// statement cache, and address translation for private/public IP
// mapping. Grounded on gocql's ClusterConfig and the cluster-construction
// idiom used by production Go Cassandra clients.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocql/gocql"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/config"
)

// QueryProfile is the Go rendering of a named execution profile: gocql
// has no first-class profile registry, so each profile is a value
// applied to a *gocql.Query at the call site instead.
type QueryProfile struct {
	Consistency gocql.Consistency
	Timeout     time.Duration
}

// Profile names, matching spec.md §5's three named profiles.
const (
	ProfileReadObject = "read-object"
	ProfileReadSource = "read-source"
	ProfileWrite      = "write"
)

// Cluster owns the shared *gocql.Session plus the three query profiles
// and the prepared-statement cache. It is safe for concurrent use by
// every planner/executor/ingest caller, matching spec.md §5's "shared,
// thread-safe handle owned by the facade."
type Cluster struct {
	Session *gocql.Session

	profiles map[string]QueryProfile

	mu       sync.Mutex
	prepared map[string]string
}

// addressTranslator maps private cluster-internal IPs to the public
// addresses a client outside the cluster's network must dial, mirroring
// the original's docker-oriented _AddressTranslator.
type addressTranslator struct {
	privateToPublic map[string]string
}

func (t *addressTranslator) Translate(addr string) string {
	if pub, ok := t.privateToPublic[addr]; ok {
		return pub
	}
	return addr
}

// Open constructs the gocql cluster from cfg and connects, retrying the
// initial bootstrap with bounded exponential backoff. This is distinct
// from per-query retries, which spec.md §7 forbids inside the engine:
// this retry only covers standing the cluster handle up once.
func Open(ctx context.Context, cfg *config.Config) (*Cluster, error) {
	cluster := gocql.NewCluster(cfg.ContactPoints...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.ReadTimeout

	fallback := gocql.RoundRobinHostPolicy()
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(fallback, gocql.ShuffleReplicas())

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	if len(cfg.PrivateIPs) > 0 && len(cfg.PublicIPs) == len(cfg.PrivateIPs) {
		mapping := make(map[string]string, len(cfg.PrivateIPs))
		for i, priv := range cfg.PrivateIPs {
			mapping[priv] = cfg.PublicIPs[i]
		}
		cluster.AddressTranslator = &addressTranslator{privateToPublic: mapping}
		cluster.DisableInitialHostLookup = true
		cluster.IgnorePeerAddr = true
	}

	readConsistency, err := parseConsistency(cfg.ReadConsistency)
	if err != nil {
		return nil, apdberr.NewConfigError("session.Open", err)
	}
	writeConsistency, err := parseConsistency(cfg.WriteConsistency)
	if err != nil {
		return nil, apdberr.NewConfigError("session.Open", err)
	}

	var gocqlSession *gocql.Session
	boff := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	err = backoff.Retry(func() error {
		s, err := cluster.CreateSession()
		if err != nil {
			return err
		}
		gocqlSession = s
		return nil
	}, boff)
	if err != nil {
		return nil, apdberr.WrapDriverError("session.Open", err)
	}

	return &Cluster{
		Session: gocqlSession,
		profiles: map[string]QueryProfile{
			ProfileReadObject: {Consistency: readConsistency, Timeout: cfg.ReadTimeout},
			ProfileReadSource: {Consistency: readConsistency, Timeout: cfg.ReadTimeout},
			ProfileWrite:      {Consistency: writeConsistency, Timeout: cfg.WriteTimeout},
		},
		prepared: make(map[string]string),
	}, nil
}

func parseConsistency(name string) (gocql.Consistency, error) {
	if name == "" {
		return gocql.Quorum, nil
	}
	var c gocql.Consistency
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("unknown consistency level %q", name)
			}
		}()
		c = gocql.ParseConsistency(name)
	}()
	return c, err
}

// Profile returns the named QueryProfile.
func (c *Cluster) Profile(name string) QueryProfile {
	return c.profiles[name]
}

// Query builds a *gocql.Query with the named profile's consistency and
// context-bound timeout applied. The shorter of the caller's context
// deadline and the profile's configured timeout wins, generalizing the
// original's fixed per-profile timeout into a ctx-aware API.
func (c *Cluster) Query(ctx context.Context, profile string, stmt string, args ...any) *gocql.Query {
	p := c.Profile(profile)
	q := c.Session.Query(stmt, args...).WithContext(ctx).Consistency(p.Consistency)
	if p.Timeout > 0 {
		q = q.Timeout(p.Timeout)
	}
	return q
}

// PreparedFingerprint is the prepared-statement cache key: (table,
// ordered column list), per spec.md §9 design notes.
type PreparedFingerprint struct {
	Table   string
	Columns string // comma-joined, ordered
}

// PreparedInsert returns the cached CQL text for the given fingerprint,
// building it via build if absent. The cache holds only the statement
// string, never a bound *gocql.Query: a *gocql.Query is mutated in place
// by Bind/rebinding, so sharing one across concurrent inserts would race.
// Callers pass the returned string to Query/Session.Query to get a fresh,
// per-call *gocql.Query. Cache insertions are idempotent: concurrent
// callers computing the same fingerprint always observe the same cached
// text, matching spec.md §5's lock-protected shared cache. gocql's own
// session-level statement cache still takes care of server-side
// preparation for repeated identical statement text.
func (c *Cluster) PreparedInsert(fp PreparedFingerprint, build func() string) string {
	key := fp.Table + "|" + fp.Columns
	c.mu.Lock()
	defer c.mu.Unlock()
	if stmt, ok := c.prepared[key]; ok {
		return stmt
	}
	stmt := build()
	c.prepared[key] = stmt
	return stmt
}

// ExecDDL runs a schema-mutating statement with no result set and no
// timeout, matching the original engine's execute_async(..., timeout=None)
// for DDL.
func (c *Cluster) ExecDDL(ctx context.Context, cql string) error {
	if err := c.Session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return apdberr.WrapDriverError("session.ExecDDL", err)
	}
	return nil
}

// Close releases the underlying cluster connection.
func (c *Cluster) Close() {
	if c.Session != nil {
		c.Session.Close()
	}
}
