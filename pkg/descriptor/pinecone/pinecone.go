// Package pinecone serves descriptor vectors from a Pinecone index.
package pinecone

import (
	"context"
	"fmt"
	"os"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FrenchMajesty/descriptor-classifier/internal/retry"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

// MetadataTypeKey is the metadata field holding the descriptor type name
const MetadataTypeKey = "descriptor_type"

// indexConnection is the subset of *pinecone.IndexConnection used here
type indexConnection interface {
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	Close() error
}

// Config holds configuration for an Index
type Config struct {
	// APIKey for Pinecone. If empty, uses PINECONE_API_KEY.
	APIKey string
	// Host of the index. If empty, uses PINECONE_HOST.
	Host      string
	Namespace string
	// TypeName is the descriptor type name reported by elements of this index
	TypeName string

	Retry  *retry.Config
	Logger *zerolog.Logger
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() error {
	var err error
	if c.APIKey, err = loadEnvVar(c.APIKey, "PINECONE_API_KEY"); err != nil {
		return err
	}
	if c.Host, err = loadEnvVar(c.Host, "PINECONE_HOST"); err != nil {
		return err
	}
	if c.TypeName == "" {
		c.TypeName = "pinecone"
	}
	return nil
}

// Index is a descriptor vector store backed by a Pinecone index namespace.
type Index struct {
	conn     indexConnection
	typeName string
	retry    retry.Config
	log      zerolog.Logger
}

// NewIndex connects to a Pinecone index
func NewIndex(cfg Config) (*Index, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{
		Host:      cfg.Host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	return newIndex(conn, cfg), nil
}

func newIndex(conn indexConnection, cfg Config) *Index {
	ix := &Index{
		conn:     conn,
		typeName: cfg.TypeName,
		retry:    retry.DefaultConfig(),
		log:      zerolog.Nop(),
	}
	if cfg.Retry != nil {
		ix.retry = *cfg.Retry
	}
	if cfg.Logger != nil {
		ix.log = *cfg.Logger
	}
	return ix
}

// Close releases the index connection
func (ix *Index) Close() error {
	return ix.conn.Close()
}

// TypeName returns the descriptor type name of this index's elements
func (ix *Index) TypeName() string {
	return ix.typeName
}

// Element returns a handle on the vector stored under uid
func (ix *Index) Element(uid string) *Element {
	return &Element{index: ix, uid: uid}
}

// Elements returns handles for many uids
func (ix *Index) Elements(uids ...string) []descriptor.Element {
	out := make([]descriptor.Element, len(uids))
	for i, uid := range uids {
		out[i] = ix.Element(uid)
	}
	return out
}

// SetVector upserts a 1-dimensional vector under uid
func (ix *Index) SetVector(ctx context.Context, uid string, v vector.Array) error {
	if v.Ndim() != 1 {
		return fmt.Errorf("pinecone stores 1-dimensional vectors, got %d dimensions", v.Ndim())
	}

	metadata, err := structpb.NewStruct(map[string]any{
		MetadataTypeKey: ix.typeName,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	vectors := []*pinecone.Vector{
		{
			Id:     uid,
			Values: v.Float32(),
			Metadata: &pinecone.Metadata{
				Fields: metadata.Fields,
			},
		},
	}

	_, err = retry.Do(ctx, ix.retryOptions("upsert"), func(int) (uint32, error) {
		return ix.conn.UpsertVectors(ctx, vectors)
	})
	return err
}

// GetManyVectors implements descriptor.Source with a single fetch call.
// Ids the index does not hold yield nil entries.
func (ix *Index) GetManyVectors(ctx context.Context, elems []descriptor.Element) ([]*vector.Array, error) {
	out := make([]*vector.Array, len(elems))
	if len(elems) == 0 {
		return out, nil
	}

	ids := make([]string, len(elems))
	for i, e := range elems {
		ids[i] = e.UID()
	}

	resp, err := retry.Do(ctx, ix.retryOptions("fetch"), func(int) (*pinecone.FetchVectorsResponse, error) {
		return ix.conn.FetchVectors(ctx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %d vectors: %w", len(ids), err)
	}

	for i, id := range ids {
		pv, ok := resp.Vectors[id]
		if !ok || pv == nil || len(pv.Values) == 0 {
			continue
		}
		v := vector.FromFloat32(pv.Values)
		out[i] = &v
	}

	ix.log.Debug().
		Int("requested", len(ids)).
		Int("found", len(resp.Vectors)).
		Msg("fetched descriptor vectors")

	return out, nil
}

func (ix *Index) retryOptions(operation string) retry.Options {
	return retry.Options{
		Config:       ix.retry,
		ErrorChecker: isRetryableError,
		Logger:       ix.log,
		Operation:    "pinecone " + operation,
	}
}

// isRetryableError reports whether a Pinecone failure is transient
func isRetryableError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	default:
		return false
	}
}

// Element is a descriptor element stored in a Pinecone index
type Element struct {
	index *Index
	uid   string
}

// TypeName implements descriptor.Element
func (e *Element) TypeName() string {
	return e.index.typeName
}

// UID implements descriptor.Element
func (e *Element) UID() string {
	return e.uid
}

// Vector implements descriptor.Element
func (e *Element) Vector(ctx context.Context) (*vector.Array, error) {
	vs, err := e.index.GetManyVectors(ctx, []descriptor.Element{e})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// SetVector stores v for this element
func (e *Element) SetVector(ctx context.Context, v vector.Array) error {
	return e.index.SetVector(ctx, e.uid, v)
}

// VectorSource implements descriptor.Sourced so bulk fetches group per index
func (e *Element) VectorSource() descriptor.Source {
	return e.index
}

// loadEnvVar returns value, or the environment variable envKey when value is empty
func loadEnvVar(value string, envKey string) (string, error) {
	if value != "" {
		return value, nil
	}
	envVar := os.Getenv(envKey)
	if envVar == "" {
		return "", fmt.Errorf("%s environment variable not set and no value provided", envKey)
	}
	return envVar, nil
}
