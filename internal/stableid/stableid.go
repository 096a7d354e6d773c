// Package stableid derives entity references. The stable-hash strategy is
// a pure function of domain-separated content fields, so identical logical
// input yields identical references on every run.
package stableid

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/digest"
)

// Domain separation tags.
const (
	TagResource = "R"
	TagRelease  = "L"
	TagParty    = "P"
	TagDeal     = "D"
	TagMessage  = "M"
)

// hashChars is how many base32 characters a stable reference keeps.
const hashChars = 20

// Kind selects the reference letter and domain tag.
type Kind uint8

const (
	Resource Kind = iota
	Release
	Party
	Deal
	Message
)

var kinds = [...]struct {
	letter string
	tag    string
}{
	Resource: {"A", TagResource},
	Release:  {"R", TagRelease},
	Party:    {"P", TagParty},
	Deal:     {"D", TagDeal},
	Message:  {"M", TagMessage},
}

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Hash builds tag||0x00||field1||0x00||field2... and returns the first 20
// lowercase base32 characters of its digest.
func Hash(alg config.HashAlgorithm, tag string, fields ...string) string {
	h := digest.New(alg)
	io.WriteString(h, tag)
	for _, f := range fields {
		h.Write([]byte{0})
		io.WriteString(h, f)
	}
	return strings.ToLower(encoding.EncodeToString(h.Sum(nil)))[:hashChars]
}

// Generator issues references under one strategy. It is not safe for
// concurrent use.
type Generator struct {
	strategy config.IDStrategy
	alg      config.HashAlgorithm
	clock    func() time.Time
	entropy  io.Reader
	counters [len(kinds)]int
	skip     [len(kinds)]bool
	used     map[string]bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock injects the clock used by time-ordered identifiers.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) { g.clock = clock }
}

// WithEntropy replaces the random source for random and time-ordered
// identifiers.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) { g.entropy = r }
}

// Skip makes Assign leave empty references of the given kinds empty.
func Skip(ks ...Kind) Option {
	return func(g *Generator) {
		for _, k := range ks {
			g.skip[k] = true
		}
	}
}

// New creates a generator.
func New(strategy config.IDStrategy, alg config.HashAlgorithm, opts ...Option) *Generator {
	g := &Generator{
		strategy: strategy,
		alg:      alg,
		clock:    time.Now,
		entropy:  rand.Reader,
		used:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Reserve marks existing references so generated ones never collide.
func (g *Generator) Reserve(refs ...string) {
	for _, r := range refs {
		if r != "" {
			g.used[r] = true
		}
	}
}

// Next issues a reference for kind. fields feed the stable hash and are
// ignored by the other strategies. A stable-hash collision is resolved by
// hashing again with an occurrence counter appended.
func (g *Generator) Next(kind Kind, fields ...string) string {
	k := kinds[kind]
	var ref string
	switch g.strategy {
	case config.IDRandom128:
		ref = g.fresh(func() string { return k.letter + hexUUID(g.random()) })
	case config.IDTimeOrderedUUID:
		ref = g.fresh(func() string { return k.letter + hexUUID(g.timeOrdered()) })
	case config.IDSequential:
		ref = g.fresh(func() string {
			g.counters[kind]++
			return k.letter + strconv.Itoa(g.counters[kind])
		})
	default:
		ref = k.letter + Hash(g.alg, k.tag, fields...)
		for n := 2; g.used[ref]; n++ {
			ref = k.letter + Hash(g.alg, k.tag, append(slices.Clone(fields), "#"+strconv.Itoa(n))...)
		}
	}
	g.used[ref] = true
	return ref
}

func (g *Generator) fresh(issue func() string) string {
	for {
		if ref := issue(); !g.used[ref] {
			return ref
		}
	}
}

func (g *Generator) random() uuid.UUID {
	id, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return uuid.New()
	}
	return id
}

// timeOrdered lays a ULID over the UUIDv7 layout: 48-bit millisecond
// timestamp, then version and variant bits over the random tail.
func (g *Generator) timeOrdered() uuid.UUID {
	id, err := ulid.New(ulid.Timestamp(g.clock()), g.entropy)
	if err != nil {
		id = ulid.Make()
	}
	u := uuid.UUID(id)
	u[6] = (u[6] & 0x0f) | 0x70
	u[8] = (u[8] & 0x3f) | 0x80
	return u
}

func hexUUID(u uuid.UUID) string {
	return hex.EncodeToString(u[:])
}

// Sorted returns a sorted copy joined with commas, used for set-valued
// fields.
func Sorted(values []string) string {
	s := slices.Clone(values)
	slices.Sort(s)
	return strings.Join(slices.Compact(s), ",")
}
