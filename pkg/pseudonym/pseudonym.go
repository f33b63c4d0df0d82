// Package pseudonym removes duplicate records and replaces the identity of
// non-public repositories with stable pseudonyms.
//
// A pseudonym is the policy prefix followed by a truncated keyed BLAKE2b digest
// of the real identifier. The key is derived from a run salt that never leaves
// the internal environment, so pseudonyms are stable across runs sharing a
// salt and cannot be reversed without it.
package pseudonym

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// HashFunc computes the digest of realID under key.
type HashFunc func(key []byte, realID string) []byte

// Pseudonymizer derives pseudonyms for real identifiers.
type Pseudonymizer struct {
	prefix string
	length int
	key    []byte
	hash   HashFunc
}

// Option configures a Pseudonymizer.
type Option func(*Pseudonymizer)

// WithHashFunc replaces the keyed BLAKE2b digest.
func WithHashFunc(fn HashFunc) Option {
	return func(ps *Pseudonymizer) {
		if fn != nil {
			ps.hash = fn
		}
	}
}

// New creates a Pseudonymizer keyed by salt. The prefix and length come from p.
func New(salt []byte, p *policy.Policy, opts ...Option) (*Pseudonymizer, error) {
	if len(salt) == 0 {
		return nil, errors.NewValidationError("salt", nil, "pseudonym salt is required")
	}
	if p == nil {
		p = policy.Default()
	}

	key := blake2b.Sum512(salt)
	ps := &Pseudonymizer{
		prefix: p.PseudonymPrefix(),
		length: p.PseudonymLength(),
		key:    key[:],
		hash:   keyedBlake2b,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps, nil
}

// Pseudonym returns the pseudonym of realID without collision handling.
func (ps *Pseudonymizer) Pseudonym(realID string) string {
	digest := hex.EncodeToString(ps.hash(ps.key, realID))
	if len(digest) > ps.length {
		digest = digest[:ps.length]
	}
	return ps.prefix + digest
}

// AssignResult holds pseudonymized records and the cross-reference mappings.
type AssignResult struct {
	Records  []inventory.CanonicalRecord
	Mappings []inventory.PseudonymMapping
	Entries  []runlog.Entry
}

// Assign pseudonymizes every non-public record. Public records pass through
// unchanged. Collisions are resolved by suffixing -2, -3, ... in order of real
// identifier, so the outcome does not depend on input order. Mappings are
// sorted by real identifier.
func (ps *Pseudonymizer) Assign(records []inventory.CanonicalRecord) AssignResult {
	res := AssignResult{Records: make([]inventory.CanonicalRecord, len(records))}

	var private []int
	for i, rec := range records {
		res.Records[i] = rec.Clone()
		if rec.IsWithheld() {
			private = append(private, i)
		}
	}
	sort.SliceStable(private, func(a, b int) bool {
		return res.Records[private[a]].RealID < res.Records[private[b]].RealID
	})

	owner := make(map[string]string) // pseudonym -> real id
	assigned := make(map[string]string)
	for _, i := range private {
		rec := &res.Records[i]
		name, ok := assigned[rec.RealID]
		if !ok {
			name = ps.Pseudonym(rec.RealID)
			if other, taken := owner[name]; taken && other != rec.RealID {
				base := name
				for n := 2; ; n++ {
					name = fmt.Sprintf("%s-%d", base, n)
					if _, taken := owner[name]; !taken {
						break
					}
				}
				err := &errors.CollisionWarning{Pseudonym: base, Disambiguated: name}
				entry := runlog.Warning(runlog.KindPseudonymCollision, rec.RealID, err)
				entry.Organization = rec.SourceOrganization
				res.Entries = append(res.Entries, entry)
			}
			owner[name] = rec.RealID
			assigned[rec.RealID] = name
			res.Mappings = append(res.Mappings, inventory.PseudonymMapping{
				RealID:       rec.RealID,
				Pseudonym:    name,
				Organization: rec.SourceOrganization,
			})
		}
		rec.Identifier = name
		rec.PrivateID = name
	}
	return res
}

func keyedBlake2b(key []byte, realID string) []byte {
	h, err := blake2b.New256(key)
	if err != nil {
		// key is always a 64 byte Sum512 digest
		panic(err)
	}
	h.Write([]byte(realID))
	return h.Sum(nil)
}
