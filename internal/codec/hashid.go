package codec

import (
	"fmt"
	"strings"

	hashids "github.com/speps/go-hashids/v2"

	"github.com/saucelist/saucelist/internal/domain"
)

// HashLength is the minimum length of an encoded review id.
const HashLength = 10

// ReviewIDCodec encodes a review's (sauceID, userID) composite key into a
// short URL-friendly id. The salt is derived from the composite key plus the
// server secret, so the same pair under the same secret always yields the
// same id.
type ReviewIDCodec struct {
	secret string
}

// NewReviewIDCodec builds a codec. An absent secret is a configuration error
// and is rejected immediately rather than at encode time.
func NewReviewIDCodec(secret string) (*ReviewIDCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, domain.ErrDependency("hash id secret is not configured").
			WithCode(domain.ErrorCodeMissingSecret)
	}
	return &ReviewIDCodec{secret: secret}, nil
}

func (c *ReviewIDCodec) hasher(sauceID, userID int64) (*hashids.HashID, error) {
	data := hashids.NewData()
	data.Salt = fmt.Sprintf("%d.%d.%s", sauceID, userID, c.secret)
	data.MinLength = HashLength
	return hashids.NewWithData(data)
}

// Encode produces the compact id for the composite key.
func (c *ReviewIDCodec) Encode(sauceID, userID int64) (string, error) {
	h, err := c.hasher(sauceID, userID)
	if err != nil {
		return "", domain.ErrDependency("could not build hash id encoder")
	}
	id, err := h.EncodeInt64([]int64{sauceID, userID})
	if err != nil {
		return "", domain.ErrDependency("could not encode review id")
	}
	return id, nil
}

// Decode recovers the composite key from a compact id. The salt depends on
// the composite key itself, so the expected pair must be supplied; the
// round-trip property is that decoding an id produced for (s, u) yields
// exactly (s, u). Decoding is not exercised by request handling today but the
// property is kept for forward compatibility.
func (c *ReviewIDCodec) Decode(id string, sauceID, userID int64) (int64, int64, error) {
	h, err := c.hasher(sauceID, userID)
	if err != nil {
		return 0, 0, domain.ErrDependency("could not build hash id encoder")
	}
	vals, err := h.DecodeInt64WithError(id)
	if err != nil || len(vals) != 2 {
		return 0, 0, domain.ErrDependency("could not decode review id")
	}
	return vals[0], vals[1], nil
}
