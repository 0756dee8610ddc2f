package components

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// Crockford base32 without I, L, O and U
const referenceAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const referenceSuffixLength = 10

// randomBytes are the uuid v4 byte positions that carry no version or variant bits
var randomBytes = [referenceSuffixLength]int{0, 1, 2, 3, 4, 5, 10, 11, 12, 13}

// ReferenceGeneratorImpl builds PREFIX-YYYYMMDD-XXXXXXXXXX identifiers
type ReferenceGeneratorImpl struct {
	prefix string
}

// NewReferenceGenerator creates a generator for the given prefix
func NewReferenceGenerator(prefix string) service.ReferenceGenerator {
	return &ReferenceGeneratorImpl{prefix: prefix}
}

func (g *ReferenceGeneratorImpl) Generate(now time.Time) string {
	id := uuid.New()

	var b strings.Builder
	b.Grow(len(g.prefix) + 1 + 8 + 1 + referenceSuffixLength)
	b.WriteString(g.prefix)
	b.WriteByte('-')
	b.WriteString(now.UTC().Format("20060102"))
	b.WriteByte('-')
	for _, i := range randomBytes {
		b.WriteByte(referenceAlphabet[id[i]&0x1f])
	}
	return b.String()
}
