package usecase

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/dhakamart/verifyd/internal/pkg/strcase"
	"github.com/dhakamart/verifyd/internal/verification/entity"
)

// identifierVariants enumerates every spelling historical issuance may have
// hashed for the identifier, canonical form first so lookups prefer it.
func identifierVariants(id entity.Identifier) []string {
	variants := []string{id.Canonical, id.Raw, strings.TrimSpace(id.Raw)}

	switch id.Type {
	case entity.IdentifierEmail:
		variants = append(variants, strings.ToLower(strings.TrimSpace(id.Raw)))
	case entity.IdentifierPhone:
		// Canonical is 880 + 10-digit trunk.
		trunk := id.Canonical[3:]
		variants = append(variants,
			"+"+id.Canonical,
			"0"+trunk,
			trunk,
			"8800"+trunk,
			"0880"+trunk,
			"00880"+trunk,
		)
	}

	return lo.Uniq(variants)
}

// purposeKeys enumerates the purpose spellings relevant to this request: the
// submitted label verbatim, its snake_case form, and the effective purpose.
func purposeKeys(rawPurpose string, effective string) []string {
	keys := []string{}
	if rawPurpose != "" {
		keys = append(keys, rawPurpose, strcase.ToLowerSnake(rawPurpose))
	}
	if effective != "" {
		keys = append(keys, effective)
	}
	return lo.Uniq(lo.Filter(keys, func(k string, _ int) bool { return k != "" }))
}

// rowPurposeKeys extends the request purpose keys with the spellings stored
// on a specific code row.
func rowPurposeKeys(base []string, rowPurpose string) []string {
	keys := append(append([]string{}, base...), rowPurpose, strcase.ToLowerSnake(rowPurpose))
	if p, ok := entity.NormalizePurpose(rowPurpose); ok {
		keys = append(keys, p.String())
	}
	return lo.Uniq(lo.Filter(keys, func(k string, _ int) bool { return k != "" }))
}

// messageCandidates enumerates the plaintext messages legacy issuers fed to
// their hash function. Earliest releases hashed the bare code; later ones
// prefixed the subject, then the purpose, and one release swapped the order
// and another used pipes.
func messageCandidates(userID int64, variants, purposes []string, code string) []string {
	uidStr := strconv.FormatInt(userID, 10)
	subjects := append([]string{uidStr}, variants...)

	msgs := []string{code}
	for _, s := range subjects {
		msgs = append(msgs, s+":"+code)
		for _, p := range purposes {
			msgs = append(msgs,
				s+":"+p+":"+code,
				p+":"+s+":"+code,
				s+"|"+p+"|"+code,
			)
		}
	}

	return lo.Uniq(msgs)
}

// purposeMatches reports whether a stored row label denotes the same purpose
// as any of the request purpose keys.
func purposeMatches(rowPurpose string, keys []string) bool {
	rowKeys := rowPurposeKeys(nil, rowPurpose)
	for _, rk := range rowKeys {
		for _, k := range keys {
			if rk == k {
				return true
			}
		}
	}
	return false
}
