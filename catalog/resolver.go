package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resolver maps free-text mentions to catalog entries. Matching is applied in
// three steps, first success wins: exact id, unique substring of the display
// name, then all-tokens substring. Zero matches after all steps is ErrNotFound;
// several textual matches surface as AmbiguousError so the dialogue layer can
// let the user pick. Lookups are read-only; listings are cached for one turn.
type Resolver struct {
	client Client
	cache  map[string][]Entry
	log    zerolog.Logger
}

func NewResolver(client Client) *Resolver {
	return &Resolver{
		client: client,
		cache:  map[string][]Entry{},
		log:    log.With().Str("component", "resolver").Logger(),
	}
}

// BeginTurn drops the listing cache; call once per conversation turn.
func (r *Resolver) BeginTurn() {
	r.cache = map[string][]Entry{}
}

// Resolve finds the best match for a mention in the given category. Plant and
// purchase-group lookups are scoped to orgID when it is non-zero.
func (r *Resolver) Resolve(ctx context.Context, category Category, mention string, orgID int) (*Entry, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return nil, ErrNotFound
	}
	candidates, err := r.list(ctx, category, mention, orgID)
	if err != nil {
		return nil, err
	}

	// Step 1: exact id match, case-insensitive.
	var byID []Entry
	for _, e := range candidates {
		if strings.EqualFold(e.ID, mention) {
			byID = append(byID, e)
		}
	}
	if len(byID) == 1 {
		return &byID[0], nil
	}
	if len(byID) > 1 {
		return nil, ErrNotFound
	}

	// Step 2: case-insensitive substring of the display name.
	lower := strings.ToLower(mention)
	var byName []Entry
	for _, e := range candidates {
		if strings.Contains(strings.ToLower(e.Name), lower) {
			byName = append(byName, e)
		}
	}
	if len(byName) == 1 {
		return &byName[0], nil
	}
	if len(byName) > 1 {
		return nil, &AmbiguousError{Mention: mention, Candidates: byName}
	}

	// Step 3: every whitespace/hyphen token appears in the display name.
	tokens := strings.FieldsFunc(lower, func(r rune) bool { return r == ' ' || r == '\t' || r == '-' })
	if len(tokens) > 0 {
		var byTokens []Entry
		for _, e := range candidates {
			name := strings.ToLower(e.Name)
			all := true
			for _, tok := range tokens {
				if !strings.Contains(name, tok) {
					all = false
					break
				}
			}
			if all {
				byTokens = append(byTokens, e)
			}
		}
		if len(byTokens) == 1 {
			return &byTokens[0], nil
		}
		if len(byTokens) > 1 {
			return nil, &AmbiguousError{Mention: mention, Candidates: byTokens}
		}
	}

	r.log.Debug().Str("category", string(category)).Str("mention", mention).Msg("no catalog match")
	return nil, ErrNotFound
}

// ResolveMaterial resolves a material mention and decodes its detail fields.
func (r *Resolver) ResolveMaterial(ctx context.Context, mention string) (*Material, error) {
	entry, err := r.Resolve(ctx, CategoryMaterial, mention, 0)
	if err != nil {
		return nil, err
	}
	m := MaterialFromEntry(*entry)
	return &m, nil
}

func (r *Resolver) list(ctx context.Context, category Category, mention string, orgID int) ([]Entry, error) {
	key := fmt.Sprintf("%s/%d", category, orgID)
	// Query-driven collections are cached per mention, not per collection.
	if category == CategorySupplier || category == CategoryMaterial {
		key = fmt.Sprintf("%s/%s", category, strings.ToLower(mention))
	}
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}

	var (
		entries []Entry
		err     error
	)
	switch category {
	case CategorySupplier:
		entries, err = r.client.Suppliers(ctx, mention)
	case CategoryMaterial:
		entries, err = r.client.Materials(ctx, mention)
	case CategoryPlant:
		entries, err = r.client.Plants(ctx, orgID)
	case CategoryPurchaseOrg:
		entries, err = r.client.PurchaseOrgs(ctx)
	case CategoryPurchaseGroup:
		entries, err = r.client.PurchaseGroups(ctx, orgID)
	case CategoryProject:
		entries, err = r.client.Projects(ctx)
	case CategoryPaymentTerm:
		entries, err = r.client.PaymentTerms(ctx)
	case CategoryIncoterm:
		entries, err = r.client.Incoterms(ctx)
	case CategoryTaxCode:
		entries, err = r.client.TaxCodes(ctx)
	default:
		return nil, fmt.Errorf("unknown lookup category %q", category)
	}
	if err != nil {
		return nil, err
	}
	r.cache[key] = entries
	return entries, nil
}
