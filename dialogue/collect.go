package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Amit-aeonx/po-agent/catalog"
	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
	"github.com/Amit-aeonx/po-agent/pathexpr"
	"github.com/Amit-aeonx/po-agent/slots"
)

func (e *Engine) collect(ctx context.Context, s *order.ConversationState, input string, analysis *nlu.Analysis) (string, error) {
	if analysis.Has(nlu.IntentCancel) || analysis.Has(nlu.IntentStartOver) {
		s.Reset()
		return cancelledText, nil
	}

	// A fresh resolver per turn keeps listing caches turn-scoped and the
	// engine free of shared mutable state across sessions.
	resolver := catalog.NewResolver(e.client)
	var notes []string

	if s.Pending != nil {
		note, settled := e.settleDisambiguation(ctx, resolver, s, input)
		if !settled {
			return note, nil
		}
		if note != "" {
			notes = append(notes, note)
		}
	}

	if analysis.Has(nlu.IntentShowOptions) {
		return e.showOptions(ctx, s)
	}

	if note := e.answerGate(s, analysis); note != "" {
		notes = append(notes, note)
	}

	if analysis.Has(nlu.IntentAddItem) && s.PendingItem == nil {
		s.PendingItem = &order.LineItem{}
	}

	resolutionNotes, pending := e.resolveMentions(ctx, resolver, s, analysis.Mentions)
	notes = append(notes, resolutionNotes...)
	if pending != nil {
		s.Pending = pending
		return strings.Join(append(notes, renderCandidates(pending)), "\n"), nil
	}

	notes = append(notes, e.applyActions(s, analysis.Actions)...)
	e.commitPendingItem(s)

	notes = append(notes, e.nextQuestion(ctx, s))
	return strings.Join(compact(notes), "\n"), nil
}

// answerGate consumes a yes/no reply to the optional-fields offer. Declining
// fills payment terms and incoterms from the first catalog entries so the
// record is submittable without further questions.
func (e *Engine) answerGate(s *order.ConversationState, analysis *nlu.Analysis) string {
	if !s.OptionalsAsked || s.OptionalsAnswered {
		return ""
	}
	switch {
	case analysis.Has(nlu.IntentConfirm):
		s.OptionalsAnswered = true
		s.OptionalsWanted = true
	case analysis.Has(nlu.IntentReject):
		s.OptionalsAnswered = true
		s.OptionalsWanted = false
		return "Alright, I will use the default payment and delivery terms."
	}
	return ""
}

// resolveMentions resolves catalog mentions in dependency order: the purchase
// organization first, because plant and group listings are scoped by it. A
// tie among candidates freezes the turn with a Disambiguation. Transport
// failures never escape the turn; the mention is reported as retryable and
// the rest of the batch continues.
func (e *Engine) resolveMentions(ctx context.Context, resolver *catalog.Resolver, s *order.ConversationState, mentions []nlu.Mention) ([]string, *order.Disambiguation) {
	sorted := make([]nlu.Mention, len(mentions))
	copy(sorted, mentions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return mentionRank(sorted[i].Category) < mentionRank(sorted[j].Category)
	})

	var notes []string
	for _, mention := range sorted {
		note, pending, err := e.resolveMention(ctx, resolver, s, mention)
		if err != nil {
			e.log.Error().Err(err).Str("mention", mention.Text).Msg("catalog lookup failed")
			notes = append(notes, fmt.Sprintf(catalogRetryText, mention.Text))
			continue
		}
		if pending != nil {
			return notes, pending
		}
		if note != "" {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

func mentionRank(category string) int {
	switch catalog.Category(category) {
	case catalog.CategoryPurchaseOrg:
		return 0
	case catalog.CategorySupplier:
		return 1
	case catalog.CategoryPlant, catalog.CategoryPurchaseGroup:
		return 2
	default:
		return 3
	}
}

func (e *Engine) resolveMention(ctx context.Context, resolver *catalog.Resolver, s *order.ConversationState, mention nlu.Mention) (string, *order.Disambiguation, error) {
	category := catalog.Category(mention.Category)
	if category == catalog.CategoryMaterial {
		return e.resolveMaterialMention(ctx, resolver, s, mention)
	}

	entry, err := resolver.Resolve(ctx, category, mention.Text, s.Order.PurchaseOrgID)
	var ambiguous *catalog.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", disambiguationFor(mention, ambiguous), nil
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Sprintf("I could not find a %s matching %q.", categoryLabel(category), mention.Text), nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return e.adoptEntry(ctx, s, category, entry)
}

func (e *Engine) resolveMaterialMention(ctx context.Context, resolver *catalog.Resolver, s *order.ConversationState, mention nlu.Mention) (string, *order.Disambiguation, error) {
	material, err := resolver.ResolveMaterial(ctx, mention.Text)
	var ambiguous *catalog.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", disambiguationFor(mention, ambiguous), nil
	}
	if errors.Is(err, catalog.ErrNotFound) {
		// Unknown materials become free-text service lines.
		if s.PendingItem == nil {
			s.PendingItem = &order.LineItem{}
		}
		if s.PendingItem.ShortText == "" {
			s.PendingItem.ShortText = mention.Text
		}
		return fmt.Sprintf("I could not find %q in the material catalog, so I will record it as a free-text item.", mention.Text), nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	e.adoptMaterial(s, material)
	return fmt.Sprintf("Material %s noted.", material.Name), nil, nil
}

func (e *Engine) adoptMaterial(s *order.ConversationState, material *catalog.Material) {
	if s.PendingItem == nil {
		s.PendingItem = &order.LineItem{}
	}
	it := s.PendingItem
	it.MaterialID = material.ID
	it.UnitID = material.UnitID
	it.MaterialGroupID = material.MaterialGroupID
	if material.TaxCode != 0 {
		it.TaxCode = material.TaxCode
	}
	if it.ShortText == "" {
		it.ShortText = material.Name
	}
	if it.Price <= 0 && material.Price > 0 {
		it.Price = material.Price
	}
}

func (e *Engine) adoptEntry(ctx context.Context, s *order.ConversationState, category catalog.Category, entry *catalog.Entry) (string, *order.Disambiguation, error) {
	switch category {
	case catalog.CategorySupplier:
		s.Order.VendorID = entry.ID
		if err := e.supplierSideEffects(ctx, s); err != nil {
			e.log.Warn().Err(err).Str("vendor_id", entry.ID).Msg("supplier detail lookup failed")
		}
	case catalog.CategoryPurchaseOrg:
		s.Order.PurchaseOrgID = entryInt(entry)
	case catalog.CategoryPlant:
		s.Order.PlantID = entry.ID
	case catalog.CategoryPurchaseGroup:
		s.Order.PurchaseGrpID = entryInt(entry)
	case catalog.CategoryPaymentTerm:
		s.Order.PaymentTerms = entryInt(entry)
		s.Order.PaymentDesc = entry.Name
	case catalog.CategoryIncoterm:
		s.Order.IncoTerms = entryInt(entry)
		s.Order.IncoDesc = entry.Name
	case catalog.CategoryProject:
		if len(s.Order.Projects) == 0 {
			s.Order.Projects = []order.Project{{}}
		}
		s.Order.Projects[0].ProjectCode = entry.ID
		s.Order.Projects[0].ProjectName = entry.Name
	default:
		return "", nil, nil
	}
	return fmt.Sprintf("%s %s noted.", categoryTitle(category), entry.Name), nil, nil
}

// supplierSideEffects pulls the optional secondary contact and seeds the
// currency from the first catalog entry when none is set yet.
func (e *Engine) supplierSideEffects(ctx context.Context, s *order.ConversationState) error {
	alt, err := e.client.AlternateSupplier(ctx, s.Order.VendorID)
	if err != nil {
		return err
	}
	if alt != nil {
		s.Order.AltSupName = alt.Name
		s.Order.AltSupEmail = alt.Email
		s.Order.AltSupContact = alt.ContactNumber
	}
	if s.Order.Currency == "" {
		currencies, err := e.client.Currencies(ctx)
		if err != nil {
			return err
		}
		if len(currencies) > 0 {
			s.Order.Currency = currencies[0]
		}
	}
	return nil
}

// applyActions splits the structured edits into line-item edits, which target
// the item under construction, and header edits, which run through the path
// mutator against the record document.
func (e *Engine) applyActions(s *order.ConversationState, actions []pathexpr.Action) []string {
	var itemActions, headerActions []pathexpr.Action
	for _, action := range actions {
		if target, ok := pendingItemPath(action.Path); ok {
			action.Path = target
			itemActions = append(itemActions, action)
			continue
		}
		headerActions = append(headerActions, action)
	}

	var notes []string
	if len(itemActions) > 0 {
		notes = append(notes, e.applyItemActions(s, itemActions)...)
	}
	if len(headerActions) > 0 {
		notes = append(notes, e.applyHeaderActions(s, headerActions)...)
	}
	return notes
}

// pendingItemPath reports whether a path addresses the item being built, and
// returns the item-relative field path. Explicitly indexed line_items paths
// address committed items and stay with the header batch.
func pendingItemPath(path string) (string, bool) {
	segments, err := pathexpr.Parse(path)
	if err != nil {
		return "", false
	}
	first := pathexpr.Canonical(segments[0].Field)
	if first == "line_items" && !segments[0].Indexed && len(segments) > 1 {
		rest := pathexpr.String(segments[1:])
		return rest, true
	}
	if len(segments) == 1 && !segments[0].Indexed && itemField(first) {
		return first, true
	}
	return "", false
}

func itemField(field string) bool {
	switch field {
	case "material_id", "short_text", "short_desc", "quantity", "price",
		"unit_id", "tax_code", "material_group_id", "delivery_date":
		return true
	}
	return false
}

func (e *Engine) applyItemActions(s *order.ConversationState, actions []pathexpr.Action) []string {
	if s.PendingItem == nil {
		s.PendingItem = &order.LineItem{}
	}
	doc, err := itemDoc(s.PendingItem)
	if err != nil {
		e.log.Warn().Err(err).Msg("line item snapshot failed")
		return nil
	}
	notes := resultNotes(pathexpr.ApplyAll(doc, actions))
	item, err := itemFromDoc(doc)
	if err != nil {
		// One unmappable value must not take its siblings down with it.
		// Replay the batch one action at a time and keep every edit that
		// round-trips on its own.
		item, notes = e.salvageItemActions(s.PendingItem, actions, notes)
	}
	s.PendingItem = item
	return notes
}

func (e *Engine) salvageItemActions(base *order.LineItem, actions []pathexpr.Action, notes []string) (*order.LineItem, []string) {
	current := base
	for _, action := range actions {
		doc, err := itemDoc(current)
		if err != nil {
			continue
		}
		pathexpr.Apply(doc, action)
		next, err := itemFromDoc(doc)
		if err != nil {
			e.log.Warn().Err(err).Str("path", action.Path).Msg("line item edit skipped")
			notes = append(notes, fmt.Sprintf("I could not apply the change to %s.", action.Path))
			continue
		}
		current = next
	}
	return current, notes
}

func (e *Engine) applyHeaderActions(s *order.ConversationState, actions []pathexpr.Action) []string {
	doc, err := s.Order.Doc()
	if err != nil {
		e.log.Warn().Err(err).Msg("record snapshot failed")
		return nil
	}
	notes := resultNotes(pathexpr.ApplyAll(doc, actions))
	record, err := order.FromDoc(doc)
	if err != nil {
		record, notes = e.salvageHeaderActions(s.Order, actions, notes)
	}
	s.Order = record
	s.Order.Recalc()
	return notes
}

func (e *Engine) salvageHeaderActions(base *order.OrderRecord, actions []pathexpr.Action, notes []string) (*order.OrderRecord, []string) {
	current := base
	for _, action := range actions {
		doc, err := current.Doc()
		if err != nil {
			continue
		}
		pathexpr.Apply(doc, action)
		next, err := order.FromDoc(doc)
		if err != nil {
			e.log.Warn().Err(err).Str("path", action.Path).Msg("record edit skipped")
			notes = append(notes, fmt.Sprintf("I could not apply the change to %s.", action.Path))
			continue
		}
		current = next
	}
	return current, notes
}

func resultNotes(results []pathexpr.Result) []string {
	var notes []string
	for _, result := range results {
		if result.Err != nil {
			notes = append(notes, fmt.Sprintf("I could not apply the change to %s.", result.Path))
		}
	}
	return notes
}

// commitPendingItem moves a finished item onto the record. An item is finished
// once it has a positive quantity and price.
func (e *Engine) commitPendingItem(s *order.ConversationState) {
	if s.PendingItem == nil || !s.PendingItem.Complete() {
		return
	}
	item := *s.PendingItem
	item.Finalize(s.Order.PODate)
	s.Order.LineItems = append(s.Order.LineItems, item)
	s.Order.Recalc()
	s.PendingItem = nil
}

// nextQuestion asks about the first missing slot, or moves to confirmation
// when nothing is missing. Declined optionals are auto-filled here so the
// record is complete before the summary.
func (e *Engine) nextQuestion(ctx context.Context, s *order.ConversationState) string {
	if s.OptionalsAnswered && !s.OptionalsWanted {
		if err := e.fillDefaultTerms(ctx, s); err != nil {
			e.log.Error().Err(err).Msg("default terms lookup failed")
			return catalogDownText
		}
	}

	missing := slots.Missing(s.Order, s.PendingItem, s.OptionalsAnswered, s.OptionalsWanted)
	if len(missing) == 0 {
		s.Step = order.StepConfirm
		return order.Summary(s.Order) + "\n" + confirmPrompt
	}
	next := missing[0]
	if next.Gate {
		s.OptionalsAsked = true
	}
	return next.Prompt
}

// fillDefaultTerms fills payment terms and incoterms from the first catalog
// entry when the user declined the optional round.
func (e *Engine) fillDefaultTerms(ctx context.Context, s *order.ConversationState) error {
	if s.Order.PaymentTerms == 0 {
		terms, err := e.client.PaymentTerms(ctx)
		if err != nil {
			return err
		}
		if len(terms) > 0 {
			s.Order.PaymentTerms = entryInt(&terms[0])
			s.Order.PaymentDesc = terms[0].Name
		}
	}
	if s.Order.IncoTerms == 0 {
		terms, err := e.client.Incoterms(ctx)
		if err != nil {
			return err
		}
		if len(terms) > 0 {
			s.Order.IncoTerms = entryInt(&terms[0])
			s.Order.IncoDesc = terms[0].Name
		}
	}
	return nil
}

// settleDisambiguation matches the user's reply against the frozen candidate
// list, by position, id or name. The second return is false while the choice
// is still open.
func (e *Engine) settleDisambiguation(ctx context.Context, resolver *catalog.Resolver, s *order.ConversationState, input string) (string, bool) {
	pending := s.Pending
	choice := pickCandidate(pending.Candidates, input)
	if choice == nil {
		return renderCandidates(pending), false
	}
	s.Pending = nil
	entry := &catalog.Entry{ID: choice.ID, Name: choice.Name}
	if catalog.Category(pending.Category) == catalog.CategoryMaterial {
		material, err := resolver.ResolveMaterial(ctx, choice.ID)
		if err == nil {
			e.adoptMaterial(s, material)
			return fmt.Sprintf("Material %s noted.", material.Name), true
		}
		e.adoptMaterial(s, &catalog.Material{ID: atoi(choice.ID), Name: choice.Name})
		return fmt.Sprintf("Material %s noted.", choice.Name), true
	}
	note, _, err := e.adoptEntry(ctx, s, catalog.Category(pending.Category), entry)
	if err != nil {
		e.log.Warn().Err(err).Msg("candidate adoption failed")
	}
	return note, true
}

func pickCandidate(candidates []order.Option, input string) *order.Option {
	trimmed := strings.TrimSpace(input)
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 1 && n <= len(candidates) {
		return &candidates[n-1]
	}
	lowered := strings.ToLower(trimmed)
	var match *order.Option
	for i := range candidates {
		c := &candidates[i]
		if strings.EqualFold(c.ID, trimmed) {
			return c
		}
		if strings.Contains(strings.ToLower(c.Name), lowered) {
			if match != nil {
				return nil
			}
			match = c
		}
	}
	return match
}

// showOptions lists the candidates for the slot currently being asked about.
func (e *Engine) showOptions(ctx context.Context, s *order.ConversationState) (string, error) {
	missing := slots.Missing(s.Order, s.PendingItem, s.OptionalsAnswered, s.OptionalsWanted)
	if len(missing) == 0 {
		return "Nothing is missing right now.", nil
	}
	category, ok := categoryForPath(missing[0].Path)
	if !ok {
		return missing[0].Prompt, nil
	}
	entries, err := e.listCategory(ctx, category, s.Order.PurchaseOrgID)
	if err != nil {
		e.log.Error().Err(err).Str("category", string(category)).Msg("catalog listing failed")
		return catalogDownText, nil
	}
	if len(entries) == 0 {
		return fmt.Sprintf("No %s options are available.", categoryLabel(category)), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Available %s options:\n", categoryLabel(category))
	for i, entry := range entries {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, entry.Name, entry.ID)
	}
	sb.WriteString(missing[0].Prompt)
	return sb.String(), nil
}

func (e *Engine) listCategory(ctx context.Context, category catalog.Category, orgID int) ([]catalog.Entry, error) {
	switch category {
	case catalog.CategorySupplier:
		return e.client.Suppliers(ctx, "")
	case catalog.CategoryPurchaseOrg:
		return e.client.PurchaseOrgs(ctx)
	case catalog.CategoryPlant:
		return e.client.Plants(ctx, orgID)
	case catalog.CategoryPurchaseGroup:
		return e.client.PurchaseGroups(ctx, orgID)
	case catalog.CategoryPaymentTerm:
		return e.client.PaymentTerms(ctx)
	case catalog.CategoryIncoterm:
		return e.client.Incoterms(ctx)
	case catalog.CategoryProject:
		return e.client.Projects(ctx)
	case catalog.CategoryMaterial:
		return e.client.Materials(ctx, "")
	}
	return nil, nil
}

// slotPathFor is the inverse of categoryForPath for the slots that freeze on
// ambiguity.
func slotPathFor(category catalog.Category) string {
	switch category {
	case catalog.CategorySupplier:
		return "vendor_id"
	case catalog.CategoryPurchaseOrg:
		return "purchase_org_id"
	case catalog.CategoryPlant:
		return "plant_id"
	case catalog.CategoryPurchaseGroup:
		return "purchase_grp_id"
	case catalog.CategoryPaymentTerm:
		return "payment_terms"
	case catalog.CategoryIncoterm:
		return "inco_terms"
	case catalog.CategoryProject:
		return "projects[0].project_code"
	case catalog.CategoryMaterial:
		return "line_items.material_id"
	}
	return ""
}

func categoryForPath(path string) (catalog.Category, bool) {
	switch {
	case path == "vendor_id":
		return catalog.CategorySupplier, true
	case path == "purchase_org_id":
		return catalog.CategoryPurchaseOrg, true
	case path == "plant_id":
		return catalog.CategoryPlant, true
	case path == "purchase_grp_id":
		return catalog.CategoryPurchaseGroup, true
	case path == "payment_terms":
		return catalog.CategoryPaymentTerm, true
	case path == "inco_terms":
		return catalog.CategoryIncoterm, true
	case strings.HasPrefix(path, "projects"):
		return catalog.CategoryProject, true
	case strings.Contains(path, "material_id") || path == "line_items":
		return catalog.CategoryMaterial, true
	}
	return "", false
}

func disambiguationFor(mention nlu.Mention, ambiguous *catalog.AmbiguousError) *order.Disambiguation {
	options := make([]order.Option, 0, len(ambiguous.Candidates))
	for _, candidate := range ambiguous.Candidates {
		options = append(options, order.Option{ID: candidate.ID, Name: candidate.Name})
	}
	return &order.Disambiguation{
		Path:       slotPathFor(catalog.Category(mention.Category)),
		Category:   mention.Category,
		Mention:    mention.Text,
		Candidates: options,
	}
}

func itemDoc(it *order.LineItem) (map[string]any, error) {
	raw, err := sonic.Marshal(it)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func itemFromDoc(doc map[string]any) (*order.LineItem, error) {
	raw, err := sonic.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var it order.LineItem
	if err := sonic.Unmarshal(raw, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func entryInt(entry *catalog.Entry) int {
	return atoi(entry.ID)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func compact(notes []string) []string {
	out := notes[:0]
	for _, note := range notes {
		if note != "" {
			out = append(out, note)
		}
	}
	return out
}
