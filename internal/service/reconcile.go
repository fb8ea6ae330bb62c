package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
	"intake/internal/utils"
)

// Fields tracked in UnfilledFields, per form kind
var (
	inventoryTrackedFields = []string{
		"type", "property_type", "furnish_type", "price", "currency", "transaction",
		"duration", "duration_type", "start_date", "end_date", "bedrooms", "bathrooms",
		"no_master_bedroom", "location", "listed_by", "tag", "deal_type", "reference_id",
		"whatsapp_message", "is_urgent", "is_direct", "bua", "options_required",
		"image_urls", "client_name", "client_phone", "client_email", "privacy",
	}
	requestTrackedFields = []string{
		"type", "status", "privacy", "price", "currency", "transaction", "duration",
		"duration_type", "start_date", "end_date", "bedrooms", "bathrooms",
		"no_master_bedroom", "furnish_type", "deal_type", "reference_id", "locations",
		"property_types_required", "options_required", "client_user", "tag",
		"is_urgent", "is_direct", "bua", "whatsapp_message", "client_name",
		"client_phone", "client_email",
	}
)

// TrackedFields lists the fields reported in UnfilledFields for a kind
func TrackedFields(kind model.FormKind) []string {
	if kind == model.KindRequest {
		return append([]string(nil), requestTrackedFields...)
	}
	return append([]string(nil), inventoryTrackedFields...)
}

// Reconciler turns one raw AI extraction into a complete form state plus the
// set of fields the AI left unfilled.
type Reconciler struct {
	locations   LocationLookup
	ranker      *Ranker
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
}

// NewReconciler creates an engine. locations may be nil, in which case only
// the local location catalog is consulted.
func NewReconciler(locations LocationLookup, cfg *config.ReconcileConfig) *Reconciler {
	concurrency := cfg.LocationConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	limit := rate.Inf
	if cfg.LocationRPS > 0 {
		limit = rate.Limit(cfg.LocationRPS)
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reconciler{
		locations:   locations,
		ranker:      DefaultRanker(),
		limiter:     rate.NewLimiter(limit, concurrency),
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// Offline returns an engine sharing this one's settings that never calls the
// remote location lookup
func (r *Reconciler) Offline() *Reconciler {
	cp := *r
	cp.locations = nil
	return &cp
}

// Reconcile parses raw and builds a form of the given kind from it, falling
// back to the kind's baseline for anything the extraction does not supply.
// current is never modified; its timestamp, source, assignment and message
// text carry over. A parse failure returns *errors.MalformedResponseError.
func (r *Reconciler) Reconcile(ctx context.Context, raw string, kind model.FormKind, catalogs *model.Catalogs, current model.FormState) (*model.ReconciliationResult, error) {
	if kind != model.KindInventory && kind != model.KindRequest {
		return nil, apperrors.NewValidationError("kind", kind, "kind must be Inventory or Request")
	}
	obj, err := utils.ParseAIObject(raw)
	if err != nil {
		return nil, err
	}
	if catalogs == nil {
		catalogs = &model.Catalogs{}
	}

	f := &fields{data: utils.DataObject(obj), unfilled: model.UnfilledFields{}}
	state := model.InitialFormState(kind)
	if kind == model.KindRequest {
		err = r.reconcileRequest(ctx, f, catalogs, current, state.Request)
	} else {
		err = r.reconcileInventory(ctx, f, catalogs, current, state.Inventory)
	}
	if err != nil {
		return nil, err
	}

	result := &model.ReconciliationResult{Form: state, UnfilledFields: f.unfilled}
	if opts, ok := f.options(); ok {
		result.CatalogPatch = &model.CatalogPatch{RequestOptions: opts}
	}

	logging.FromContext(ctx).Info().
		Str("kind", string(kind)).
		Int("unfilled", f.unfilled.Count()).
		Bool("catalog_patch", result.CatalogPatch != nil).
		Msg("✅ Reconciled extraction")
	return result, nil
}

func (r *Reconciler) reconcileInventory(ctx context.Context, f *fields, catalogs *model.Catalogs, current model.FormState, form *model.InventoryForm) error {
	if current.Kind == model.KindInventory && current.Inventory != nil {
		form.Timestamp = current.Inventory.Timestamp
		form.Source = current.Inventory.Source
	}

	typeRaw, typeOK := f.get("type")
	if typeOK {
		form.Type = inventoryType(typeRaw)
	}
	f.mark("type", typeOK && utils.IsFilled(typeRaw))

	f.common(commonFields{
		Type: form.Type, Price: &form.Price, Currency: &form.Currency, Transaction: &form.Transaction,
		Duration: &form.Duration, DurationType: &form.DurationType, StartDate: &form.StartDate, EndDate: &form.EndDate,
		Bedrooms: &form.Bedrooms, Bathrooms: &form.Bathrooms, NoMasterBedroom: &form.NoMasterBedroom,
		FurnishType: &form.FurnishType, DealType: &form.DealType, ReferenceID: &form.ReferenceID,
		IsUrgent: &form.IsUrgent, IsDirect: &form.IsDirect, BUA: &form.BUA, Options: &form.OptionsRequired,
		ClientName: &form.ClientName, ClientPhone: &form.ClientPhone, ClientEmail: &form.ClientEmail,
		Privacy: &form.Privacy, WhatsappMessage: &form.WhatsappMessage,
	}, current.WhatsappMessage())

	urls := []string{}
	for _, v := range f.slice("image_urls") {
		if s, ok := utils.AsString(v); ok {
			urls = append(urls, s)
		}
	}
	form.ImageURLs = urls
	f.mark("image_urls", len(urls) > 0)

	if v, ok := f.get("property_type"); ok {
		if pt, found := utils.FindByNameOrID(catalogs.PropertyTypes, firstOf(v)); found {
			form.PropertyType = &pt
		}
	}
	f.mark("property_type", form.PropertyType != nil)

	if v, ok := f.get("listed_by", "user"); ok {
		if u, found := utils.FindByNameOrID(catalogs.Users, v); found {
			form.ListedBy = &u
		}
	}
	f.mark("listed_by", form.ListedBy != nil)

	group := model.TagGroupRent
	if form.Type == model.TypeForSale {
		group = model.TagGroupSell
	}
	tags := catalogs.TagsFor(group)
	for _, v := range f.slice("tag", "tags") {
		if tag, found := utils.FindByNameOrID(tags, v); found {
			form.Tag = &tag
			break
		}
	}
	f.mark("tag", form.Tag != nil)

	if v, ok := f.get("location"); ok {
		loc, found, err := r.resolveLocation(ctx, catalogs.Locations, firstOf(v))
		if err != nil {
			return err
		}
		if found {
			form.Location = &loc
		}
	}
	f.mark("location", form.Location != nil)
	return nil
}

func (r *Reconciler) reconcileRequest(ctx context.Context, f *fields, catalogs *model.Catalogs, current model.FormState, form *model.RequestForm) error {
	if current.Kind == model.KindRequest && current.Request != nil {
		form.Source = current.Request.Source
		form.AssignedAgent = current.Request.AssignedAgent
		form.Owner = current.Request.Owner
	}

	typeRaw, typeOK := f.get("type")
	if typeOK {
		form.Type = requestType(typeRaw)
	}
	f.mark("type", typeOK && utils.IsFilled(typeRaw))

	f.common(commonFields{
		Type: form.Type, Price: &form.Price, Currency: &form.Currency, Transaction: &form.Transaction,
		Duration: &form.Duration, DurationType: &form.DurationType, StartDate: &form.StartDate, EndDate: &form.EndDate,
		Bedrooms: &form.Bedrooms, Bathrooms: &form.Bathrooms, NoMasterBedroom: &form.NoMasterBedroom,
		FurnishType: &form.FurnishType, DealType: &form.DealType, ReferenceID: &form.ReferenceID,
		IsUrgent: &form.IsUrgent, IsDirect: &form.IsDirect, BUA: &form.BUA, Options: &form.OptionsRequired,
		ClientName: &form.ClientName, ClientPhone: &form.ClientPhone, ClientEmail: &form.ClientEmail,
		Privacy: &form.Privacy, WhatsappMessage: &form.WhatsappMessage,
	}, current.WhatsappMessage())

	if v, ok := f.get("status"); ok {
		if s, filled := utils.AsString(v); filled {
			form.Status = utils.CapitalizeFirst(s)
			f.mark("status", true)
		} else {
			f.mark("status", false)
		}
	} else {
		f.mark("status", false)
	}

	seenType := map[int]bool{}
	for _, v := range f.slice("property_types_required", "property_type", "property_types") {
		if pt, found := utils.FindByNameOrID(catalogs.PropertyTypes, v); found && !seenType[pt.ID] {
			seenType[pt.ID] = true
			form.PropertyTypesRequired = append(form.PropertyTypesRequired, pt.ID)
		}
	}
	f.mark("property_types_required", len(form.PropertyTypesRequired) > 0)

	if v, ok := f.get("client_user", "user"); ok {
		if u, found := utils.FindByNameOrID(catalogs.Users, v); found {
			form.ClientUser = &u
		}
	}
	f.mark("client_user", form.ClientUser != nil)

	group := model.TagGroupRent
	if form.Type == model.TypeBuy {
		group = model.TagGroupBuy
	}
	tags := catalogs.TagsFor(group)
	seenTag := map[int]bool{}
	for _, v := range f.slice("tag", "tags") {
		if tag, found := utils.FindByNameOrID(tags, v); found && !seenTag[tag.ID] {
			seenTag[tag.ID] = true
			form.Tags = append(form.Tags, tag)
		}
	}
	f.mark("tag", len(form.Tags) > 0)

	locations, err := r.resolveLocations(ctx, catalogs.Locations, f.slice("locations", "location"))
	if err != nil {
		return err
	}
	form.Locations = locations
	f.mark("locations", len(locations) > 0)
	return nil
}

// resolveLocations resolves every raw location concurrently. The output keeps
// input order, drops misses and collapses duplicate ids.
func (r *Reconciler) resolveLocations(ctx context.Context, local []model.Location, raws []any) ([]model.Location, error) {
	found := make([]*model.Location, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, raw := range raws {
		g.Go(func() error {
			loc, ok, err := r.resolveLocation(gctx, local, raw)
			if err != nil {
				return err
			}
			if ok {
				found[i] = &loc
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []model.Location{}
	seen := map[int]bool{}
	for _, loc := range found {
		if loc == nil || seen[loc.ID] {
			continue
		}
		seen[loc.ID] = true
		out = append(out, *loc)
	}
	return out, nil
}

// resolveLocation tries the local catalog, then the remote lookup with the
// queries from locationQueries. Lookup failures count as zero results; only
// cancellation of ctx is returned as an error.
func (r *Reconciler) resolveLocation(ctx context.Context, local []model.Location, raw any) (model.Location, bool, error) {
	if loc, ok := utils.FindByNameOrID(local, raw); ok {
		return loc, true, nil
	}

	text := locationText(raw)
	if text == "" || r.locations == nil {
		return model.Location{}, false, nil
	}

	log := logging.FromContext(ctx)
	segments := locationSegments(text)
	for _, q := range locationQueries(text) {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return model.Location{}, false, ctx.Err()
			}
			log.Warn().Err(err).Str("query", q).Msg("⚠️  Location lookup skipped")
			return model.Location{}, false, nil
		}

		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		candidates, err := r.locations.SearchLocations(lookupCtx, q)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return model.Location{}, false, ctx.Err()
			}
			log.Warn().Err(err).Str("query", q).Msg("⚠️  Location lookup failed, treating as no match")
			continue
		}
		if loc, ok := r.ranker.Best(candidates, segments[0], segments); ok {
			log.Debug().Str("query", q).Int("id", loc.ID).Str("name", loc.Name).Msg("📍 Location resolved")
			return loc, true, nil
		}
	}
	return model.Location{}, false, nil
}

// locationText is the place name carried by a raw location value
func locationText(raw any) string {
	switch t := raw.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, key := range []string{"name", "full_name"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// locationSegments splits "New Cairo, Cairo" into ["New Cairo", "Cairo"]
func locationSegments(text string) []string {
	var segments []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// locationQueries is the full text, then its segments from broadest (last) to
// narrowest (first), without repeats
func locationQueries(text string) []string {
	segments := locationSegments(text)
	queries := []string{text}
	seen := map[string]bool{utils.NormalizeName(text): true}
	for i := len(segments) - 1; i >= 0; i-- {
		key := utils.NormalizeName(segments[i])
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, segments[i])
	}
	return queries
}

func inventoryType(v any) string {
	s, _ := utils.AsString(v)
	switch utils.NormalizeName(s) {
	case "sell", "sale", "for sale", "for_sale":
		return model.TypeForSale
	}
	return model.TypeForRent
}

func requestType(v any) string {
	s, _ := utils.AsString(v)
	switch utils.NormalizeName(s) {
	case "buy", "purchase":
		return model.TypeBuy
	}
	return model.TypeRent
}

func dealType(s string) string {
	switch utils.NormalizeName(s) {
	case "side-by-side", "side by side":
		return model.DealSideBySide
	}
	return model.DealFiftyFifty
}

// firstOf returns the first element of an array value, or the value itself
func firstOf(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

// fields reads an extraction payload and records which fields it filled
type fields struct {
	data     map[string]any
	unfilled model.UnfilledFields
}

// commonFields points at the fields both form variants share
type commonFields struct {
	Type            string
	Price           *float64
	Currency        *string
	Transaction     *string
	Duration        *int
	DurationType    *string
	StartDate       *string
	EndDate         *string
	Bedrooms        *int
	Bathrooms       *int
	NoMasterBedroom *int
	FurnishType     *string
	DealType        *string
	ReferenceID     *string
	IsUrgent        *bool
	IsDirect        *bool
	BUA             *float64
	Options         *[]model.Option
	ClientName      *string
	ClientPhone     *string
	ClientEmail     *string
	Privacy         *string
	WhatsappMessage *string
}

// get returns the first non-null value among keys
func (f *fields) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := f.data[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// budget reads key from the budget object, falling back to the root
func (f *fields) budget(key string) (any, bool) {
	if b, ok := f.data["budget"].(map[string]any); ok {
		if v, ok := b[key]; ok && v != nil {
			return v, true
		}
	}
	return f.get(key)
}

// filled returns the first value among keys that carries usable data.
// Models often send an empty plural key next to a filled singular one.
func (f *fields) filled(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := f.data[k]; ok && utils.IsFilled(v) {
			return v, true
		}
	}
	return nil, false
}

// slice returns the first filled key as a list, wrapping scalars
func (f *fields) slice(keys ...string) []any {
	v, ok := f.filled(keys...)
	if !ok {
		return nil
	}
	return utils.AsSlice(v)
}

func (f *fields) mark(field string, filled bool) {
	f.unfilled[field] = !filled
}

func (f *fields) text(field string, v any, present bool, dst *string, transform func(string) string) {
	s, ok := utils.AsString(v)
	ok = present && ok
	if ok {
		if transform != nil {
			s = transform(s)
		}
		*dst = s
	}
	f.mark(field, ok)
}

func (f *fields) number(field string, v any, present bool, dst *float64) {
	n, ok := utils.AsFloat(v)
	ok = present && ok && n != 0
	if ok {
		*dst = n
	}
	f.mark(field, ok)
}

func (f *fields) count(field string, v any, present bool, dst *int) {
	ok := present && utils.IsFilledCount(v)
	if ok {
		*dst, _ = utils.AsInt(v)
	}
	f.mark(field, ok)
}

func (f *fields) flag(field string, v any, present bool, dst *bool) {
	b, ok := utils.AsBool(v)
	ok = present && ok
	if ok {
		*dst = b
	}
	f.mark(field, ok)
}

// options returns the extracted option vocabulary when the payload has one
func (f *fields) options() ([]model.Option, bool) {
	v, ok := f.filled("options", "more_options", "options_required")
	if !ok {
		return nil, false
	}
	opts := model.NormalizeOptions(v)
	return opts, len(opts) > 0
}

// common fills the scalar fields shared by both variants
func (f *fields) common(c commonFields, fallbackMessage string) {
	v, ok := f.budget("price")
	f.number("price", v, ok, c.Price)
	v, ok = f.budget("currency")
	f.text("currency", v, ok, c.Currency, strings.ToUpper)

	v, ok = f.budget("transaction")
	f.text("transaction", v, ok, c.Transaction, utils.CapitalizeFirst)
	if f.unfilled["transaction"] {
		*c.Transaction = model.TransactionMonthly
		if c.Type == model.TypeForSale || c.Type == model.TypeBuy {
			*c.Transaction = model.TransactionCash
		}
	}

	f.duration(c)

	v, ok = f.get("start_date")
	f.text("start_date", v, ok, c.StartDate, nil)
	v, ok = f.get("end_date")
	f.text("end_date", v, ok, c.EndDate, nil)

	v, ok = f.get("no_bedroom", "bedrooms")
	f.count("bedrooms", v, ok, c.Bedrooms)
	v, ok = f.get("no_bathroom", "bathrooms")
	f.count("bathrooms", v, ok, c.Bathrooms)
	v, ok = f.get("no_master_bedroom", "master_bedrooms")
	f.count("no_master_bedroom", v, ok, c.NoMasterBedroom)

	v, ok = f.get("furnish_type")
	f.text("furnish_type", v, ok, c.FurnishType, utils.CapitalizeFirst)
	v, ok = f.get("deal_type")
	f.text("deal_type", v, ok, c.DealType, dealType)
	v, ok = f.get("reference_id")
	f.text("reference_id", v, ok, c.ReferenceID, nil)
	v, ok = f.get("privacy")
	f.text("privacy", v, ok, c.Privacy, utils.CapitalizeFirst)

	v, ok = f.get("urgent", "is_urgent")
	f.flag("is_urgent", v, ok, c.IsUrgent)
	v, ok = f.get("direct", "is_direct")
	f.flag("is_direct", v, ok, c.IsDirect)

	v, ok = f.get("bua")
	f.number("bua", v, ok, c.BUA)

	opts, ok := f.options()
	if ok {
		*c.Options = opts
	}
	f.mark("options_required", ok)

	client, _ := f.data["client"].(map[string]any)
	for _, cf := range []struct {
		key   string
		field string
		dst   *string
	}{
		{"name", "client_name", c.ClientName},
		{"phone", "client_phone", c.ClientPhone},
		{"email", "client_email", c.ClientEmail},
	} {
		v, ok := client[cf.key]
		if !ok || v == nil {
			v, ok = f.get(cf.field)
		}
		f.text(cf.field, v, ok, cf.dst, nil)
	}

	v, ok = f.get("whatsapp_message")
	f.text("whatsapp_message", v, ok, c.WhatsappMessage, nil)
	if f.unfilled["whatsapp_message"] {
		*c.WhatsappMessage = fallbackMessage
	}
}

// duration accepts a bare number or {period|value, type}
func (f *fields) duration(c commonFields) {
	v, ok := f.get("duration")
	if obj, isObj := v.(map[string]any); ok && isObj {
		period, hasPeriod := obj["period"]
		if !hasPeriod {
			period, hasPeriod = obj["value"]
		}
		f.count("duration", period, hasPeriod && utils.IsFilled(period), c.Duration)
		t, hasType := obj["type"]
		if !hasType || t == nil {
			t, hasType = f.get("duration_type")
		}
		f.text("duration_type", t, hasType, c.DurationType, utils.CapitalizeFirst)
		return
	}
	f.count("duration", v, ok && utils.IsFilled(v), c.Duration)
	v, ok = f.get("duration_type")
	f.text("duration_type", v, ok, c.DurationType, utils.CapitalizeFirst)
}
