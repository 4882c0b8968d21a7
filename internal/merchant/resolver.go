package merchant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/store"
)

const (
	aliasesKey    = "merchant_aliases"
	categoriesKey = "categories"
)

// Resolution is the resolved identity of one normalized merchant.
type Resolution struct {
	DisplayName   string
	Category      string
	CategoryColor string
}

// Resolver maintains the alias table and its reverse index. The two
// indices are always mutual inverses: every mutation updates both under
// one lock, and a read issued after a write observes that write.
type Resolver struct {
	kv     store.KVStore
	broker *events.Broker

	mu         sync.RWMutex
	aliases    map[string]model.MerchantAlias // normalized name -> alias
	byDisplay  map[string]map[string]struct{} // display name -> normalized names
	categories map[string]string              // category name -> color
}

// NewResolver loads the persisted alias and category tables. Legacy
// keys (un-trimmed, mixed case) are migrated to canonical form once,
// here, so the in-memory maps are always canonical.
func NewResolver(ctx context.Context, kv store.KVStore, broker *events.Broker) (*Resolver, error) {
	r := &Resolver{
		kv:         kv,
		broker:     broker,
		aliases:    make(map[string]model.MerchantAlias),
		byDisplay:  make(map[string]map[string]struct{}),
		categories: make(map[string]string),
	}

	if err := r.loadCategories(ctx); err != nil {
		return nil, err
	}
	if err := r.loadAliases(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) loadCategories(ctx context.Context) error {
	raw, ok, err := r.kv.Get(ctx, categoriesKey)
	if err != nil {
		return model.NewPersistenceError("load categories", err)
	}
	if !ok {
		for name, color := range defaultCategories {
			r.categories[name] = color
		}
		return nil
	}

	decoded := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return model.NewPersistenceError("decode categories", err)
	}
	for name, color := range decoded {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if color == "" {
			color = DefaultCategoryColor
		}
		r.categories[name] = color
	}
	if _, ok := r.categories[DefaultCategory]; !ok {
		r.categories[DefaultCategory] = DefaultCategoryColor
	}
	return nil
}

func (r *Resolver) loadAliases(ctx context.Context) error {
	raw, ok, err := r.kv.Get(ctx, aliasesKey)
	if err != nil {
		return model.NewPersistenceError("load aliases", err)
	}
	if !ok {
		return nil
	}

	decoded := make(map[string]model.MerchantAlias)
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return model.NewPersistenceError("decode aliases", err)
	}

	migrated := false
	for key, alias := range decoded {
		canonical := Normalize(key)
		if canonical == "" {
			migrated = true
			continue
		}
		if canonical != key {
			migrated = true
		}
		alias.NormalizedName = canonical
		alias.DisplayName = strings.TrimSpace(alias.DisplayName)
		if alias.DisplayName == "" {
			migrated = true
			continue
		}
		if alias.Category == "" {
			alias.Category = DefaultCategory
		}
		r.aliases[canonical] = alias
		r.index(alias)
	}

	// Rewrite the canonical table so migration happens exactly once.
	if migrated {
		if err := r.persistAliasesLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the identity for a normalized merchant key. Absent an
// alias the identity is the cleaned raw form in category Other.
func (r *Resolver) Resolve(normalized string) Resolution {
	normalized = Normalize(normalized)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if alias, ok := r.aliases[normalized]; ok {
		return Resolution{
			DisplayName:   alias.DisplayName,
			Category:      alias.Category,
			CategoryColor: r.colorLocked(alias.Category),
		}
	}
	return Resolution{
		DisplayName:   FormatDisplayName(normalized),
		Category:      DefaultCategory,
		CategoryColor: DefaultCategoryColor,
	}
}

// Apply stamps the resolved identity fields onto a transaction.
func (r *Resolver) Apply(t *model.Transaction) {
	res := r.Resolve(t.NormalizedMerchant)
	t.DisplayMerchant = res.DisplayName
	t.Category = res.Category
	t.CategoryColor = res.CategoryColor
}

// SetAlias points a normalized merchant at a display identity and
// category, creating the category if needed. Idempotent; overwrites any
// prior alias for the key. The write is durable before it returns: a
// failed persist rejects the whole operation and leaves both indices
// untouched.
func (r *Resolver) SetAlias(ctx context.Context, normalized, displayName, category string) error {
	normalized = Normalize(normalized)
	displayName = strings.TrimSpace(displayName)
	category = strings.TrimSpace(category)

	if normalized == "" {
		return fmt.Errorf("set alias: empty merchant key")
	}
	if displayName == "" {
		return fmt.Errorf("set alias: empty display name")
	}
	if category == "" {
		category = DefaultCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Ensure the category exists before touching the alias table, so a
	// failed category persist never strands an alias on a category
	// that was silently lost.
	if _, ok := r.categories[category]; !ok {
		color := palette[len(r.categories)%len(palette)]
		r.categories[category] = color
		if err := r.persistCategoriesLocked(ctx); err != nil {
			delete(r.categories, category)
			return err
		}
	}

	prev, hadPrev := r.aliases[normalized]
	next := model.MerchantAlias{
		NormalizedName: normalized,
		DisplayName:    displayName,
		Category:       category,
	}
	r.aliases[normalized] = next

	if err := r.persistAliasesLocked(ctx); err != nil {
		if hadPrev {
			r.aliases[normalized] = prev
		} else {
			delete(r.aliases, normalized)
		}
		return err
	}

	// Commit the reverse index only after the durable write succeeded.
	if hadPrev {
		r.unindex(prev)
	}
	r.index(next)

	r.publish(events.AliasChanged, normalized, displayName)
	return nil
}

// RemoveAlias reverts a merchant to its default identity, pruning the
// now-empty reverse entry. Removing an absent alias is a no-op.
func (r *Resolver) RemoveAlias(ctx context.Context, normalized string) error {
	normalized = Normalize(normalized)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.aliases[normalized]
	if !ok {
		return nil
	}
	delete(r.aliases, normalized)

	if err := r.persistAliasesLocked(ctx); err != nil {
		r.aliases[normalized] = prev
		return err
	}

	r.unindex(prev)
	r.publish(events.AliasChanged, normalized, prev.DisplayName)
	return nil
}

// MerchantsForDisplayName returns every normalized key whose alias maps
// to the display name, sorted, and nothing else.
func (r *Resolver) MerchantsForDisplayName(displayName string) []string {
	displayName = strings.TrimSpace(displayName)

	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byDisplay[displayName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Alias returns the stored alias for a key, if any.
func (r *Resolver) Alias(normalized string) (model.MerchantAlias, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alias, ok := r.aliases[Normalize(normalized)]
	return alias, ok
}

// Categories lists the known categories sorted by name.
func (r *Resolver) Categories() []model.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Category, 0, len(r.categories))
	for name, color := range r.categories {
		out = append(out, model.Category{Name: name, Color: color})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CategoryColor returns the color for a category, defaulting when the
// category is unknown.
func (r *Resolver) CategoryColor(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.colorLocked(name)
}

func (r *Resolver) colorLocked(name string) string {
	if color, ok := r.categories[name]; ok {
		return color
	}
	return DefaultCategoryColor
}

func (r *Resolver) index(alias model.MerchantAlias) {
	set, ok := r.byDisplay[alias.DisplayName]
	if !ok {
		set = make(map[string]struct{})
		r.byDisplay[alias.DisplayName] = set
	}
	set[alias.NormalizedName] = struct{}{}
}

func (r *Resolver) unindex(alias model.MerchantAlias) {
	set, ok := r.byDisplay[alias.DisplayName]
	if !ok {
		return
	}
	delete(set, alias.NormalizedName)
	if len(set) == 0 {
		delete(r.byDisplay, alias.DisplayName)
	}
}

func (r *Resolver) persistAliasesLocked(ctx context.Context) error {
	encoded, err := json.Marshal(r.aliases)
	if err != nil {
		return model.NewPersistenceError("encode aliases", err)
	}
	if err := r.kv.Put(ctx, aliasesKey, string(encoded)); err != nil {
		return model.NewPersistenceError("save aliases", err)
	}
	return nil
}

func (r *Resolver) persistCategoriesLocked(ctx context.Context) error {
	encoded, err := json.Marshal(r.categories)
	if err != nil {
		return model.NewPersistenceError("encode categories", err)
	}
	if err := r.kv.Put(ctx, categoriesKey, string(encoded)); err != nil {
		return model.NewPersistenceError("save categories", err)
	}
	return nil
}

func (r *Resolver) publish(t events.Type, normalized, display string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(events.Event{
		Type:               t,
		NormalizedMerchant: normalized,
		DisplayName:        display,
	})
}
