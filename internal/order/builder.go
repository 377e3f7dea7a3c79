package order

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Builder turns validated intents into order groups.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	policy UnitPolicy
	newRef func() string
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithRefGenerator overrides how local linkage tokens are generated
func WithRefGenerator(fn func() string) BuilderOption {
	return func(b *Builder) {
		b.newRef = fn
	}
}

// NewBuilder creates a builder using policy for lot conversion.
// A nil policy falls back to DefaultLotPolicy.
func NewBuilder(policy UnitPolicy, opts ...BuilderOption) *Builder {
	if policy == nil {
		policy = DefaultLotPolicy()
	}
	b := &Builder{
		policy: policy,
		newRef: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Policy returns the unit policy the builder converts sizes with
func (b *Builder) Policy() UnitPolicy {
	return b.policy
}

// Build validates the intent and materializes its order group.
// The only error it returns is the *ValidationError from Validate.
func (b *Builder) Build(in Intent) (Group, error) {
	in = in.Normalize()
	if err := Validate(in); err != nil {
		return nil, err
	}

	qty := math.Abs(b.policy.Units(in.Instrument, in.Size))

	var g Group
	if in.IsBracket() {
		g = b.bracket(in, qty)
	} else {
		g = b.standalone(in, qty)
	}

	g.check()
	return g, nil
}

// MustBuild is Build for callers that already validated the intent.
// It panics on invalid input.
func (b *Builder) MustBuild(in Intent) Group {
	g, err := b.Build(in)
	if err != nil {
		panic(fmt.Sprintf("order: MustBuild called with invalid intent: %v", err))
	}
	return g
}

func (b *Builder) standalone(in Intent, qty float64) Group {
	o := Order{
		Ref:        b.newRef(),
		Role:       RoleStandalone,
		Action:     in.Side,
		Quantity:   qty,
		Kind:       in.Kind,
		TIF:        in.TIF,
		OutsideRTH: in.OutsideRTH,
		Transmit:   true,
	}
	applyPriceFields(&o, in)
	return Group{o}
}

// bracket stages entry and take-profit with Transmit=false so the broker holds
// them until the stop leg arrives with Transmit=true and activates the set.
func (b *Builder) bracket(in Intent, qty float64) Group {
	reverse := in.Side.Reverse()

	entry := Order{
		Ref:        b.newRef(),
		Role:       RoleEntry,
		Action:     in.Side,
		Quantity:   qty,
		Kind:       in.Kind,
		TIF:        in.TIF,
		OutsideRTH: in.OutsideRTH,
		Transmit:   false,
	}
	applyPriceFields(&entry, in)

	takeProfit := Order{
		Ref:        b.newRef(),
		ParentRef:  entry.Ref,
		Role:       RoleTakeProfit,
		Action:     reverse,
		Quantity:   qty,
		Kind:       KindLimit,
		TIF:        in.TIF,
		OutsideRTH: in.OutsideRTH,
		LimitPrice: clone(in.Bracket.TakeProfit),
		Transmit:   false,
	}

	stopLoss := Order{
		Ref:        b.newRef(),
		ParentRef:  entry.Ref,
		Role:       RoleStopLoss,
		Action:     reverse,
		Quantity:   qty,
		Kind:       KindStop,
		TIF:        in.TIF,
		OutsideRTH: in.OutsideRTH,
		AuxPrice:   clone(in.Bracket.StopLoss),
		Transmit:   true,
	}
	if ts := in.Bracket.TrailingStop; ts != nil && *ts > 0 {
		stopLoss.Kind = KindTrail
		stopLoss.AuxPrice = clone(in.Bracket.TrailingStop)
	}

	return Group{entry, takeProfit, stopLoss}
}

// applyPriceFields fills the kind-driven price fields of o from the intent
func applyPriceFields(o *Order, in Intent) {
	if in.Kind.NeedsLimitPrice() {
		o.LimitPrice = clone(in.LimitPrice)
	}
	if in.Kind.NeedsStopPrice() {
		o.AuxPrice = clone(in.StopPrice)
	}
	if in.Kind.IsTrailing() {
		// amount wins when both are given (only reachable for TRAILLMT)
		if in.TrailingAmount != nil {
			o.AuxPrice = clone(in.TrailingAmount)
		} else if in.TrailingPercent != nil {
			o.TrailingPercent = clone(in.TrailingPercent)
		}
		if in.Kind == KindTrailLimit && in.LimitPrice != nil {
			o.LimitPrice = clone(in.LimitPrice)
		}
	}
}

// check panics if the group breaks the transmit or linkage invariants
func (g Group) check() {
	switch len(g) {
	case 1:
		if !g[0].Transmit || g[0].IsChild() {
			panic("order: standalone order must transmit and have no parent")
		}
	case 3:
		entry := g[0]
		if entry.Ref == "" {
			panic("order: bracket entry has no ref")
		}
		for i, o := range g {
			last := i == len(g)-1
			if o.Transmit != last {
				panic(fmt.Sprintf("order: bracket leg %d has transmit=%v", i, o.Transmit))
			}
			if i > 0 && (o.ParentRef != entry.Ref || o.Action != entry.Action.Reverse()) {
				panic(fmt.Sprintf("order: bracket leg %d is not linked to its entry", i))
			}
		}
	default:
		panic(fmt.Sprintf("order: group of %d orders", len(g)))
	}
	for i, o := range g {
		if o.Kind == KindTrail && (o.AuxPrice == nil) == (o.TrailingPercent == nil) {
			panic(fmt.Sprintf("order: trailing leg %d must carry exactly one trailing field", i))
		}
	}
}

func clone(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
