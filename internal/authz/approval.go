package authz

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ActionCategory names a class of approvable action.
type ActionCategory string

// Approvable action categories.
const (
	ActionListingPublish  ActionCategory = "listing-publish"
	ActionRefund          ActionCategory = "refund"
	ActionMaintenanceCost ActionCategory = "maintenance-cost"
)

// PropertyType classifies a property for chain selection.
type PropertyType string

// Property classifications.
const (
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
)

// ApprovalContext carries the request attributes a chain rule may match on.
// AmountCents is the monetary value of the action in cents; zero means the
// action carries no amount.
type ApprovalContext struct {
	AmountCents  int64
	PropertyType PropertyType
}

// ChainRule maps an action category, optionally bounded by amount and
// property type, to the ordered roles empowered to approve it. A zero
// MaxAmountCents means the rule has no upper bound; an empty PropertyType
// matches any classification.
type ChainRule struct {
	Category       ActionCategory
	MaxAmountCents int64
	PropertyType   PropertyType
	Approvers      []Role
}

// NoApproverError reports an approval lookup that matched no configured
// chain. It is a blocking condition requiring operator intervention, never a
// deny or an implicit approval.
type NoApproverError struct {
	Category ActionCategory
	Context  ApprovalContext
}

func (e *NoApproverError) Error() string {
	p := message.NewPrinter(language.English)
	if e.Context.AmountCents > 0 {
		return p.Sprintf("authz: no approver configured for %s (amount $%.2f, property type %q)",
			string(e.Category), float64(e.Context.AmountCents)/100, string(e.Context.PropertyType))
	}
	return fmt.Sprintf("authz: no approver configured for %s (property type %q)",
		string(e.Category), string(e.Context.PropertyType))
}

// ApprovalChains resolves who may approve an action. Rules are evaluated in
// configuration order; the first match wins, so narrower rules (lower amount
// caps, specific property types) must precede their catch-alls.
type ApprovalChains struct {
	rules []ChainRule
}

// NewApprovalChains builds an ApprovalChains from the given rules. Call
// Validate before serving.
func NewApprovalChains(rules []ChainRule) *ApprovalChains {
	return &ApprovalChains{rules: append([]ChainRule(nil), rules...)}
}

// Rules returns a copy of the configured rules.
func (a *ApprovalChains) Rules() []ChainRule {
	return append([]ChainRule(nil), a.rules...)
}

// ApproversFor returns the ordered roles empowered to approve an action of
// the given category under ctx. A lookup that matches no rule returns a
// *NoApproverError; configured chains are never empty, so an empty result
// cannot occur.
func (a *ApprovalChains) ApproversFor(category ActionCategory, ctx ApprovalContext) ([]Role, error) {
	for _, rule := range a.rules {
		if rule.Category != category {
			continue
		}
		if rule.PropertyType != "" && rule.PropertyType != ctx.PropertyType {
			continue
		}
		if rule.MaxAmountCents > 0 && ctx.AmountCents > rule.MaxAmountCents {
			continue
		}
		return append([]Role(nil), rule.Approvers...), nil
	}
	return nil, &NoApproverError{Category: category, Context: ctx}
}

// DefaultApprovalChains returns the production Parkside chain configuration.
func DefaultApprovalChains() *ApprovalChains {
	return NewApprovalChains([]ChainRule{
		{
			Category:       ActionRefund,
			MaxAmountCents: 50_000,
			Approvers:      []Role{RoleFinanceManager},
		},
		{
			Category:  ActionRefund,
			Approvers: []Role{RoleFinanceManager, RoleFinanceDirector},
		},
		{
			Category:     ActionListingPublish,
			PropertyType: PropertyCommercial,
			Approvers:    []Role{RolePropertyManager, RoleAdmin},
		},
		{
			Category:  ActionListingPublish,
			Approvers: []Role{RolePropertyManager},
		},
		{
			Category:       ActionMaintenanceCost,
			MaxAmountCents: 100_000,
			Approvers:      []Role{RolePropertyManager},
		},
		{
			Category:  ActionMaintenanceCost,
			Approvers: []Role{RolePropertyManager, RoleFinanceManager},
		},
	})
}
