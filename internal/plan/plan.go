// Package plan decides which tools and quotas a subscription tier allows.
package plan

import "fmt"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// ParseTier maps a stored plan name to a Tier. Anything unrecognised is free.
func ParseTier(s string) Tier {
	if Tier(s) == TierPro {
		return TierPro
	}
	return TierFree
}

type Tool string

const (
	ToolResize     Tool = "resize"
	ToolCrop       Tool = "crop"
	ToolAdjust     Tool = "adjust"
	ToolBackground Tool = "background"
	ToolAIExtender Tool = "ai_extender"
	ToolText       Tool = "text"
	ToolAIEdit     Tool = "ai_edit"
)

// Tools lists every editor tool in sidebar order.
var Tools = []Tool{ToolResize, ToolCrop, ToolAdjust, ToolBackground, ToolAIExtender, ToolText, ToolAIEdit}

var toolNames = map[Tool]string{
	ToolBackground: "AI Background tools",
	ToolAIExtender: "AI Image Extender",
	ToolAIEdit:     "AI Editor",
}

func (t Tool) Valid() bool {
	for _, x := range Tools {
		if x == t {
			return true
		}
	}
	return false
}

func (t Tool) proOnly() bool {
	_, ok := toolNames[t]
	return ok
}

// DisplayName is the name shown when prompting an upgrade.
func (t Tool) DisplayName() string {
	if n, ok := toolNames[t]; ok {
		return n
	}
	return "Premium feature"
}

type Limits struct {
	Projects int
	Exports  int
}

var DefaultLimits = Limits{Projects: 3, Exports: 20}

// Policy answers access questions for one user's tier.
type Policy struct {
	Tier   Tier
	Limits Limits
}

func NewPolicy(tier Tier, limits Limits) Policy {
	return Policy{Tier: tier, Limits: limits}
}

func (p Policy) IsPro() bool { return p.Tier == TierPro }

func (p Policy) HasAccess(tool Tool) bool {
	if !tool.Valid() {
		return false
	}
	return p.IsPro() || !tool.proOnly()
}

// RestrictedTools lists the tools this tier cannot open, in sidebar order.
func (p Policy) RestrictedTools() []Tool {
	out := []Tool{}
	for _, t := range Tools {
		if !p.HasAccess(t) {
			out = append(out, t)
		}
	}
	return out
}

// CanCreateProject reports whether a user owning current projects may add one.
func (p Policy) CanCreateProject(current int) bool {
	return p.IsPro() || current < p.Limits.Projects
}

// CanExport reports whether a user with current exports this month may export.
func (p Policy) CanExport(current int) bool {
	return p.IsPro() || current < p.Limits.Exports
}

// DenialReason is the upgrade prompt for a denied tool.
func DenialReason(tool Tool) string {
	return fmt.Sprintf("%s is only available to Pro users. Upgrade to unlock this feature.", tool.DisplayName())
}

func ProjectLimitReason(limit int) string {
	return fmt.Sprintf("You have reached the limit of %d projects for the free plan. Please upgrade to the Pro plan for unlimited projects.", limit)
}

func ExportLimitReason(limit int) string {
	return fmt.Sprintf("Free Plan is limited to %d exports per month. Upgrade to Pro to unlock unlimited exports", limit)
}
