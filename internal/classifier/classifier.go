package classifier

import (
	"context"
	"strings"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// Classifier maps a file to a single category name.
type Classifier interface {
	Classify(ctx context.Context, filename, content string) string
}

// Rule pairs a category with the keywords that select it. A rule matches
// when any keyword occurs as a substring of the lowercased text.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Matches reports whether text (already lowercased) contains any keyword.
func (r Rule) Matches(text string) bool {
	for _, keyword := range r.Keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// Keyword sets overlap on purpose ("assessment", "policy", "certificate",
// "inspection", ...). Order alone decides which category wins.
var priorityRules = []Rule{
	{models.FinancialReports, []string{
		"financial", "finance", "budget", "expense", "revenue", "assessment",
		"balance sheet", "income", "cash flow", "invoice", "payment",
		"accounting", "fiscal", "tax", "audit", "special assessment",
	}},
	{models.BuildingManagement, []string{
		"building", "maintenance", "repair", "facility", "property",
		"renovation", "upgrade", "construction", "improvement",
		"work schedule", "inspection",
	}},
	{models.EmergencySafety, []string{
		"emergency", "safety", "security", "evacuation", "fire",
		"disaster", "hazard", "incident", "alert", "warning",
		"protection", "prevention",
	}},
	{models.LegalGovernance, []string{
		"legal", "law", "regulation", "policy", "compliance", "contract",
		"bylaw", "statute", "declaration", "amendment", "certificate",
		"articles", "incorporation", "governance",
	}},
	{models.InsuranceAssessments, []string{
		"insurance", "assessment", "claim", "coverage", "policy",
		"liability", "risk", "premium", "deductible", "certificate",
	}},
	{models.MaintenanceInstallation, []string{
		"maintenance", "installation", "repair", "equipment", "system",
		"service", "inspection", "replacement", "upgrade", "fix",
		"cleaning", "hvac", "elevator", "plumbing",
	}},
	{models.MeetingDocuments, []string{
		"meeting", "minutes", "agenda", "board", "committee",
		"discussion", "resolution", "vote", "attendance", "quorum",
	}},
	{models.ResidentInformation, []string{
		"resident", "tenant", "owner", "occupant", "community",
		"neighbor", "directory", "contact", "parking", "pet",
		"move-in", "move-out", "handbook",
	}},
	{models.RulesRegulations, []string{
		"rule", "regulation", "guideline", "policy", "procedure",
		"requirement", "standard", "restriction", "conduct", "code",
	}},
	{models.StructuralReports, []string{
		"structural", "engineering", "inspection", "foundation",
		"building envelope", "roof", "wall", "concrete", "steel",
		"assessment", "integrity", "structure",
	}},
}

// Filename-only patterns tried after both keyword passes miss.
var specialCases = []Rule{
	{models.LegalGovernance, []string{"declaration", "amendment"}},
	{models.InsuranceAssessments, []string{"assessment"}},
	{models.BuildingManagement, []string{"schedule"}},
	{models.LegalGovernance, []string{"certificate"}},
	{models.ResidentInformation, []string{"reference"}},
}

// KeywordClassifier assigns categories by ordered keyword rules
type KeywordClassifier struct {
	rules   []Rule
	special []Rule
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules:   priorityRules,
		special: specialCases,
	}
}

// Classify tests the filename, then the content, against the priority rules,
// then the filename against the special cases. It falls back to General Documents.
func (c *KeywordClassifier) Classify(_ context.Context, filename, content string) string {
	return c.classify(filename, content)
}

func (c *KeywordClassifier) classify(filename, content string) string {
	if category, ok := c.match(c.rules, strings.ToLower(filename)); ok {
		return category
	}

	if content != "" {
		if category, ok := c.match(c.rules, strings.ToLower(content)); ok {
			return category
		}
	}

	if category, ok := c.match(c.special, strings.ToLower(filename)); ok {
		return category
	}

	return models.GeneralDocuments
}

func (c *KeywordClassifier) match(rules []Rule, text string) (string, bool) {
	for _, rule := range rules {
		if rule.Matches(text) {
			return rule.Category, true
		}
	}
	return "", false
}

// Rules returns a copy of the priority rules followed by the special cases,
// in evaluation order.
func (c *KeywordClassifier) Rules() (priority []Rule, special []Rule) {
	return copyRules(c.rules), copyRules(c.special)
}

func copyRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
