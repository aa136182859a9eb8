package core

// Group is one of the fixed expense groups categories roll up into.
type Group string

const (
	GroupHousing        Group = "housing"
	GroupTransportation Group = "transportation"
	GroupHealthcare     Group = "healthcare"
	GroupLiving         Group = "living"
	GroupFamily         Group = "family"
	GroupLeisure        Group = "leisure"
	GroupFinancial      Group = "financial"
	GroupMiscellaneous  Group = "miscellaneous"
)

// CategoryGroup lists the categories belonging to one group.
type CategoryGroup struct {
	Group      Group    `json:"group"`
	Categories []string `json:"categories"`
}

// groups is kept in display order. Never mutated after init.
var groups = []CategoryGroup{
	{GroupHousing, []string{"rent", "mortgage", "utilities", "homeMaintenance"}},
	{GroupTransportation, []string{"transportation", "carMaintenance", "fuel"}},
	{GroupHealthcare, []string{"medical", "dental", "insurance"}},
	{GroupLiving, []string{"groceries", "diningOut", "clothing", "personalCare"}},
	{GroupFamily, []string{"childcare", "education"}},
	{GroupLeisure, []string{"entertainment", "subscription", "hobbies"}},
	{GroupFinancial, []string{"taxes", "investment", "bankFees"}},
	{GroupMiscellaneous, []string{"gifts", "petCare", "electronics"}},
}

var incomeCategories = []string{"salary", "bonus", "freelance", "gift"}

var (
	groupByCategory = map[string]Group{}
	groupIndex      = map[Group]int{}
	incomeSet       = map[string]struct{}{}
)

func init() {
	for i, g := range groups {
		groupIndex[g.Group] = i
		for _, c := range g.Categories {
			groupByCategory[c] = g.Group
		}
	}
	for _, c := range incomeCategories {
		incomeSet[c] = struct{}{}
	}
}

// GroupOf returns the group an expense category belongs to.
func GroupOf(category string) (Group, bool) {
	g, ok := groupByCategory[category]
	return g, ok
}

// Groups returns the expense groups in display order.
func Groups() []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g.Group
	}
	return out
}

// Taxonomy returns a copy of the grouped expense categories.
func Taxonomy() []CategoryGroup {
	out := make([]CategoryGroup, len(groups))
	for i, g := range groups {
		out[i] = CategoryGroup{Group: g.Group, Categories: append([]string(nil), g.Categories...)}
	}
	return out
}

// IsValidGroup reports whether g is a known expense group.
func IsValidGroup(g Group) bool {
	_, ok := groupIndex[g]
	return ok
}

// GroupOrder is the position of g in display order, or -1 if unknown.
func GroupOrder(g Group) int {
	if i, ok := groupIndex[g]; ok {
		return i
	}
	return -1
}

func ExpenseCategories() []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Categories...)
	}
	return out
}

func IncomeCategories() []string {
	return append([]string(nil), incomeCategories...)
}

// CategoriesFor returns the categories a transaction of type t may use.
func CategoriesFor(t TransactionType) []string {
	switch t {
	case Expense:
		return ExpenseCategories()
	case Income:
		return IncomeCategories()
	default:
		return nil
	}
}

// IsValidCategory reports whether category is allowed for type t.
func IsValidCategory(t TransactionType, category string) bool {
	switch t {
	case Expense:
		_, ok := groupByCategory[category]
		return ok
	case Income:
		_, ok := incomeSet[category]
		return ok
	default:
		return false
	}
}
