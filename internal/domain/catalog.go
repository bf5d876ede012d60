package domain

import (
	"regexp"
	"strings"
)

// UnknownCategory is the bucket for expenses whose category cannot be resolved.
const UnknownCategory = "Unknown"

// FallbackColor is used for unrecognized color tokens and the Unknown bucket.
const FallbackColor = "#6b7280"

// ColorMap resolves symbolic color tokens to hex codes.
var ColorMap = map[string]string{
	"green":   "#65a30d",
	"yellow":  "#facc15",
	"blue":    "#3b82f6",
	"purple":  "#a855f7",
	"pink":    "#ec4899",
	"orange":  "#f97316",
	"red":     "#dc2626",
	"cyan":    "#06b6d4",
	"emerald": "#10b981",
	"indigo":  "#6366f1",
	"lime":    "#84cc16",
	"teal":    "#14b8a6",
	"amber":   "#f59e0b",
	"rose":    "#f43f5e",
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ResolveColor turns a stored color into a hex code. Literal codes pass
// through; unknown tokens fall back to FallbackColor.
func ResolveColor(color string) string {
	color = strings.TrimSpace(color)
	if strings.HasPrefix(color, "#") {
		return color
	}
	if hex, ok := ColorMap[strings.ToLower(color)]; ok {
		return hex
	}
	return FallbackColor
}

// ValidColor accepts known tokens and well-formed hex codes.
func ValidColor(color string) bool {
	color = strings.TrimSpace(color)
	if hexColor.MatchString(color) {
		return true
	}
	_, ok := ColorMap[strings.ToLower(color)]
	return ok
}

// Icons is the fixed catalog of icon tokens a category may use.
var Icons = []string{
	"ShoppingCart", "Coffee", "Zap", "Home", "Car", "Smartphone", "Users",
	"Heart", "Gift", "Briefcase", "Utensils", "ShoppingBag", "Plane", "Music",
	"BookOpen", "Dumbbell", "TrendingUp", "PiggyBank", "Award", "DollarSign",
	"Megaphone", "Code", "Building", "Scale", "Package", "Shield",
	"MoreHorizontal",
}

var iconSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Icons))
	for _, icon := range Icons {
		set[icon] = struct{}{}
	}
	return set
}()

// ValidIcon reports whether icon belongs to the catalog.
func ValidIcon(icon string) bool {
	_, ok := iconSet[icon]
	return ok
}

// DefaultCategories are seeded for users who have none yet.
var DefaultCategories = []CategoryInput{
	{Name: "Sales Revenue", Type: KindIncome, Color: "#65a30d", Icon: "TrendingUp"},
	{Name: "Service Income", Type: KindIncome, Color: "#10b981", Icon: "Briefcase"},
	{Name: "Investment Returns", Type: KindIncome, Color: "#84cc16", Icon: "PiggyBank"},
	{Name: "Grant/Funding", Type: KindIncome, Color: "#14b8a6", Icon: "Award"},
	{Name: "Other Income", Type: KindIncome, Color: "#06b6d4", Icon: "DollarSign"},

	{Name: "Salary & Wages", Type: KindExpense, Color: "#dc2626", Icon: "Users"},
	{Name: "Marketing & Ads", Type: KindExpense, Color: "#f97316", Icon: "Megaphone"},
	{Name: "Software & Tools", Type: KindExpense, Color: "#a855f7", Icon: "Code"},
	{Name: "Office Rent", Type: KindExpense, Color: "#ec4899", Icon: "Building"},
	{Name: "Utilities", Type: KindExpense, Color: "#facc15", Icon: "Zap"},
	{Name: "Transportation", Type: KindExpense, Color: "#3b82f6", Icon: "Car"},
	{Name: "Legal & Accounting", Type: KindExpense, Color: "#6366f1", Icon: "Scale"},
	{Name: "Inventory", Type: KindExpense, Color: "#f59e0b", Icon: "Package"},
	{Name: "Insurance", Type: KindExpense, Color: "#f43f5e", Icon: "Shield"},
	{Name: "Other Expenses", Type: KindExpense, Color: "#6b7280", Icon: "MoreHorizontal"},
}
