package grocery

import (
	"regexp"
	"strings"
)

// Category is one of the fixed grocery classifications
type Category string

const (
	CategoryProduce   Category = "produce"
	CategoryDairy     Category = "dairy"
	CategoryMeat      Category = "meat"
	CategoryGrain     Category = "grain"
	CategoryCanned    Category = "canned"
	CategorySnack     Category = "snack"
	CategoryBeverage  Category = "beverage"
	CategoryCondiment Category = "condiment"
	CategoryFrozen    Category = "frozen"
	CategoryOther     Category = "other"
)

// Categories lists every valid category in classifier order
var Categories = []Category{
	CategoryProduce,
	CategoryDairy,
	CategoryMeat,
	CategoryGrain,
	CategoryCanned,
	CategorySnack,
	CategoryBeverage,
	CategoryCondiment,
	CategoryFrozen,
	CategoryOther,
}

// expiryDays is the shelf life estimate per category, in days
var expiryDays = map[Category]int{
	CategoryProduce:   7,
	CategoryDairy:     14,
	CategoryMeat:      3,
	CategoryGrain:     180,
	CategoryCanned:    365,
	CategorySnack:     90,
	CategoryBeverage:  180,
	CategoryCondiment: 365,
	CategoryFrozen:    90,
	CategoryOther:     30,
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	_, ok := expiryDays[c]
	return ok
}

// ParseCategory normalizes s and coerces anything unrecognized to CategoryOther
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CategoryOther
	}
	return c
}

// ExpiryDays returns the estimated shelf life for a category.
// Unknown categories get the CategoryOther value.
func ExpiryDays(c Category) int {
	if days, ok := expiryDays[c]; ok {
		return days
	}
	return expiryDays[CategoryOther]
}

type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
}

// categoryRules are checked in order; the first match wins.
// Frozen is last, so "frozen peas" is produce.
var categoryRules = []categoryRule{
	{CategoryProduce, regexp.MustCompile(`(?i)\b(apples?|bananas?|oranges?|lemons?|limes?|grapes?|berr(y|ies)|strawberr(y|ies)|blueberr(y|ies)|raspberr(y|ies)|peach(es)?|pears?|plums?|cherr(y|ies)|mangos?|mangoes|pineapples?|melons?|watermelons?|avocados?|tomato(es)?|potato(es)?|onions?|garlic|carrots?|celery|lettuce|spinach|kale|cabbage|broccoli|cauliflower|cucumbers?|peppers?|zucchini|squash|mushrooms?|peas|corn|herbs?|basil|cilantro|parsley|ginger|fruits?|vegetables?|veggies|produce|salad greens)\b`)},
	{CategoryDairy, regexp.MustCompile(`(?i)\b(milk|cheese|cheddar|mozzarella|parmesan|yogh?urt|butter|cream|sour cream|cottage|kefir|ghee|eggs?|dairy)\b`)},
	{CategoryMeat, regexp.MustCompile(`(?i)\b(chicken|beef|pork|lamb|turkey|ham|bacon|sausages?|steak|mince|ground (beef|turkey|pork)|veal|duck|salami|pepperoni|fish|salmon|tuna steak|cod|tilapia|shrimp|prawns?|seafood|meat)\b`)},
	{CategoryGrain, regexp.MustCompile(`(?i)\b(bread|bagels?|rice|pasta|spaghetti|noodles?|oats?|oatmeal|cereal|flour|quinoa|barley|couscous|tortillas?|buns?|rolls?|grains?|wheat|crackers?)\b`)},
	{CategoryCanned, regexp.MustCompile(`(?i)\b(canned|tinned|cans?|tins?|soup|beans|chickpeas|lentils|tuna|sardines|tomato paste|broth|stock)\b`)},
	{CategorySnack, regexp.MustCompile(`(?i)\b(chips|crisps|cookies?|biscuits?|candy|chocolate|pretzels?|popcorn|nuts|almonds|peanuts|granola|snacks?|bars?)\b`)},
	{CategoryBeverage, regexp.MustCompile(`(?i)\b(water|juice|soda|cola|coffee|tea|beer|wine|lemonade|kombucha|drinks?|beverages?|smoothies?)\b`)},
	{CategoryCondiment, regexp.MustCompile(`(?i)\b(ketchup|mustard|mayo(nnaise)?|sauce|salsa|dressing|vinegar|oil|olive oil|honey|jam|jelly|syrup|salt|spices?|seasoning|relish|soy sauce|condiments?)\b`)},
	{CategoryFrozen, regexp.MustCompile(`(?i)\b(frozen|ice cream|popsicles?|pizza|ice)\b`)},
}

// Categorize infers a category from a free-text item name
func Categorize(name string) Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(name) {
			return rule.category
		}
	}
	return CategoryOther
}
