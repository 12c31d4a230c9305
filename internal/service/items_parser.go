package service

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"example.com/backstage/services/challan/internal/models"
)

var numberWords = map[string]int64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// Spoken fractions, rewritten before tokenizing. "pune ka" spans two words.
var fractionWords = []struct {
	pattern *regexp.Regexp
	value   string
}{
	{regexp.MustCompile(`(?i)\bpune ka\b`), "3/4"},
	{regexp.MustCompile(`(?i)\bsawaka\b`), "1/4"},
	{regexp.MustCompile(`(?i)\bhalf\b`), "1/2"},
}

var fractions = map[string]decimal.Decimal{
	"1/2": decimal.RequireFromString("0.5"),
	"1/4": decimal.RequireFromString("0.25"),
	"3/4": decimal.RequireFromString("0.75"),
}

var unitReplacer = strings.NewReplacer("M M", "mm", "Intu", "inch")

// ParseItems turns dictated text such as "two bolt M M, 3 nut" into line
// items. Entries are comma separated; the first number in an entry is its
// quantity and the words after it its description. Entries without either
// are skipped. Prices are left at zero.
func ParseItems(text string) []models.LineItem {
	items := make([]models.LineItem, 0)
	for _, entry := range strings.Split(text, ",") {
		if item, ok := parseEntry(entry); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseEntry(entry string) (models.LineItem, bool) {
	entry = strings.TrimSpace(entry)
	for _, f := range fractionWords {
		entry = f.pattern.ReplaceAllString(entry, f.value)
	}

	words := strings.Fields(entry)
	for i, word := range words {
		quantity, ok := parseQuantity(word)
		if !ok {
			continue
		}

		rest := words[i+1:]
		// "2 1/2 kg" reads as two and a half
		if len(rest) > 0 {
			if frac, ok := fractions[rest[0]]; ok && !isFraction(word) {
				quantity = quantity.Add(frac)
				rest = rest[1:]
			}
		}

		description := strings.TrimSpace(unitReplacer.Replace(strings.Join(rest, " ")))
		if description == "" {
			return models.LineItem{}, false
		}
		return models.LineItem{Quantity: quantity, Description: description, Price: decimal.Zero}, true
	}
	return models.LineItem{}, false
}

func parseQuantity(word string) (decimal.Decimal, bool) {
	if n, ok := numberWords[strings.ToLower(word)]; ok {
		return decimal.NewFromInt(n), true
	}
	if frac, ok := fractions[word]; ok {
		return frac, true
	}
	q, err := decimal.NewFromString(word)
	if err != nil || !q.IsPositive() {
		return decimal.Decimal{}, false
	}
	return q, true
}

func isFraction(word string) bool {
	_, ok := fractions[word]
	return ok
}
