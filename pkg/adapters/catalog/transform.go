package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/chefmate/pkg/domain"
)

// ParseModification finds the requested axis in free text such as
// "Modify recipe to be vegan" or "spicier".
func ParseModification(text string) (domain.Modification, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "spic"), strings.Contains(lower, "hot"):
		return domain.ModSpicy, true
	case strings.Contains(lower, "vegan"), strings.Contains(lower, "plant"):
		return domain.ModVegan, true
	case strings.Contains(lower, "quick"), strings.Contains(lower, "fast"):
		return domain.ModQuick, true
	}
	return "", false
}

// veganSwaps maps animal products to plant-based alternatives. Entries mapping
// to themselves protect phrases that only look like animal products.
var veganSwaps = [][2]string{
	{"peanut butter", "peanut butter"},
	{"coconut milk", "coconut milk"},
	{"chicken stock", "vegetable stock"},
	{"beef stock", "mushroom stock"},
	{"egg noodles", "rice noodles"},
	{"sour cream", "cashew cream"},
	{"parmesan cheese", "nutritional yeast"},
	{"mozzarella cheese", "vegan mozzarella"},
	{"cheddar cheese", "vegan cheddar"},
	{"cheese", "vegan cheese"},
	{"chicken breasts", "firm tofu"},
	{"chicken breast", "firm tofu"},
	{"chicken", "tofu"},
	{"beef chuck", "seitan"},
	{"beef", "seitan"},
	{"pork shoulder", "jackfruit"},
	{"pork", "jackfruit"},
	{"salmon fillets", "marinated tofu steaks"},
	{"salmon", "marinated tofu"},
	{"shrimp", "king oyster mushrooms"},
	{"butter", "olive oil"},
	{"cream", "coconut cream"},
	{"milk", "oat milk"},
	{"eggs", "flax eggs"},
	{"egg", "flax egg"},
	{"honey", "maple syrup"},
}

var (
	veganLookup  = make(map[string]string, len(veganSwaps))
	veganPattern = func() *regexp.Regexp {
		alts := make([]string, len(veganSwaps))
		for i, swap := range veganSwaps {
			alts[i] = regexp.QuoteMeta(swap[0])
			veganLookup[swap[0]] = swap[1]
		}
		// Alternation is leftmost-first, so longer phrases listed earlier win.
		return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	}()
)

// Transform applies a deterministic modification to a recipe.
// The result always differs from the input.
func Transform(r domain.Recipe, m domain.Modification) (domain.Recipe, error) {
	out := r.Clone()
	out.Instructions = domain.Lines(out.Steps())
	out.Ingredients = domain.Lines(out.IngredientList())

	switch m {
	case domain.ModSpicy:
		out.Title = prefixTitle("Spicy", out.Title)
		out.Ingredients = append(out.Ingredients, "1 tsp chili flakes", "1 fresh jalapeño, finely chopped")
		out.Instructions = append(out.Instructions, "Stir in the chili flakes and jalapeño and cook for 1 more minute.")
		out.Notes = "Added chili flakes and jalapeño for heat. Adjust to taste."
		out.Tags = appendTag(out.Tags, "spicy")

	case domain.ModVegan:
		out.Title = prefixTitle("Vegan", swapAll(domain.Lines{out.Title})[0])
		out.Ingredients = swapAll(out.Ingredients)
		out.Instructions = swapAll(out.Instructions)
		out.Notes = "Animal products replaced with plant-based alternatives."
		out.Tags = appendTag(removeTag(out.Tags, "vegetarian"), "vegan")

	case domain.ModQuick:
		out.Title = prefixTitle("Quick", out.Title)
		if out.Minutes > 0 {
			out.Minutes = max(10, out.Minutes*2/3)
		}
		out.Instructions = append([]string{"Prep every ingredient before you start and use pre-chopped vegetables where you can."}, out.Instructions...)
		out.Notes = "Streamlined with prep-ahead steps and shorter cooking."
		out.Tags = appendTag(out.Tags, "quick")

	default:
		return domain.Recipe{}, fmt.Errorf("%w: %q", domain.ErrUnknownModification, m)
	}

	out.Instructions = FormatSteps(strings.Join(out.Instructions, "\n"))
	if out.ID != "" {
		out.ID = out.ID + "-" + string(m)
	}
	return out, nil
}

func prefixTitle(prefix, title string) string {
	if strings.HasPrefix(strings.ToLower(title), strings.ToLower(prefix)+" ") {
		return title
	}
	return prefix + " " + title
}

func swapAll(lines domain.Lines) domain.Lines {
	out := make(domain.Lines, len(lines))
	for i, line := range lines {
		out[i] = veganPattern.ReplaceAllStringFunc(line, func(match string) string {
			swap := veganLookup[strings.ToLower(match)]
			if first, _ := utf8.DecodeRuneInString(match); unicode.IsUpper(first) {
				r, size := utf8.DecodeRuneInString(swap)
				swap = string(unicode.ToUpper(r)) + swap[size:]
			}
			return swap
		})
	}
	return out
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func removeTag(tags []string, tag string) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
