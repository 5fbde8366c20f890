package llm

import (
	"fmt"
	"strings"
)

func categorizePrompt(dataset string) string {
	var b strings.Builder
	b.WriteString(`You are an AI expert specializing in video content analysis.
Analyze the provided video dataset and generate meaningful, diverse insights.

### Objectives:
1. Generate exactly 4 distinct categories, regardless of dataset diversity.
   Categories must reflect unique themes derived from the dataset; if the
   data is skewed or sparse, infer broad but plausible themes so that no
   category is ever empty.
2. Provide exactly 3 meaningful, generalized keywords for each category.
   Use generalized terms that summarize the category's main idea rather than
   verbatim phrases from the dataset.
3. Calculate a category distribution ratio. The four percentages must sum
   to exactly 100. If one theme dominates, split it into subcategories to
   keep the distribution balanced.

### Output Format:
Respond strictly with one JSON object:
{
    "category_ratio": [percentage1, percentage2, percentage3, percentage4],
    "keywords": {
        "Category1": ["Keyword1", "Keyword2", "Keyword3"],
        "Category2": ["Keyword1", "Keyword2", "Keyword3"],
        "Category3": ["Keyword1", "Keyword2", "Keyword3"],
        "Category4": ["Keyword1", "Keyword2", "Keyword3"]
    }
}

### Important Notes:
- Return exactly 4 categories and 3 keywords per category. No more, no less.
- Never use placeholder names like "Category1" or "Keyword1" in the output.
- Analyze holistically across localizedTitle, localizedDescription and tags.
- If a video overlaps multiple categories, assign it to the most relevant one.

### Dataset:
`)
	b.WriteString(dataset)
	return b.String()
}

func regeneratePrompt(category string, current []string, dataset string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an AI expert specializing in video content analysis.
The category %q currently has these keywords: %s.

Derive exactly 3 new keywords for this category from the dataset below.
The new keywords must be generalized themes, must all differ from each
other, and must not repeat any of the current keywords.

Respond strictly with one JSON object:
{"keywords": ["Keyword1", "Keyword2", "Keyword3"]}

### Dataset:
`, category, strings.Join(current, ", "))
	b.WriteString(dataset)
	return b.String()
}

func comparePrompt(firstKeywords, secondKeywords string) string {
	var b strings.Builder
	b.WriteString(`You are a YouTube algorithm expert. Two keyword datasets follow,
one per user, each holding 12 keywords (4 categories x 3 keywords).
Assess their similarity using cosine similarity over weighted keyword
relationships:
- Exact match: weight 0.25
- Semantic similarity (same category of meaning): weight 0.23
- Hierarchical relationship (one is a sub-concept of the other): weight 0.2
- Industry relationship (same industry or field): weight 0.2
- Functional similarity (similar purpose): weight 0.1
- Synonym relationship: weight 0.1

Convert the resulting cosine similarity into a percentage.

Respond strictly with one JSON object:
{
    "match_keywords": ["shared or closely related keywords"],
    "total_match_rate": 25.6
}

### First user's keywords:
`)
	b.WriteString(firstKeywords)
	b.WriteString("\n\n### Second user's keywords:\n")
	b.WriteString(secondKeywords)
	return b.String()
}
