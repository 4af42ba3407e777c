package cover

// NamedOption is a closed catalog entry: a stable key plus a display name.
type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

var marketplaces = []NamedOption{
	{Key: "US", Name: "Amazon.com"},
	{Key: "UK", Name: "Amazon.co.uk"},
	{Key: "DE", Name: "Amazon.de"},
	{Key: "FR", Name: "Amazon.fr"},
	{Key: "ES", Name: "Amazon.es"},
	{Key: "IT", Name: "Amazon.it"},
	{Key: "JP", Name: "Amazon.co.jp"},
}

var categories = []NamedOption{
	{Key: "self_help", Name: "Self-Help"},
	{Key: "business", Name: "Business & Money"},
	{Key: "fiction", Name: "Fiction"},
	{Key: "romance", Name: "Romance"},
	{Key: "thriller", Name: "Mystery & Thriller"},
	{Key: "fantasy", Name: "Fantasy & Sci-Fi"},
	{Key: "cooking", Name: "Cookbooks & Food"},
	{Key: "children", Name: "Children's Books"},
	{Key: "education", Name: "Education & Reference"},
	{Key: "health", Name: "Health & Fitness"},
}

func Marketplaces() []NamedOption {
	out := make([]NamedOption, len(marketplaces))
	copy(out, marketplaces)
	return out
}

func Categories() []NamedOption {
	out := make([]NamedOption, len(categories))
	copy(out, categories)
	return out
}

func MarketplaceName(key string) string {
	for _, m := range marketplaces {
		if m.Key == key {
			return m.Name
		}
	}
	return "Amazon.com"
}

func CategoryName(key string) string {
	for _, c := range categories {
		if c.Key == key {
			return c.Name
		}
	}
	return "General"
}

func IsMarketplace(key string) bool {
	for _, m := range marketplaces {
		if m.Key == key {
			return true
		}
	}
	return false
}

func IsCategory(key string) bool {
	for _, c := range categories {
		if c.Key == key {
			return true
		}
	}
	return false
}
