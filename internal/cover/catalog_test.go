package cover

import "testing"

func TestCatalogLookups(t *testing.T) {
	if got := MarketplaceName("DE"); got != "Amazon.de" {
		t.Fatalf("MarketplaceName(DE) = %q", got)
	}
	if got := MarketplaceName("nope"); got != "Amazon.com" {
		t.Fatalf("MarketplaceName fallback = %q, want Amazon.com", got)
	}
	if got := CategoryName("nope"); got != "General" {
		t.Fatalf("CategoryName fallback = %q, want General", got)
	}

	if !IsMarketplace("US") || IsMarketplace("zz") {
		t.Fatal("IsMarketplace misclassified")
	}
	if !IsCategory("self_help") || IsCategory("zz") {
		t.Fatal("IsCategory misclassified")
	}

	for _, opt := range Marketplaces() {
		if opt.Key == "" || opt.Name == "" {
			t.Fatalf("marketplace with empty field: %+v", opt)
		}
	}
	for _, opt := range Categories() {
		if opt.Key == "" || opt.Name == "" {
			t.Fatalf("category with empty field: %+v", opt)
		}
	}
}
