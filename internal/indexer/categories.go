package indexer

// Standard Newznab categories relevant to sports content.
// https://newznab.readthedocs.io/en/latest/misc/api/#predefined-categories
const (
	CategoryTV      = 5000
	CategoryTVSD    = 5030
	CategoryTVHD    = 5040
	CategoryTVUHD   = 5045
	CategoryTVSport = 5060
	CategoryTVWebDL = 5090
)

// CategoryName returns a human-readable name for a category.
func CategoryName(id int) string {
	names := map[int]string{
		CategoryTV:      "TV",
		CategoryTVSD:    "TV/SD",
		CategoryTVHD:    "TV/HD",
		CategoryTVUHD:   "TV/UHD",
		CategoryTVSport: "TV/Sport",
		CategoryTVWebDL: "TV/WEB-DL",
	}
	if name, ok := names[id]; ok {
		return name
	}
	return "Unknown"
}

// SportCategories returns the default categories to search for events.
func SportCategories() []int {
	return []int{CategoryTVSport}
}

// ExtendedSportCategories adds the generic TV categories for indexers that
// file sports under plain TV.
func ExtendedSportCategories() []int {
	return []int{
		CategoryTVSport,
		CategoryTV,
		CategoryTVHD,
		CategoryTVUHD,
		CategoryTVWebDL,
	}
}

// IsTVCategory returns true if the category is a TV category.
func IsTVCategory(id int) bool {
	return id >= 5000 && id < 6000
}
