// Package visibility resolves which content maturity a viewer may see, and
// filters community and category sets for listing queries. All functions are
// pure; callers translate empty results into empty listings without issuing
// further queries.
package visibility

// Content maturity ratings, in ascending order: safe < mature < adult.
type Rating string

const (
	RatingSafe   = Rating("safe")
	RatingMature = Rating("mature")
	RatingAdult  = Rating("adult")
)

// unknown ratings rank as adult, so malformed config never widens visibility
func ratingRank(r Rating) int {
	switch r {
	case RatingSafe:
		return 0
	case RatingMature:
		return 1
	default:
		return 2
	}
}

// ViewerProfile is the viewer-supplied maturity preference plus declared age.
// Anonymous viewers are represented by a nil *ViewerProfile.
type ViewerProfile struct {
	DeclaredAge *int
	Preference  Rating
}

// MaxAllowed computes the maximum rating a viewer may see within a community
// that gates non-safe content behind ageThreshold. Anonymous viewers and
// viewers with no declared age are always capped at safe; an age below the
// gate caps at safe regardless of stated preference.
func MaxAllowed(viewer *ViewerProfile, ageThreshold int) Rating {
	if viewer == nil || viewer.DeclaredAge == nil {
		return RatingSafe
	}
	if *viewer.DeclaredAge < ageThreshold {
		return RatingSafe
	}
	switch viewer.Preference {
	case RatingSafe, RatingMature, RatingAdult:
		return viewer.Preference
	default:
		return RatingSafe
	}
}

// Allows reports whether content with the given rating is visible under max.
func Allows(max, content Rating) bool {
	return ratingRank(content) <= ratingRank(max)
}

// AllowedRatings enumerates every rating visible under max, ascending.
func AllowedRatings(max Rating) []Rating {
	out := []Rating{RatingSafe}
	if Allows(max, RatingMature) {
		out = append(out, RatingMature)
	}
	if Allows(max, RatingAdult) {
		out = append(out, RatingAdult)
	}
	return out
}

// CommunityView is the slice of community state visibility filtering needs.
type CommunityView struct {
	Did            string
	MaturityRating Rating
	AgeThreshold   int
}

// CategoryView is the slice of category state visibility filtering needs.
type CategoryView struct {
	ID             uint
	MaturityRating Rating
}

// FilterCommunities selects the communities eligible for a multi-community
// aggregate listing. Adult-rated communities are excluded unconditionally,
// even for viewers whose own max is adult: adult communities are opt-in per
// community and never surface in cross-community feeds. Each remaining
// community is admitted only if its rating is visible under the viewer's max
// for that community's age gate.
func FilterCommunities(viewer *ViewerProfile, communities []CommunityView) []CommunityView {
	var out []CommunityView
	for _, c := range communities {
		if c.MaturityRating == RatingAdult {
			continue
		}
		max := MaxAllowed(viewer, c.AgeThreshold)
		if Allows(max, c.MaturityRating) {
			out = append(out, c)
		}
	}
	return out
}

// FilterCategories selects the categories whose rating is visible under max.
func FilterCategories(max Rating, categories []CategoryView) []CategoryView {
	var out []CategoryView
	for _, c := range categories {
		if Allows(max, c.MaturityRating) {
			out = append(out, c)
		}
	}
	return out
}
