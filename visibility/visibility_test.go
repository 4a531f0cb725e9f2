package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func agePtr(v int) *int { return &v }

func TestMaxAllowed(t *testing.T) {
	assert := assert.New(t)

	// anonymous and undeclared-age viewers are always capped at safe
	assert.Equal(RatingSafe, MaxAllowed(nil, 18))
	assert.Equal(RatingSafe, MaxAllowed(&ViewerProfile{Preference: RatingAdult}, 18))

	// the age gate overrides preference
	assert.Equal(RatingSafe, MaxAllowed(&ViewerProfile{DeclaredAge: agePtr(15), Preference: RatingAdult}, 18))
	assert.Equal(RatingAdult, MaxAllowed(&ViewerProfile{DeclaredAge: agePtr(21), Preference: RatingAdult}, 18))
	assert.Equal(RatingMature, MaxAllowed(&ViewerProfile{DeclaredAge: agePtr(21), Preference: RatingMature}, 18))

	// a stated safe preference sticks even when of age
	assert.Equal(RatingSafe, MaxAllowed(&ViewerProfile{DeclaredAge: agePtr(40), Preference: RatingSafe}, 18))

	// garbage preference values collapse to safe
	assert.Equal(RatingSafe, MaxAllowed(&ViewerProfile{DeclaredAge: agePtr(40), Preference: Rating("extreme")}, 18))
}

func TestAllowsTotalOrder(t *testing.T) {
	assert := assert.New(t)

	ordered := []Rating{RatingSafe, RatingMature, RatingAdult}
	for i, max := range ordered {
		for j, content := range ordered {
			assert.Equal(j <= i, Allows(max, content), "max=%s content=%s", max, content)
		}
	}

	// unknown content ratings are never shown below adult
	assert.False(Allows(RatingMature, Rating("weird")))
	assert.True(Allows(RatingAdult, Rating("weird")))
}

func TestAllowedRatings(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]Rating{RatingSafe}, AllowedRatings(RatingSafe))
	assert.Equal([]Rating{RatingSafe, RatingMature}, AllowedRatings(RatingMature))
	assert.Equal([]Rating{RatingSafe, RatingMature, RatingAdult}, AllowedRatings(RatingAdult))
}

func TestFilterCommunities(t *testing.T) {
	assert := assert.New(t)

	communities := []CommunityView{
		{Did: "did:web:general", MaturityRating: RatingSafe, AgeThreshold: 13},
		{Did: "did:web:horror", MaturityRating: RatingMature, AgeThreshold: 18},
		{Did: "did:web:nsfw", MaturityRating: RatingAdult, AgeThreshold: 18},
	}

	// adult communities never appear in aggregate listings, even for an
	// adult-preference viewer of age
	adult := &ViewerProfile{DeclaredAge: agePtr(30), Preference: RatingAdult}
	got := FilterCommunities(adult, communities)
	assert.Len(got, 2)
	for _, c := range got {
		assert.NotEqual(RatingAdult, c.MaturityRating)
	}

	// anonymous viewers only see safe communities
	got = FilterCommunities(nil, communities)
	assert.Len(got, 1)
	assert.Equal("did:web:general", got[0].Did)

	// underage viewers are capped per community age gate
	teen := &ViewerProfile{DeclaredAge: agePtr(15), Preference: RatingMature}
	got = FilterCommunities(teen, communities)
	assert.Len(got, 1)
	assert.Equal("did:web:general", got[0].Did)

	// all-adult input filters to empty
	got = FilterCommunities(adult, communities[2:])
	assert.Empty(got)
}

func TestFilterCategories(t *testing.T) {
	assert := assert.New(t)

	categories := []CategoryView{
		{ID: 1, MaturityRating: RatingSafe},
		{ID: 2, MaturityRating: RatingMature},
		{ID: 3, MaturityRating: RatingAdult},
	}

	assert.Len(FilterCategories(RatingSafe, categories), 1)
	assert.Len(FilterCategories(RatingMature, categories), 2)
	assert.Len(FilterCategories(RatingAdult, categories), 3)
	assert.Empty(FilterCategories(RatingSafe, categories[1:]))
}
