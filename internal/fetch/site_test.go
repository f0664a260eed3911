package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJobBoard(t *testing.T) {
	assert.True(t, IsJobBoard("https://www.linkedin.com/jobs/view/1"))
	assert.True(t, IsJobBoard("https://uk.indeed.com/viewjob?jk=1"))
	assert.True(t, IsJobBoard("https://jobs.lever.co/acme/123"))
	assert.True(t, IsJobBoard("https://careers.google.com/jobs/results/"))
	assert.False(t, IsJobBoard("https://acme.io/careers"))
	assert.False(t, IsJobBoard("::not a url"))
}

func TestLooksLikeCareerPage(t *testing.T) {
	assert.True(t, LooksLikeCareerPage("https://acme.io/careers", ""))
	assert.True(t, LooksLikeCareerPage("https://acme.io/", "We are hiring! Join the team."))
	assert.False(t, LooksLikeCareerPage("https://acme.io/", "We are hiring."))
	assert.False(t, LooksLikeCareerPage("https://acme.io/pricing", "Plans start at $10 per seat."))
}

func TestHostAndSiteRoot(t *testing.T) {
	assert.Equal(t, "acme.io", Host("https://www.Acme.io/careers?x=1"))
	assert.Equal(t, "", Host("::bad"))
	assert.Equal(t, "https://careers.acme.io", SiteRoot("https://careers.acme.io/jobs/1"))
	assert.Equal(t, "http://acme.io:8080", SiteRoot("http://Acme.io:8080/about"))
	assert.Equal(t, "", SiteRoot("acme.io"))
}
