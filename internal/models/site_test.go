package models_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/laurinneff/passwd.mgr/internal/models"
)

func TestSite(t *testing.T) {
	site := models.NewSite("Me", "me@example.com", "myPassword")

	assert.Equal(t, "Me", site.Username())
	assert.Equal(t, "me@example.com", site.Email())
	assert.Equal(t, "myPassword", site.Password())
}

func TestSite_Equal(t *testing.T) {
	base := models.NewSite("u", "e", "p")

	assert.True(t, base.Equal(models.NewSite("u", "e", "p")))
	assert.False(t, base.Equal(models.NewSite("U", "e", "p")))
	assert.False(t, base.Equal(models.NewSite("u", "E", "p")))
	assert.False(t, base.Equal(models.NewSite("u", "e", "P")))
	assert.True(t, models.Site{}.Equal(models.NewSite("", "", "")))
}

func TestSite_StringHidesPassword(t *testing.T) {
	site := models.NewSite("Me", "me@example.com", "hunter2")

	assert.NotContains(t, site.String(), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%v", site), "hunter2")
	assert.Contains(t, site.String(), "me@example.com")
}
