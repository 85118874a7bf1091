package wikiurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecure(t *testing.T) {
	assert.Equal(t, "https://en.wikipedia.org/", Secure("http://en.wikipedia.org/"))
	assert.Equal(t, "https://en.wikipedia.org/", Secure("https://en.wikipedia.org/"))
	assert.Equal(t, "//en.wikipedia.org/", Secure("//en.wikipedia.org/"))
	assert.Equal(t, "", Secure(""))
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/", Trim("http://127.0.0.1:8080"))
	assert.Equal(t, "https://nl.wikipedia.org/", Trim(" https://nl.wikipedia.org// "))
	assert.Equal(t, "", Trim("  "))
}

func TestRoot(t *testing.T) {
	assert.Equal(t, "https://nl.wikipedia.org/", Root("http://nl.wikipedia.org"))
	assert.Equal(t, "https://nl.wikipedia.org/", Root(" https://nl.wikipedia.org// "))
	assert.Equal(t, "", Root(""))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Main Page", "Main_Page"},
		{"User talk:Alice", "User_talk:Alice"},
		{"Foo/Bar baz", "Foo/Bar_baz"},
		{"100% sure?", "100%25_sure%3F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Encode(tt.in), tt.in)
	}
}

func TestPage(t *testing.T) {
	assert.Equal(t, "https://en.wikipedia.org/wiki/Old_Name", Page("https://en.wikipedia.org", "Old Name"))
	assert.Equal(t, "http://127.0.0.1:8080/wiki/Old_Name", Page("http://127.0.0.1:8080/", "Old Name"))
}
