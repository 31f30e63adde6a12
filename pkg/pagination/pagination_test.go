package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parse(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, parse(t, ""))
	assert.Equal(t, Params{Page: 3, Limit: 5, Offset: 10}, parse(t, "page=3&limit=5"))
	assert.Equal(t, Params{Page: 1, Limit: MaxLimit, Offset: 0}, parse(t, "page=-2&limit=1000"))
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, parse(t, "page=x&limit=0"))
}

func TestSlice(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	p := Slice(items, Params{Page: 2, Limit: 2, Offset: 2})
	assert.Equal(t, []string{"c", "d"}, p.Items)
	assert.Equal(t, 5, p.Total)

	p = Slice(items, Params{Page: 3, Limit: 2, Offset: 4})
	assert.Equal(t, []string{"e"}, p.Items)

	p = Slice(items, Params{Page: 9, Limit: 2, Offset: 16})
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}
