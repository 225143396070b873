package apierror

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Respond 与 framework=gin 生成的方法一致
func (e orderError) Respond(c *gin.Context) {
	c.Set(ContextKey, e.ApiErrorData())
	c.Status(http.StatusInternalServerError)
	c.Abort()
}

var _ GinResponder = (*orderError)(nil)

func newGinEngine(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/order", func(c *gin.Context) {
		orderMissing.Respond(c)
	})
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestGin_RespondAlwaysInternalServerError(t *testing.T) {
	var seen Data
	r := newGinEngine(func(c *gin.Context) {
		c.Next()
		seen, _ = FromGin(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/order", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, NewData(http.StatusNotFound, "order missing", "orderMissing"), seen)
}

func TestGinRenderer(t *testing.T) {
	r := newGinEngine(GinRenderer(func(c *gin.Context, d Data) {
		c.JSON(d.StatusCode, d)
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/order", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status_code":404,"display_message":"order missing","label":"orderMissing"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
