package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"errortracker/internal/store"
)

func TestLogErrorHandler(t *testing.T) {
	st := newTestStore(t)
	body := []byte(`{
		"category": "api",
		"error_type": "Timeout",
		"error_message": "Request timed out",
		"context": "GET /users",
		"stack_trace": "at fetchUsers"
	}`)

	ctx := newCtx("POST", "/api/log-error", body)
	LogErrorHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])
	id := int64(data["error_id"].(float64))
	assert.Greater(t, id, int64(0))

	detail, err := st.GetErrorDetail(id)
	require.NoError(t, err)
	assert.Equal(t, "Timeout", detail.ErrorType)
	require.Len(t, detail.Occurrences, 1)
	require.NotNil(t, detail.Occurrences[0].Context)
	assert.Equal(t, "GET /users", *detail.Occurrences[0].Context)
}

func TestLogErrorHandlerDefaults(t *testing.T) {
	st := newTestStore(t)
	ctx := newCtx("POST", "/api/log-error", []byte(`{}`))
	LogErrorHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])

	groups, err := st.ListErrors("server", false, 0, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Error", groups[0].ErrorType)
	assert.Equal(t, "Unknown error", groups[0].ErrorMessage)
}

func TestLogErrorHandlerInvalidJSON(t *testing.T) {
	st := newTestStore(t)
	ctx := newCtx("POST", "/api/log-error", []byte(`{broken`))
	LogErrorHandler(st)(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Equal(t, false, decodeBody(t, ctx)["success"])
}

func TestLogErrorHandlerLiftsRequestInfoFromExtraData(t *testing.T) {
	st := newTestStore(t)
	body := []byte(`{
		"category": "server",
		"error_type": "HTTPError",
		"error_message": "upstream failed",
		"extra_data": {"url": "https://api.example.com/sync", "status": 502}
	}`)

	ctx := newCtx("POST", "/api/log-error", body)
	LogErrorHandler(st)(ctx)

	data := decodeBody(t, ctx)
	id := int64(data["error_id"].(float64))
	detail, err := st.GetErrorDetail(id)
	require.NoError(t, err)
	require.Len(t, detail.Occurrences, 1)
	occ := detail.Occurrences[0]
	require.NotNil(t, occ.RequestURL)
	assert.Equal(t, "https://api.example.com/sync", *occ.RequestURL)
	require.NotNil(t, occ.HTTPStatus)
	assert.Equal(t, 502, *occ.HTTPStatus)
}

func TestLogErrorHandlerDisabledCategory(t *testing.T) {
	st := newTestStore(t)
	st.Categories().SetEnabled("test", false)

	ctx := newCtx("POST", "/api/log-error", []byte(`{"category":"test","error_type":"E","error_message":"m"}`))
	LogErrorHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(store.DisabledID), data["error_id"], "disabled categories answer the sentinel id")
}

func TestFrontendErrorsHandler(t *testing.T) {
	st := newTestStore(t)
	body := []byte(`{"errors": [
		{"error_type": "TypeError", "error_message": "null is not an object",
		 "page_url": "https://shop.example.com/checkout",
		 "user_agent": "test-browser",
		 "viewport": {"width": 1280, "height": 720},
		 "extra_data": {"stack": "at checkout.js:10"}}
	]}`)

	ctx := newCtx("POST", "/api/log-frontend-error", body)
	FrontendErrorsHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(1), data["logged"])

	groups, err := st.ListErrors("frontend", false, 0, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	detail, err := st.GetErrorDetail(int64(groups[0].ID))
	require.NoError(t, err)
	require.Len(t, detail.Occurrences, 1)
	extra := detail.Occurrences[0].ExtraDataMap()
	assert.Equal(t, "test-browser", extra["user_agent"])
	assert.Equal(t, "at checkout.js:10", extra["stack"])
}

func TestFrontendErrorsHandlerDefaults(t *testing.T) {
	st := newTestStore(t)
	ctx := newCtx("POST", "/api/log-frontend-error", []byte(`{"errors": [{}]}`))
	FrontendErrorsHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, float64(1), data["logged"])

	groups, err := st.ListErrors("frontend", false, 0, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "FrontendError", groups[0].ErrorType)
}

func TestFrontendErrorsHandlerDisabledCategory(t *testing.T) {
	st := newTestStore(t)
	st.Categories().SetEnabled("frontend", false)

	ctx := newCtx("POST", "/api/log-frontend-error", []byte(`{"errors": [{"error_type":"E","error_message":"m"}]}`))
	FrontendErrorsHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(0), data["logged"])
}

func TestFrontendErrorsHandlerEmptyBatch(t *testing.T) {
	st := newTestStore(t)
	ctx := newCtx("POST", "/api/log-frontend-error", []byte(`{"errors": []}`))
	FrontendErrorsHandler(st)(ctx)

	data := decodeBody(t, ctx)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(0), data["logged"])
}
