package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/apiml-sample-service/common"
	"github.com/ruteri/apiml-sample-service/enabler"
	"github.com/ruteri/apiml-sample-service/metrics"
)

const mockSwaggerJSON = `{"swagger": "2.0", "info": {"version": "1.0.0"}}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSwagger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pythonSwagger.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newTestServer wires a Server around a mocked registration handle. Requests go
// through the full router and middleware chain.
func newTestServer(t *testing.T, registrar *enabler.MockEnabler, apiDocPath string) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics()
	handler := NewHandler(&ServiceContext{
		Registrar:  registrar,
		APIDocPath: apiDocPath,
		BuildInfo:  common.BuildInfo{Name: common.ServiceName, Version: "2.3.0", Number: "n/a"},
		Log:        testLogger(),
	})
	srv, err := New(&HTTPServerConfig{Log: testLogger()}, handler, m)
	require.NoError(t, err)
	return srv, m
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHandleRegisterInfo(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Register", mock.Anything).Return(nil).Once()
	srv, _ := newTestServer(t, registrar, "")

	rr := get(t, srv, "/pythonservice/registerInfo")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Registered with Python eureka client to Discovery service"}`, rr.Body.String())
	assert.Equal(t, "success", rr.Header().Get(DiscoveryResultHeader))
	registrar.AssertNumberOfCalls(t, "Register", 1)
	registrar.AssertNotCalled(t, "Unregister", mock.Anything)
}

func TestHandleRegisterInfo_FailureStillReportsMessage(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Register", mock.Anything).Return(errors.New("discovery service unreachable"))
	srv, _ := newTestServer(t, registrar, "")

	rr := get(t, srv, "/pythonservice/registerInfo")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Registered with Python eureka client to Discovery service"}`, rr.Body.String())
	assert.Equal(t, "failure", rr.Header().Get(DiscoveryResultHeader))
	registrar.AssertNumberOfCalls(t, "Register", 1)
}

func TestHandleRegisterInfo_OneCallPerRequest(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Register", mock.Anything).Return(nil)
	srv, _ := newTestServer(t, registrar, "")

	for i := 0; i < 3; i++ {
		get(t, srv, "/pythonservice/registerInfo")
	}
	registrar.AssertNumberOfCalls(t, "Register", 3)
}

func TestHandleUnregisterInfo(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Unregister", mock.Anything).Return(nil).Once()
	srv, _ := newTestServer(t, registrar, "")

	rr := get(t, srv, "/pythonservice/unregisterInfo")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Unregistered Python eureka client from Discovery service"}`, rr.Body.String())
	assert.Equal(t, "success", rr.Header().Get(DiscoveryResultHeader))
	registrar.AssertNumberOfCalls(t, "Unregister", 1)
	registrar.AssertNotCalled(t, "Register", mock.Anything)
}

func TestHandleUnregisterInfo_FailureStillReportsMessage(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Unregister", mock.Anything).Return(&enabler.StatusError{Op: enabler.OpUnregister, StatusCode: http.StatusNotFound})
	srv, _ := newTestServer(t, registrar, "")

	rr := get(t, srv, "/pythonservice/unregisterInfo")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Unregistered Python eureka client from Discovery service"}`, rr.Body.String())
	assert.Equal(t, "failure", rr.Header().Get(DiscoveryResultHeader))
	registrar.AssertNumberOfCalls(t, "Unregister", 1)
}

func TestHandleHello(t *testing.T) {
	srv, _ := newTestServer(t, new(enabler.MockEnabler), "")

	rr := get(t, srv, "/pythonservice/hello")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"message":"Hello world in swagger"}`, rr.Body.String())
}

func TestHandleApplicationHealth(t *testing.T) {
	srv, _ := newTestServer(t, new(enabler.MockEnabler), "")

	rr := get(t, srv, "/pythonservice/application/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"status":"UP"}`, rr.Body.String())
}

func TestHandleApplicationInfo(t *testing.T) {
	srv, _ := newTestServer(t, new(enabler.MockEnabler), "")

	rr := get(t, srv, "/pythonservice/application/info")
	require.Equal(t, http.StatusOK, rr.Code)

	var data map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &data))
	require.Contains(t, data, "build")
	assert.Equal(t, "python-service", data["build"]["name"])
	assert.Equal(t, "2.3.0", data["build"]["version"])
	for _, key := range []string{"operatingSystem", "time", "machine", "number"} {
		assert.Contains(t, data["build"], key)
	}
}

func TestHandleAPIDoc(t *testing.T) {
	srv, _ := newTestServer(t, new(enabler.MockEnabler), writeSwagger(t, mockSwaggerJSON))

	rr := get(t, srv, "/pythonservice/apidoc")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, mockSwaggerJSON, rr.Body.String())
}

func TestHandleAPIDoc_RoundTrip(t *testing.T) {
	doc := `{
		"swagger": "2.0",
		"info": {"title": "Python Sample Service", "version": "1.0.0"},
		"basePath": "/pythonservice",
		"schemes": ["https"],
		"paths": {
			"/hello": {"get": {"responses": {"200": {"description": "OK"}}}}
		},
		"x-flags": [true, false, null, 1.5, 42]
	}`
	srv, _ := newTestServer(t, new(enabler.MockEnabler), writeSwagger(t, doc))

	rr := get(t, srv, "/pythonservice/apidoc")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, doc, rr.Body.String())
}

func TestHandleAPIDoc_YAMLDocument(t *testing.T) {
	doc := "swagger: '2.0'\npaths:\n  /hello:\n    get:\n      responses:\n        200:\n          description: OK\n"
	srv, _ := newTestServer(t, new(enabler.MockEnabler), writeSwagger(t, doc))

	rr := get(t, srv, "/pythonservice/apidoc")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"swagger":"2.0","paths":{"/hello":{"get":{"responses":{"200":{"description":"OK"}}}}}}`, rr.Body.String())
}

func TestHandleAPIDoc_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.json")},
		{name: "malformed document", path: writeSwagger(t, `{"swagger": `)},
		{name: "empty document", path: writeSwagger(t, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, new(enabler.MockEnabler), tt.path)
			rr := get(t, srv, "/pythonservice/apidoc")
			assert.Equal(t, http.StatusInternalServerError, rr.Code)
		})
	}
}

func TestRoutes_AllReturnOK(t *testing.T) {
	registrar := new(enabler.MockEnabler)
	registrar.On("Register", mock.Anything).Return(nil)
	registrar.On("Unregister", mock.Anything).Return(nil)
	srv, _ := newTestServer(t, registrar, writeSwagger(t, mockSwaggerJSON))

	for _, path := range []string{
		"/pythonservice/registerInfo",
		"/pythonservice/unregisterInfo",
		"/pythonservice/hello",
		"/pythonservice/apidoc",
		"/pythonservice/application/info",
		"/pythonservice/application/health",
	} {
		t.Run(path, func(t *testing.T) {
			rr := get(t, srv, path)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestRoutes_OnlyGET(t *testing.T) {
	srv, _ := newTestServer(t, new(enabler.MockEnabler), "")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/pythonservice/hello", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
