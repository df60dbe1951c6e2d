package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruteri/apiml-sample-service/common"
)

// DiscoveryResultHeader reports the outcome of the registration call on the
// lifecycle routes, whose bodies are fixed.
const DiscoveryResultHeader = "X-Discovery-Result"

const (
	resultSuccess = "success"
	resultFailure = "failure"

	RegisteredMessage   = "Registered with Python eureka client to Discovery service"
	UnregisteredMessage = "Unregistered Python eureka client from Discovery service"
	HelloMessage        = "Hello world in swagger"

	statusUp = "UP"
)

// Registrar is the registration handle the lifecycle routes trigger.
type Registrar interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
}

// ServiceContext carries everything the routes need. It is built once at startup and
// shared read-only by all requests.
type ServiceContext struct {
	Registrar Registrar

	// APIDocPath is the absolute path of the swagger document.
	APIDocPath string

	BuildInfo common.BuildInfo
	Log       *slog.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type infoResponse struct {
	Build common.BuildInfo `json:"build"`
}

// Handler serves the service routes.
type Handler struct {
	sc  *ServiceContext
	log *slog.Logger

	// discoveryTimeout bounds the registrar calls of the lifecycle routes so that
	// the fixed message is written before the server's write deadline.
	discoveryTimeout time.Duration
}

func NewHandler(sc *ServiceContext) *Handler {
	log := sc.Log
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sc: sc, log: log}
}

// HandleRegisterInfo registers the service with the discovery service.
// The response is the fixed success message whatever the outcome; the outcome is
// reported in the X-Discovery-Result header and the log.
func (h *Handler) HandleRegisterInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.discoveryContext(r)
	defer cancel()
	err := h.sc.Registrar.Register(ctx)
	h.writeLifecycleResult(w, "register", err, RegisteredMessage)
}

// HandleUnregisterInfo removes the service from the discovery service, with the same
// response contract as HandleRegisterInfo.
func (h *Handler) HandleUnregisterInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.discoveryContext(r)
	defer cancel()
	err := h.sc.Registrar.Unregister(ctx)
	h.writeLifecycleResult(w, "unregister", err, UnregisteredMessage)
}

func (h *Handler) discoveryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.discoveryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.discoveryTimeout)
}

func (h *Handler) writeLifecycleResult(w http.ResponseWriter, op string, err error, message string) {
	if err != nil {
		h.log.Warn("Discovery call failed", "op", op, "err", err)
		w.Header().Set(DiscoveryResultHeader, resultFailure)
	} else {
		w.Header().Set(DiscoveryResultHeader, resultSuccess)
	}
	h.writeJSON(w, http.StatusOK, &messageResponse{Message: message})
}

func (h *Handler) HandleHello(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, &messageResponse{Message: HelloMessage})
}

// HandleAPIDoc returns the swagger document as JSON. The file is read on every
// request; YAML and JSON documents are both accepted.
func (h *Handler) HandleAPIDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := loadDocument(h.sc.APIDocPath)
	if err != nil {
		h.log.Error("Failed to load API document", "path", h.sc.APIDocPath, "err", err)
		http.Error(w, "could not load API document", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleApplicationInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, &infoResponse{Build: h.sc.BuildInfo})
}

func (h *Handler) HandleApplicationHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, &healthResponse{Status: statusUp})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func loadDocument(path string) (any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return normalize(doc), nil
}

// normalize converts maps with non-string keys, which YAML allows (e.g. unquoted
// response codes), into JSON-encodable maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
