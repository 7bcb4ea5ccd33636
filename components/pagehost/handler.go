package pagehost

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// CallPayload is one operation in a dispatch request.
type CallPayload struct {
	Node      string         `json:"node"`
	Operation string         `json:"operation"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// DispatchRequest is the POST body. A single call may be sent inline; Calls
// are dispatched as one batch.
type DispatchRequest struct {
	CallPayload
	Calls []CallPayload `json:"calls,omitempty"`
}

// ResultPayload mirrors dispatch.Result on the wire.
type ResultPayload struct {
	Node       string `json:"node"`
	Operation  string `json:"operation"`
	Outcome    string `json:"outcome"`
	Tip        string `json:"tip,omitempty"`
	Generation uint64 `json:"generation"`
	RequestID  string `json:"requestId,omitempty"`
	Navigated  bool   `json:"navigated,omitempty"`
}

type dispatchResponse struct {
	Data []ResultPayload `json:"data"`
}

// Handler is an alias of NewHandler.
func Handler(inst *engine.Instance, renderer *html.Renderer, fns ...OptionFn) http.Handler {
	return NewHandler(inst, renderer, fns...)
}

func NewHandler(inst *engine.Instance, renderer *html.Renderer, fns ...OptionFn) http.Handler {
	return HandlerWithOptions(inst, renderer, NewOptions(fns...))
}

// HandlerWithOptions builds the handler from a pre-constructed Options value.
func HandlerWithOptions(inst *engine.Instance, renderer *html.Renderer, opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil || inst == nil || renderer == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			servePage(w, r, inst, renderer, opts)
		case http.MethodPost:
			serveDispatch(w, r, inst, opts)
		default:
			w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodHead, http.MethodPost}, ", "))
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
}

func servePage(w http.ResponseWriter, r *http.Request, inst *engine.Instance, renderer *html.Renderer, opts Options) {
	ctx := r.Context()
	if parseBool(r.URL.Query().Get(opts.ReloadParam)) {
		if _, err := inst.Reload(ctx); err != nil {
			writeError(w, err)
			return
		}
	}

	body, err := inst.Render(ctx, engine.RenderOptions{})
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := renderer.Page(opts.PageOptions...).Wrap(body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(page))
}

func serveDispatch(w http.ResponseWriter, r *http.Request, inst *engine.Instance, opts Options) {
	var req DispatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid dispatch request", http.StatusBadRequest)
		return
	}

	calls := req.Calls
	if len(calls) == 0 {
		if req.Node == "" || req.Operation == "" {
			http.Error(w, "node and operation are required", http.StatusBadRequest)
			return
		}
		calls = []CallPayload{req.CallPayload}
	}

	var (
		results []dispatch.Result
		err     error
	)
	if len(calls) == 1 && len(req.Calls) == 0 {
		var res dispatch.Result
		res, err = inst.Dispatch(r.Context(), calls[0].Node, calls[0].Operation, calls[0].Extra)
		results = []dispatch.Result{res}
	} else {
		batch := make([]dispatch.Call, 0, len(calls))
		for _, call := range calls {
			batch = append(batch, dispatch.Call{NodeID: call.Node, OperationKey: call.Operation, Extra: call.Extra})
		}
		results, err = inst.DispatchBatch(r.Context(), batch)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	payload := dispatchResponse{Data: make([]ResultPayload, 0, len(results))}
	for _, res := range results {
		payload.Data = append(payload.Data, ResultPayload{
			Node:       res.NodeID,
			Operation:  res.OperationKey,
			Outcome:    string(res.Outcome),
			Tip:        res.Tip,
			Generation: res.Generation,
			RequestID:  res.RequestID,
			Navigated:  res.Navigated,
		})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	case errors.Is(err, dispatch.ErrUnknownNode), errors.Is(err, dispatch.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnmounted), errors.Is(err, coordinator.ErrClosed):
		return http.StatusGone
	case errors.Is(err, coordinator.ErrTransport), errors.Is(err, dispatch.ErrOperationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	http.Error(w, http.StatusText(code), code)
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
	}
	http.Error(w, http.StatusText(code), code)
}

func parseBool(raw string) bool {
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}
