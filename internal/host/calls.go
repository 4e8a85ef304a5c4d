package host

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gearxr/gear/internal/ai"
	"github.com/gearxr/gear/internal/dispatcher"
	"github.com/gearxr/gear/internal/handlers"
	"github.com/gearxr/gear/pkg/rpc"
)

const maxBatchBytes = 1 << 20

// serviceCalls runs a batch of calls in order. A failing call does not stop
// the ones after it.
func (s *Server) serviceCalls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var calls []rpc.Call
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBatchBytes)).Decode(&calls); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	results := make([]rpc.Result, 0, len(calls))
	for _, c := range calls {
		results = append(results, s.runCall(r, c))
	}
	_ = json.NewEncoder(w).Encode(results)
}

func (s *Server) runCall(r *http.Request, c rpc.Call) rpc.Result {
	data, err := s.deps.Dispatcher.Dispatch(r.Context(), dispatcher.Call{
		Method: c.MethodName,
		Args:   c.Args,
	})
	if err != nil {
		return errorResult(err, s.logInternal(c.MethodName))
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return errorResult(err, s.logInternal(c.MethodName))
	}
	return rpc.Result{Data: raw}
}

func (s *Server) logInternal(method string) func(error) {
	return func(err error) {
		s.logger.Error("Call failed", "method", method, "error", err)
	}
}

// errorResult maps handler errors onto exception codes. Errors without a
// code are reported as internal and their detail only goes to the log.
func errorResult(err error, internal func(error)) rpc.Result {
	exc := &rpc.Exception{Message: err.Error()}
	var argsErr *dispatcher.ArgsError
	var apiErr *ai.APIError

	switch {
	case errors.Is(err, handlers.ErrRequireLogin):
		exc.ErrorCode = rpc.CodeRequireLogin
	case errors.Is(err, handlers.ErrForbidden):
		exc.ErrorCode = rpc.CodeNoPermissions
	case errors.Is(err, handlers.ErrNotFound):
		exc.ErrorCode = rpc.CodeInvalidRecord
	case errors.Is(err, handlers.ErrInvalidParam), errors.As(err, &argsErr):
		exc.ErrorCode = rpc.CodeInvalidParam
	case errors.Is(err, dispatcher.ErrUnknownMethod):
		exc.ErrorCode = rpc.CodeUnknownMethod
	case errors.Is(err, ai.ErrNotConfigured):
		exc.ErrorCode = rpc.CodeAINotConfigured
	case errors.Is(err, ai.ErrInvalidJSON):
		exc.ErrorCode = rpc.CodeInvalidJSON
	case errors.As(err, &apiErr):
		exc.ErrorCode = rpc.CodeAPIError
	default:
		internal(err)
		exc.ErrorCode = rpc.CodeInternal
		exc.Message = "internal error"
	}
	return rpc.Result{Error: true, Exception: exc}
}
