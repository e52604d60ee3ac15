package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultErrorHTTPCode = http.StatusBadRequest
	maxRequestBodySize   = 64 << 20
)

// HTTPError represents an error-compatible struct to hold http status code
// along with the error message
type HTTPError struct {
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

// DataHandler is a common API handler receiving http request
// and returning whatever JSON-able data
type DataHandler func(*http.Request) (interface{}, error)

type httpErrorResponse struct {
	Error string `json:"error"`
}

// NewHTTPError formats an HTTPError with a given status code
func NewHTTPError(code int, format string, args ...interface{}) HTTPError {
	return HTTPError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WriteJSONError writes e as a JSON error body. The status comes from
// the first HTTPError in e's chain, defaultErrorHTTPCode otherwise;
// the message is always the full text of e.
func WriteJSONError(w http.ResponseWriter, e error) error {
	code := defaultErrorHTTPCode
	var he HTTPError
	if errors.As(e, &he) {
		code = he.Code
	}

	data, err := json.Marshal(httpErrorResponse{Error: e.Error()})
	if err != nil {
		code = http.StatusInternalServerError
		data = []byte(`{"error": "internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(data)
	return err
}

// JSONResponse converts DataHandler to a http.HandlerFunc
func JSONResponse(handler DataHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseData, err := handler(r)
		if err != nil {
			WriteJSONError(w, err)
			return
		}
		data, err := json.Marshal(responseData)
		if err != nil {
			WriteJSONError(w, NewHTTPError(http.StatusInternalServerError, "marshalling error: %s", err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// ReadJSON decodes a JSON request body into dst. Failures are
// returned as HTTPError values ready for WriteJSONError.
func ReadJSON(r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		return NewHTTPError(http.StatusBadRequest, "this handler accepts JSON data only")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "error reading request body: %s", err)
	}

	err = json.Unmarshal(body, dst)
	if err != nil {
		return NewHTTPError(http.StatusBadRequest, "error parsing json data: %s", err)
	}
	return nil
}
