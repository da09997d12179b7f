package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mySocialApp/errs"
)

// payload holds the fields of a successful response next to "result".
type payload map[string]interface{}

// respond writes the success envelope {"result": true, ...p}.
func respond(w http.ResponseWriter, r *http.Request, status int, p payload) {
	if p == nil {
		p = payload{}
	}
	p["result"] = true
	w.WriteHeader(status)
	encode(w, r, p)
}

// message responds 200 with a human readable confirmation.
func message(w http.ResponseWriter, r *http.Request, msg string) {
	respond(w, r, http.StatusOK, payload{"message": msg})
}

func encode(w http.ResponseWriter, r *http.Request, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}

// decode parses the json body of r into dst. Anything unreadable is reported
// as EINVALID with the same message the client sees for missing fields.
func decode(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(dst); err != nil && err != io.EOF {
		return errs.Errorf(errs.EINVALID, "Malformed request body.")
	}
	return nil
}

// idVar parses a numeric route variable such as a post id.
func idVar(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, errs.Errorf(errs.EINVALID, "Invalid Id format.")
	}
	return id, nil
}
