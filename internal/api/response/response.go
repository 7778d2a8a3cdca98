// internal/api/response/response.go

// Package response writes the JSON envelope every API endpoint shares.
// Success bodies carry data, failure bodies carry a problem; both record
// when they were served.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mhollert/bret/internal/core"
)

// Problem describes a failed request in terms of the core error taxonomy.
type Problem struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Envelope is the body of every response.
type Envelope struct {
	Data     any       `json:"data,omitempty"`
	Error    *Problem  `json:"error,omitempty"`
	ServedAt time.Time `json:"served_at"`
}

// JSON writes data wrapped in the envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Data: data})
}

// Error writes the problem for err. Errors outside the core taxonomy are
// reported as INTERNAL with no detail so internals never leak to clients.
func Error(w http.ResponseWriter, status int, err error) {
	p := &Problem{Code: "INTERNAL", Detail: "internal error"}

	var ce *core.Error
	if errors.As(err, &ce) {
		p.Code = ce.Code
		p.Detail = ce.Message
		if ce.Cause != nil {
			p.Detail += ": " + ce.Cause.Error()
		}
	}

	write(w, status, Envelope{Error: p})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.ServedAt = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
